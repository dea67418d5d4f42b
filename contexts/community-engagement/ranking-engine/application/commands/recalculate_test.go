package commands_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/adapters/memory"
	"cinetrack/contexts/community-engagement/ranking-engine/application/commands"
	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type flakyLedger struct {
	inner    ports.RankingLedger
	failures int
	calls    int
}

func (l *flakyLedger) WithinRankingScope(ctx context.Context, rankingID string, fn func(tx ports.RecalcTx) error) error {
	l.calls++
	if l.calls <= l.failures {
		return domainerrors.ErrConflict
	}
	return l.inner.WithinRankingScope(ctx, rankingID, fn)
}

func seedRanking(scores map[string]float64) *memory.Store {
	items := make([]entities.RankingItem, 0, len(scores))
	for itemID, score := range scores {
		items = append(items, entities.RankingItem{ItemID: itemID, RankingID: "ranking-1", SubjectID: "movie-" + itemID, Score: score})
	}
	return memory.NewStore([]entities.Ranking{{RankingID: "ranking-1", Title: "Top films", Type: "movies"}}, items)
}

func newRecalculator(store *memory.Store) commands.RecalculateUseCase {
	return commands.RecalculateUseCase{
		Ledger: store,
		Clock:  fixedClock{now: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)},
		IDGen:  store,
	}
}

func positions(t *testing.T, store *memory.Store) map[string]int {
	t.Helper()
	items, err := store.ListItems(context.Background(), "ranking-1")
	if err != nil {
		t.Fatalf("list items failed: %v", err)
	}
	byID := make(map[string]int, len(items))
	for _, item := range items {
		byID[item.ItemID] = item.Position
	}
	return byID
}

func TestRecalculatePositionsOrdersByScore(t *testing.T) {
	store := seedRanking(map[string]float64{"item-10": 10, "item-30": 30, "item-20": 20})
	uc := newRecalculator(store)

	result, err := uc.RecalculatePositions(context.Background(), "ranking-1")
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if result.ItemCount != 3 || result.ChangedCount() != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	got := positions(t, store)
	if got["item-30"] != 1 || got["item-20"] != 2 || got["item-10"] != 3 {
		t.Fatalf("unexpected positions %v", got)
	}
}

func TestRecalculatePositionsIsDeterministic(t *testing.T) {
	store := seedRanking(map[string]float64{"a": 5, "b": 5, "c": 5, "d": 7})
	uc := newRecalculator(store)
	ctx := context.Background()

	if _, err := uc.RecalculatePositions(ctx, "ranking-1"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := positions(t, store)
	pendingBefore, _ := store.ListPendingOutbox(ctx, 100)

	second, err := uc.RecalculatePositions(ctx, "ranking-1")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.ChangedCount() != 0 {
		t.Fatalf("expected second run to change nothing, got %+v", second.Changes)
	}
	if fmt.Sprint(positions(t, store)) != fmt.Sprint(first) {
		t.Fatalf("positions moved between runs: %v vs %v", first, positions(t, store))
	}
	pendingAfter, _ := store.ListPendingOutbox(ctx, 100)
	if len(pendingAfter) != len(pendingBefore) {
		t.Fatalf("expected no event for a no-op run, got %d new", len(pendingAfter)-len(pendingBefore))
	}
	if first["d"] != 1 || first["a"] != 2 || first["b"] != 3 || first["c"] != 4 {
		t.Fatalf("expected ties broken by item id, got %v", first)
	}
}

func TestRecalculatePositionsAssignsDenseSet(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scores := make(map[string]float64, 40)
	for i := 0; i < 40; i++ {
		scores[fmt.Sprintf("item-%02d", i)] = float64(rng.Intn(10))
	}
	store := seedRanking(scores)

	if _, err := newRecalculator(store).RecalculatePositions(context.Background(), "ranking-1"); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	seen := make(map[int]bool, len(scores))
	for itemID, position := range positions(t, store) {
		if position < 1 || position > len(scores) {
			t.Fatalf("item %s has out-of-range position %d", itemID, position)
		}
		if seen[position] {
			t.Fatalf("position %d assigned twice", position)
		}
		seen[position] = true
	}
	if len(seen) != len(scores) {
		t.Fatalf("expected %d positions, got %d", len(scores), len(seen))
	}
}

func TestRecalculatePositionsEmptyRankingWritesNothing(t *testing.T) {
	store := seedRanking(nil)
	result, err := newRecalculator(store).RecalculatePositions(context.Background(), "ranking-1")
	if err != nil {
		t.Fatalf("expected success for empty ranking, got %v", err)
	}
	if result.ItemCount != 0 || result.ChangedCount() != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected no writes, got %d outbox rows", len(pending))
	}
}

func TestRecalculatePositionsRetriesConflictOnce(t *testing.T) {
	store := seedRanking(map[string]float64{"a": 1, "b": 2})
	ledger := &flakyLedger{inner: store, failures: 1}
	uc := newRecalculator(store)
	uc.Ledger = ledger

	if _, err := uc.RecalculatePositions(context.Background(), "ranking-1"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if ledger.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", ledger.calls)
	}

	ledger = &flakyLedger{inner: store, failures: 5}
	uc.Ledger = ledger
	if _, err := uc.RecalculatePositions(context.Background(), "ranking-1"); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if ledger.calls != 2 {
		t.Fatalf("expected retry budget of one, got %d attempts", ledger.calls)
	}
}

func TestRecalculatePositionsCancelledContextWritesNothing(t *testing.T) {
	store := seedRanking(map[string]float64{"a": 1, "b": 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newRecalculator(store).RecalculatePositions(ctx, "ranking-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for itemID, position := range positions(t, store) {
		if position != 0 {
			t.Fatalf("expected %s to stay unplaced, got %d", itemID, position)
		}
	}
}

func TestRecalculatePositionsConcurrentRunsStayConsistent(t *testing.T) {
	scores := make(map[string]float64, 20)
	for i := 0; i < 20; i++ {
		scores[fmt.Sprintf("item-%02d", i)] = float64(i % 7)
	}
	store := seedRanking(scores)
	uc := newRecalculator(store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := uc.RecalculatePositions(context.Background(), "ranking-1"); err != nil {
				t.Errorf("concurrent recalculation failed: %v", err)
			}
		}()
	}
	wg.Wait()

	items, _ := store.ListItems(context.Background(), "ranking-1")
	expected := entities.AssignPositions(items)
	got := positions(t, store)
	for _, item := range expected {
		if got[item.ItemID] != item.Position {
			t.Fatalf("item %s expected position %d, got %d", item.ItemID, item.Position, got[item.ItemID])
		}
	}
}
