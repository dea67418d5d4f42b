package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int64
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type Store struct {
	mu sync.RWMutex

	rankings   map[string]entities.Ranking
	items      map[string]entities.RankingItem
	outbox     map[string]outboxRecord
	outboxSeq  int64
	eventDedup map[string]dedupRecord
}

func NewStore(rankings []entities.Ranking, items []entities.RankingItem) *Store {
	store := &Store{
		rankings:   make(map[string]entities.Ranking, len(rankings)),
		items:      make(map[string]entities.RankingItem, len(items)),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
	for _, ranking := range rankings {
		store.rankings[strings.TrimSpace(ranking.RankingID)] = ranking
	}
	for _, item := range items {
		store.items[strings.TrimSpace(item.ItemID)] = item
	}
	return store
}

// WithinRankingScope holds the store write lock for the whole scope and
// applies staged positions only if fn succeeds and ctx is still live.
func (s *Store) WithinRankingScope(
	ctx context.Context,
	_ string,
	fn func(tx ports.RecalcTx) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &recalcTx{store: s, positions: make(map[string]entities.RankingItem)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	staged, err := s.stageOutboxLocked(tx.outbox)
	if err != nil {
		return err
	}
	for itemID, item := range tx.positions {
		s.items[itemID] = item
	}
	s.commitOutboxLocked(staged)
	return nil
}

type recalcTx struct {
	store     *Store
	positions map[string]entities.RankingItem
	outbox    []ports.EventEnvelope
}

func (tx *recalcTx) LockItems(_ context.Context, rankingID string) ([]entities.RankingItem, error) {
	return tx.store.listItemsLocked(rankingID), nil
}

func (tx *recalcTx) UpdatePositions(
	_ context.Context,
	rankingID string,
	changes []entities.PositionChange,
	updatedAt time.Time,
) error {
	rankingID = strings.TrimSpace(rankingID)
	for _, change := range changes {
		item, ok := tx.store.items[change.ItemID]
		if !ok || item.RankingID != rankingID {
			return domainerrors.ErrItemNotFound
		}
		item.Position = change.To
		item.UpdatedAt = updatedAt.UTC()
		tx.positions[change.ItemID] = item
	}
	return nil
}

func (tx *recalcTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	tx.outbox = append(tx.outbox, envelope)
	return nil
}

func (s *Store) CreateRanking(_ context.Context, ranking entities.Ranking, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rankingID := strings.TrimSpace(ranking.RankingID)
	if _, exists := s.rankings[rankingID]; exists {
		return domainerrors.ErrConflict
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return err
	}
	s.rankings[rankingID] = ranking
	s.commitOutboxLocked(staged)
	return nil
}

func (s *Store) GetRanking(_ context.Context, rankingID string) (entities.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranking, ok := s.rankings[strings.TrimSpace(rankingID)]
	if !ok {
		return entities.Ranking{}, domainerrors.ErrRankingNotFound
	}
	return ranking, nil
}

func (s *Store) ListItems(_ context.Context, rankingID string) ([]entities.RankingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listItemsLocked(rankingID), nil
}

func (s *Store) listItemsLocked(rankingID string) []entities.RankingItem {
	rankingID = strings.TrimSpace(rankingID)
	items := make([]entities.RankingItem, 0)
	for _, item := range s.items {
		if item.RankingID == rankingID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ItemID < items[j].ItemID
	})
	return items
}

func (s *Store) GetItem(_ context.Context, itemID string) (entities.RankingItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[strings.TrimSpace(itemID)]
	if !ok {
		return entities.RankingItem{}, domainerrors.ErrItemNotFound
	}
	return item, nil
}

func (s *Store) AddItem(_ context.Context, item entities.RankingItem, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rankings[strings.TrimSpace(item.RankingID)]; !ok {
		return domainerrors.ErrRankingNotFound
	}
	itemID := strings.TrimSpace(item.ItemID)
	if _, exists := s.items[itemID]; exists {
		return domainerrors.ErrConflict
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return err
	}
	item.Position = 0
	s.items[itemID] = item
	s.commitOutboxLocked(staged)
	return nil
}

func (s *Store) UpdateItemScore(
	_ context.Context,
	itemID string,
	score float64,
	updatedAt time.Time,
	events ...ports.EventEnvelope,
) (entities.RankingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemID = strings.TrimSpace(itemID)
	item, ok := s.items[itemID]
	if !ok {
		return entities.RankingItem{}, domainerrors.ErrItemNotFound
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return entities.RankingItem{}, err
	}
	item.Score = score
	item.UpdatedAt = updatedAt.UTC()
	s.items[itemID] = item
	s.commitOutboxLocked(staged)
	return item, nil
}

func (s *Store) RemoveItem(_ context.Context, itemID string, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemID = strings.TrimSpace(itemID)
	if _, ok := s.items[itemID]; !ok {
		return domainerrors.ErrItemNotFound
	}
	staged, err := s.stageOutboxLocked(events)
	if err != nil {
		return err
	}
	delete(s.items, itemID)
	s.commitOutboxLocked(staged)
	return nil
}

// stageOutboxLocked builds outbox rows for events and rejects ID collisions
// before the caller mutates anything.
func (s *Store) stageOutboxLocked(events []ports.EventEnvelope) ([]ports.OutboxMessage, error) {
	staged := make([]ports.OutboxMessage, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return nil, err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if _, ok := s.outbox[outboxID]; ok {
			return nil, domainerrors.ErrConflict
		}
		if _, ok := seen[outboxID]; ok {
			return nil, domainerrors.ErrConflict
		}
		seen[outboxID] = struct{}{}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		staged = append(staged, ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		})
	}
	return staged, nil
}

func (s *Store) commitOutboxLocked(staged []ports.OutboxMessage) {
	for _, message := range staged {
		s.outboxSeq++
		s.outbox[message.OutboxID] = outboxRecord{seq: s.outboxSeq, message: message}
	}
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok {
		if existing.expiresAt.IsZero() || time.Now().UTC().Before(existing.expiresAt) {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
		delete(s.eventDedup, key)
	}
	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string, payloadHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok && existing.payloadHash == strings.TrimSpace(payloadHash) {
		delete(s.eventDedup, key)
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
