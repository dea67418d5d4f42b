package commands_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/adapters/memory"
	"cinetrack/contexts/community-engagement/poll-voting/application/commands"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// flakyLedger fails the first `failures` scopes with a transient conflict.
type flakyLedger struct {
	inner    ports.VoteLedger
	failures int
	calls    int
}

func (l *flakyLedger) WithinVoteScope(
	ctx context.Context,
	pollID string,
	userID string,
	fn func(tx ports.VoteTx) error,
) error {
	l.calls++
	if l.calls <= l.failures {
		return domainerrors.ErrConflict
	}
	return l.inner.WithinVoteScope(ctx, pollID, userID, fn)
}

func seedPoll(options ...string) entities.Poll {
	poll := entities.Poll{
		PollID:    "poll-1",
		OwnerID:   "owner-1",
		Question:  "Best sci-fi of the decade?",
		Active:    true,
		CreatedAt: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
	copy(poll.Options[:], options)
	return poll
}

func newVoteUseCase(store *memory.Store) commands.VoteUseCase {
	return commands.VoteUseCase{
		Ledger:            store,
		Clock:             fixedClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)},
		IDGen:             store,
		RequireActivePoll: true,
	}
}

func counters(t *testing.T, store *memory.Store) [entities.MaxOptions]int64 {
	t.Helper()
	poll, err := store.GetPoll(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	return poll.VoteCounts
}

func percentages(t *testing.T, store *memory.Store) []int {
	t.Helper()
	poll, err := store.GetPoll(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	items := make([]int, 0, entities.MaxOptions)
	for _, item := range poll.Results() {
		items = append(items, item.Percentage)
	}
	return items
}

func TestSubmitVoteFirstVoteChangeAndRepeat(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B")})
	uc := newVoteUseCase(store)
	ctx := context.Background()

	steps := []struct {
		user     string
		option   int
		outcome  entities.VoteOutcome
		counters [entities.MaxOptions]int64
		percents []int
	}{
		{user: "user-1", option: 1, outcome: entities.VoteOutcomeFirstVote, counters: [4]int64{1, 0, 0, 0}, percents: []int{100, 0}},
		{user: "user-2", option: 2, outcome: entities.VoteOutcomeFirstVote, counters: [4]int64{1, 1, 0, 0}, percents: []int{50, 50}},
		{user: "user-1", option: 2, outcome: entities.VoteOutcomeChanged, counters: [4]int64{0, 2, 0, 0}, percents: []int{0, 100}},
		{user: "user-1", option: 2, outcome: entities.VoteOutcomeUnchanged, counters: [4]int64{0, 2, 0, 0}, percents: []int{0, 100}},
	}
	for i, step := range steps {
		result, err := uc.SubmitVote(ctx, commands.SubmitVoteCommand{
			PollID: "poll-1",
			UserID: step.user,
			Option: step.option,
		})
		if err != nil {
			t.Fatalf("step %d: submit vote failed: %v", i, err)
		}
		if result.Outcome != step.outcome {
			t.Fatalf("step %d: expected outcome %s, got %s", i, step.outcome, result.Outcome)
		}
		if result.Poll.VoteCounts != step.counters {
			t.Fatalf("step %d: expected result counters %v, got %v", i, step.counters, result.Poll.VoteCounts)
		}
		if got := counters(t, store); got != step.counters {
			t.Fatalf("step %d: expected stored counters %v, got %v", i, step.counters, got)
		}
		got := percentages(t, store)
		if fmt.Sprint(got) != fmt.Sprint(step.percents) {
			t.Fatalf("step %d: expected percentages %v, got %v", i, step.percents, got)
		}
	}

	rows := store.ListVotes("poll-1")
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}
	if rows[0].UserID != "user-1" || rows[0].SelectedOption != 2 {
		t.Fatalf("expected user-1 to hold option 2, got %+v", rows[0])
	}
}

func TestSubmitVoteRepeatWritesNoEvent(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B")})
	uc := newVoteUseCase(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := uc.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 1}); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "poll.vote_cast" {
		t.Fatalf("expected a single poll.vote_cast event, got %+v", pending)
	}

	if _, err := uc.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 2}); err != nil {
		t.Fatalf("change vote failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 2 || pending[1].EventType != "poll.vote_changed" {
		t.Fatalf("expected poll.vote_changed after the change, got %+v", pending)
	}
}

func TestSubmitVoteRejectsBadInputWithoutMutation(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B")})
	uc := newVoteUseCase(store)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  commands.SubmitVoteCommand
		want error
	}{
		{name: "option zero", cmd: commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 0}, want: domainerrors.ErrInvalidOption},
		{name: "option five", cmd: commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 5}, want: domainerrors.ErrInvalidOption},
		{name: "unpopulated slot", cmd: commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 3}, want: domainerrors.ErrInvalidOption},
		{name: "missing user", cmd: commands.SubmitVoteCommand{PollID: "poll-1", UserID: " ", Option: 1}, want: domainerrors.ErrInvalidVoteInput},
		{name: "unknown poll", cmd: commands.SubmitVoteCommand{PollID: "poll-404", UserID: "user-1", Option: 1}, want: domainerrors.ErrPollNotFound},
		{name: "unknown poll with out of range option", cmd: commands.SubmitVoteCommand{PollID: "poll-404", UserID: "user-1", Option: 7}, want: domainerrors.ErrPollNotFound},
	}
	for _, tc := range cases {
		if _, err := uc.SubmitVote(ctx, tc.cmd); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if got := counters(t, store); got != [4]int64{} {
		t.Fatalf("expected untouched counters, got %v", got)
	}
	if rows := store.ListVotes("poll-1"); len(rows) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(rows))
	}
}

func TestSubmitVoteActivePollGuard(t *testing.T) {
	inactive := seedPoll("A", "B")
	inactive.Active = false

	store := memory.NewStore([]entities.Poll{inactive})
	uc := newVoteUseCase(store)
	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 1})
	if !errors.Is(err, domainerrors.ErrPollInactive) {
		t.Fatalf("expected ErrPollInactive, got %v", err)
	}
	if got := counters(t, store); got != [4]int64{} {
		t.Fatalf("expected untouched counters, got %v", got)
	}

	uc.RequireActivePoll = false
	result, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 1})
	if err != nil {
		t.Fatalf("expected vote to pass with guard disabled, got %v", err)
	}
	if result.Poll.VoteCounts[0] != 1 {
		t.Fatalf("expected counter 1, got %d", result.Poll.VoteCounts[0])
	}
}

func TestSubmitVoteRetriesConflictOnce(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B")})
	ledger := &flakyLedger{inner: store, failures: 1}
	uc := newVoteUseCase(store)
	uc.Ledger = ledger

	if _, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 1}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if ledger.calls != 2 {
		t.Fatalf("expected 2 scope attempts, got %d", ledger.calls)
	}

	ledger = &flakyLedger{inner: store, failures: 2}
	uc.Ledger = ledger
	_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-2", Option: 2})
	if !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict after retry budget, got %v", err)
	}
	if ledger.calls != 2 {
		t.Fatalf("expected retry budget of one, got %d attempts", ledger.calls)
	}
	if got := counters(t, store); got != [4]int64{1, 0, 0, 0} {
		t.Fatalf("expected failed vote to leave counters alone, got %v", got)
	}
}

func TestSubmitVoteCancelledContextCommitsNothing(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B")})
	uc := newVoteUseCase(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := uc.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-1", UserID: "user-1", Option: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := counters(t, store); got != [4]int64{} {
		t.Fatalf("expected untouched counters, got %v", got)
	}
	if _, err := store.GetVote(context.Background(), "poll-1", "user-1"); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected no ledger row, got %v", err)
	}
}

func TestSubmitVoteCountersMatchDistinctVoters(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B", "C", "D")})
	uc := newVoteUseCase(store)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		user := fmt.Sprintf("user-%d", rng.Intn(25))
		option := rng.Intn(entities.MaxOptions) + 1
		before := counters(t, store)
		result, err := uc.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-1", UserID: user, Option: option})
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}

		var total int64
		for _, value := range result.Poll.VoteCounts {
			total += value
		}
		if voters := int64(len(store.ListVotes("poll-1"))); total != voters {
			t.Fatalf("iteration %d: counter total %d differs from %d voters", i, total, voters)
		}
		if result.Outcome == entities.VoteOutcomeUnchanged && result.Poll.VoteCounts != before {
			t.Fatalf("iteration %d: repeat vote moved counters %v -> %v", i, before, result.Poll.VoteCounts)
		}
	}
}

func TestSubmitVoteConcurrentSameUserConvergesToOneRow(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B", "C")})
	uc := newVoteUseCase(store)

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			if _, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
				PollID: "poll-1",
				UserID: "user-1",
				Option: option,
			}); err != nil {
				t.Errorf("concurrent submit failed: %v", err)
			}
		}(i%3 + 1)
	}
	wg.Wait()

	rows := store.ListVotes("poll-1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	got := counters(t, store)
	if got[0]+got[1]+got[2]+got[3] != 1 {
		t.Fatalf("expected counter total 1, got %v", got)
	}
	if got[rows[0].SelectedOption-1] != 1 {
		t.Fatalf("expected counter on option %d, got %v", rows[0].SelectedOption, got)
	}
}

func TestSubmitVoteConcurrentDistinctUsersCountExactly(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedPoll("A", "B")})
	uc := newVoteUseCase(store)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{
				PollID: "poll-1",
				UserID: fmt.Sprintf("user-%d", i),
				Option: i%2 + 1,
			}); err != nil {
				t.Errorf("concurrent submit failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := counters(t, store); got != [4]int64{50, 50, 0, 0} {
		t.Fatalf("expected counters [50 50 0 0], got %v", got)
	}
}
