//go:build integration

package postgresadapter_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	postgresadapter "cinetrack/contexts/community-engagement/poll-voting/adapters/postgres"
	"cinetrack/contexts/community-engagement/poll-voting/application/commands"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
	"cinetrack/internal/platform/db"

	"github.com/google/uuid"
)

// Run with: CINETRACK_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./...
func newRepository(t *testing.T) *postgresadapter.Repository {
	t.Helper()
	dsn := os.Getenv("CINETRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CINETRACK_TEST_POSTGRES_DSN not set")
	}
	pg, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })
	migrator, err := db.NewMigrator(pg)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := migrator.Up(0); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return postgresadapter.NewRepository(pg.DB, nil)
}

func createPoll(t *testing.T, repo *postgresadapter.Repository, options ...string) string {
	t.Helper()
	poll := entities.Poll{
		PollID:    uuid.NewString(),
		OwnerID:   "owner-1",
		Question:  "Best film?",
		Active:    true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	copy(poll.Options[:], options)
	if err := repo.CreatePoll(context.Background(), poll); err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return poll.PollID
}

func newVoteUseCase(repo *postgresadapter.Repository) commands.VoteUseCase {
	return commands.VoteUseCase{
		Ledger:            repo,
		Clock:             postgresadapter.SystemClock{},
		IDGen:             postgresadapter.UUIDGenerator{},
		RequireActivePoll: true,
	}
}

func TestConcurrentVotesFromOneUserKeepOneLedgerRow(t *testing.T) {
	repo := newRepository(t)
	pollID := createPoll(t, repo, "A", "B", "C", "D")
	uc := newVoteUseCase(repo)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(option int) {
			defer wg.Done()
			_, err := uc.SubmitVote(context.Background(), commands.SubmitVoteCommand{PollID: pollID, UserID: "user-1", Option: option})
			if err != nil && !errors.Is(err, domainerrors.ErrConflict) {
				t.Errorf("submit option %d: %v", option, err)
			}
		}(i%4 + 1)
	}
	wg.Wait()

	vote, err := repo.GetVote(context.Background(), pollID, "user-1")
	if err != nil {
		t.Fatalf("get vote: %v", err)
	}
	poll, _ := repo.GetPoll(context.Background(), pollID)
	if poll.TotalVotes() != 1 || poll.VoteCounts[vote.SelectedOption-1] != 1 {
		t.Fatalf("expected one counted vote on option %d, got %v", vote.SelectedOption, poll.VoteCounts)
	}
	rows, _ := repo.CountVotesByOption(context.Background(), pollID)
	if len(rows) != 1 || rows[vote.SelectedOption] != 1 {
		t.Fatalf("expected one ledger row, got %v", rows)
	}
}

func TestConcurrentVotesFromDistinctUsersCountExactly(t *testing.T) {
	repo := newRepository(t)
	pollID := createPoll(t, repo, "A", "B")
	uc := newVoteUseCase(repo)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := commands.SubmitVoteCommand{PollID: pollID, UserID: fmt.Sprintf("user-%d", i), Option: i%2 + 1}
			if _, err := uc.SubmitVote(context.Background(), cmd); err != nil {
				t.Errorf("submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	poll, _ := repo.GetPoll(context.Background(), pollID)
	if poll.VoteCounts[0] != 10 || poll.VoteCounts[1] != 10 {
		t.Fatalf("expected 10/10, got %v", poll.VoteCounts)
	}
}

func TestShiftCountersNeverDropsBelowZero(t *testing.T) {
	repo := newRepository(t)
	pollID := createPoll(t, repo, "A", "B")
	ctx := context.Background()

	err := repo.WithinVoteScope(ctx, pollID, "user-1", func(tx ports.VoteTx) error {
		return tx.ShiftCounters(ctx, pollID, 1, 2)
	})
	if err != nil {
		t.Fatalf("shift: %v", err)
	}
	poll, _ := repo.GetPoll(ctx, pollID)
	if poll.VoteCounts[0] != 0 || poll.VoteCounts[1] != 1 {
		t.Fatalf("expected [0 1], got %v", poll.VoteCounts)
	}
}

func TestVoteScopeRollsBackOnError(t *testing.T) {
	repo := newRepository(t)
	pollID := createPoll(t, repo, "A", "B")
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithinVoteScope(ctx, pollID, "user-1", func(tx ports.VoteTx) error {
		if _, err := tx.InsertVote(ctx, entities.Vote{PollID: pollID, UserID: "user-1", SelectedOption: 1, CreatedAt: time.Now(), VotedAt: time.Now()}); err != nil {
			return err
		}
		if err := tx.ShiftCounters(ctx, pollID, 0, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.GetVote(ctx, pollID, "user-1"); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected no ledger row, got %v", err)
	}
	poll, _ := repo.GetPoll(ctx, pollID)
	if poll.TotalVotes() != 0 {
		t.Fatalf("expected zero counters, got %v", poll.VoteCounts)
	}
}
