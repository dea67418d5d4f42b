package queries_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/adapters/memory"
	"cinetrack/contexts/community-engagement/poll-voting/application/commands"
	"cinetrack/contexts/community-engagement/poll-voting/application/queries"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

func newStore() *memory.Store {
	base := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	return memory.NewStore([]entities.Poll{
		{
			PollID:    "poll-old",
			Question:  "Old?",
			Options:   [entities.MaxOptions]string{"Yes", "No"},
			Active:    false,
			CreatedAt: base,
		},
		{
			PollID:    "poll-new",
			Question:  "New?",
			Options:   [entities.MaxOptions]string{"A", "B", "C"},
			Active:    true,
			CreatedAt: base.Add(time.Hour),
		},
	})
}

func TestGetPercentagesWithNoVotesIsAllZero(t *testing.T) {
	uc := queries.PollQueryUseCase{Polls: newStore()}
	results, err := uc.GetPercentages(context.Background(), "poll-new")
	if err != nil {
		t.Fatalf("get percentages failed: %v", err)
	}
	if results.TotalVotes != 0 || len(results.Options) != 3 {
		t.Fatalf("unexpected results %+v", results)
	}
	for _, item := range results.Options {
		if item.Percentage != 0 {
			t.Fatalf("expected 0%% for option %d, got %d", item.Option, item.Percentage)
		}
	}
	if _, err := uc.GetPercentages(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
}

func TestListPollsNewestFirstAndActiveFilter(t *testing.T) {
	uc := queries.PollQueryUseCase{Polls: newStore()}
	all, err := uc.ListPolls(context.Background(), false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 || all[0].PollID != "poll-new" {
		t.Fatalf("expected newest poll first, got %+v", all)
	}
	active, err := uc.ListPolls(context.Background(), true)
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if len(active) != 1 || active[0].PollID != "poll-new" {
		t.Fatalf("expected only the active poll, got %+v", active)
	}
}

func TestGetVoteDistinguishesNotVotedFromMissingPoll(t *testing.T) {
	store := newStore()
	uc := queries.PollQueryUseCase{Polls: store}
	votes := commands.VoteUseCase{Ledger: store, IDGen: store, RequireActivePoll: true}
	ctx := context.Background()

	if _, err := uc.GetVote(ctx, "poll-new", "user-1"); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected ErrVoteNotFound before voting, got %v", err)
	}
	if _, err := uc.GetVote(ctx, "missing", "user-1"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
	if _, err := votes.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-new", UserID: "user-1", Option: 3}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	vote, err := uc.GetVote(ctx, "poll-new", "user-1")
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if vote.SelectedOption != 3 {
		t.Fatalf("expected option 3, got %d", vote.SelectedOption)
	}
}

// driftingPolls reports one more ledger row than the counters hold.
type driftingPolls struct {
	ports.PollRepository
}

func (d driftingPolls) CountVotesByOption(ctx context.Context, pollID string) (map[int]int64, error) {
	counts, err := d.PollRepository.CountVotesByOption(ctx, pollID)
	if err != nil {
		return nil, err
	}
	counts[2]++
	return counts, nil
}

func TestVerifyTallyReportsConsistencyAndDrift(t *testing.T) {
	store := newStore()
	votes := commands.VoteUseCase{Ledger: store, IDGen: store, RequireActivePoll: true}
	ctx := context.Background()
	for i, user := range []string{"u1", "u2", "u3"} {
		if _, err := votes.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-new", UserID: user, Option: i%2 + 1}); err != nil {
			t.Fatalf("vote failed: %v", err)
		}
	}
	if _, err := votes.SubmitVote(ctx, commands.SubmitVoteCommand{PollID: "poll-new", UserID: "u1", Option: 3}); err != nil {
		t.Fatalf("change failed: %v", err)
	}

	report, err := queries.PollQueryUseCase{Polls: store}.VerifyTally(ctx, "poll-new")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !report.Consistent() || report.CounterTotal != 3 || report.LedgerTotal != 3 {
		t.Fatalf("expected consistent tally of 3, got %+v", report)
	}

	report, err = queries.PollQueryUseCase{Polls: driftingPolls{PollRepository: store}}.VerifyTally(ctx, "poll-new")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if report.Consistent() {
		t.Fatalf("expected drift to be reported, got %+v", report)
	}
}
