package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "cinetrack/contexts/community-engagement/poll-voting/application"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

// SubmitVoteCommand carries a 1-based option index.
type SubmitVoteCommand struct {
	PollID string
	UserID string
	Option int
}

// SubmitVoteResult reports the ledger row after the vote, whether it was a
// first vote or a change, and the poll counters as committed.
type SubmitVoteResult struct {
	Vote    entities.Vote
	Outcome entities.VoteOutcome
	Poll    entities.Poll
}

// VoteUseCase is the vote coordinator. It is the only writer of the vote
// ledger and of the poll counters.
type VoteUseCase struct {
	Ledger            ports.VoteLedger
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	RequireActivePoll bool
	Logger            *slog.Logger
}

// SubmitVote applies a first vote, a vote change or a repeat vote for
// (poll, user) inside one vote scope. A transient storage conflict is retried
// once; a second conflict is returned to the caller.
func (uc VoteUseCase) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	userID := strings.TrimSpace(cmd.UserID)
	logger.Info("vote submit processing started",
		"event", "poll_vote_submit_started",
		"module", "community-engagement/poll-voting",
		"layer", "application",
		"poll_id", pollID,
		"user_id", userID,
		"option", cmd.Option,
	)
	if pollID == "" || userID == "" {
		logger.Warn("vote submit validation failed",
			"event", "poll_vote_submit_validation_failed",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"poll_id", pollID,
			"user_id", userID,
		)
		return SubmitVoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	var result SubmitVoteResult
	attempt := func() error {
		return uc.Ledger.WithinVoteScope(ctx, pollID, userID, func(tx ports.VoteTx) error {
			applied, err := uc.applyVote(ctx, tx, pollID, userID, cmd.Option)
			if err != nil {
				return err
			}
			result = applied
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, domainerrors.ErrConflict) && ctx.Err() == nil {
		logger.Warn("vote submit conflicted; retrying once",
			"event", "poll_vote_submit_retry",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"poll_id", pollID,
			"user_id", userID,
		)
		err = attempt()
	}
	if err != nil {
		logger.Warn("vote submit failed",
			"event", "poll_vote_submit_failed",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"poll_id", pollID,
			"user_id", userID,
			"option", cmd.Option,
			"error", err.Error(),
		)
		return SubmitVoteResult{}, err
	}

	logger.Info("vote submitted",
		"event", "poll_vote_submitted",
		"module", "community-engagement/poll-voting",
		"layer", "application",
		"poll_id", pollID,
		"user_id", userID,
		"option", result.Vote.SelectedOption,
		"outcome", string(result.Outcome),
		"total_votes", result.Poll.TotalVotes(),
	)
	return result, nil
}

func (uc VoteUseCase) applyVote(
	ctx context.Context,
	tx ports.VoteTx,
	pollID string,
	userID string,
	option int,
) (SubmitVoteResult, error) {
	poll, err := tx.GetPoll(ctx, pollID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	// Range and slot checks need the poll, so an unknown poll wins over a bad option.
	if !poll.IsPopulated(option) {
		return SubmitVoteResult{}, domainerrors.ErrInvalidOption
	}
	if uc.RequireActivePoll && !poll.Active {
		return SubmitVoteResult{}, domainerrors.ErrPollInactive
	}

	now := uc.now()
	existing, found, err := tx.LockVote(ctx, pollID, userID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if !found {
		vote := entities.Vote{
			PollID:         pollID,
			UserID:         userID,
			SelectedOption: option,
			CreatedAt:      now,
			VotedAt:        now,
		}
		inserted, err := tx.InsertVote(ctx, vote)
		if err != nil {
			return SubmitVoteResult{}, err
		}
		if inserted {
			if err := tx.ShiftCounters(ctx, pollID, 0, option); err != nil {
				return SubmitVoteResult{}, err
			}
			if err := uc.appendVoteEvent(ctx, tx, eventVoteCast, vote, 0, now); err != nil {
				return SubmitVoteResult{}, err
			}
			return uc.finish(ctx, tx, vote, entities.VoteOutcomeFirstVote)
		}

		// A concurrent scope created the row between the lookup and the insert;
		// continue as a change against the committed row.
		existing, found, err = tx.LockVote(ctx, pollID, userID)
		if err != nil {
			return SubmitVoteResult{}, err
		}
		if !found {
			return SubmitVoteResult{}, domainerrors.ErrConflict
		}
	}

	if existing.SelectedOption == option {
		return uc.finish(ctx, tx, existing, entities.VoteOutcomeUnchanged)
	}

	previous := existing.SelectedOption
	existing.SelectedOption = option
	existing.VotedAt = now
	if err := tx.UpdateVote(ctx, existing); err != nil {
		return SubmitVoteResult{}, err
	}
	if err := tx.ShiftCounters(ctx, pollID, previous, option); err != nil {
		return SubmitVoteResult{}, err
	}
	if err := uc.appendVoteEvent(ctx, tx, eventVoteChanged, existing, previous, now); err != nil {
		return SubmitVoteResult{}, err
	}
	return uc.finish(ctx, tx, existing, entities.VoteOutcomeChanged)
}

func (uc VoteUseCase) finish(
	ctx context.Context,
	tx ports.VoteTx,
	vote entities.Vote,
	outcome entities.VoteOutcome,
) (SubmitVoteResult, error) {
	poll, err := tx.GetPoll(ctx, vote.PollID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	return SubmitVoteResult{Vote: vote, Outcome: outcome, Poll: poll}, nil
}

func (uc VoteUseCase) appendVoteEvent(
	ctx context.Context,
	tx ports.VoteTx,
	eventType string,
	vote entities.Vote,
	previousOption int,
	occurredAt time.Time,
) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"poll_id":         vote.PollID,
		"user_id":         vote.UserID,
		"selected_option": vote.SelectedOption,
		"voted_at":        vote.VotedAt.UTC().Format(time.RFC3339),
	}
	if previousOption > 0 {
		data["previous_option"] = previousOption
	}
	envelope, err := newPollEnvelope(eventID, eventType, vote.PollID, occurredAt, data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
