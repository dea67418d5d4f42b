package queries

import (
	"context"
	"strings"

	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

// PollResults is the display view of a poll: populated options only, in slot
// order, with their shares of the total.
type PollResults struct {
	PollID     string
	Question   string
	Active     bool
	TotalVotes int64
	Options    []entities.OptionResult
}

type PollQueryUseCase struct {
	Polls ports.PollRepository
}

func (uc PollQueryUseCase) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return uc.Polls.GetPoll(ctx, pollID)
}

func (uc PollQueryUseCase) ListPolls(ctx context.Context, activeOnly bool) ([]entities.Poll, error) {
	return uc.Polls.ListPolls(ctx, activeOnly)
}

func (uc PollQueryUseCase) GetPercentages(ctx context.Context, pollID string) (PollResults, error) {
	poll, err := uc.GetPoll(ctx, pollID)
	if err != nil {
		return PollResults{}, err
	}
	return PollResults{
		PollID:     poll.PollID,
		Question:   poll.Question,
		Active:     poll.Active,
		TotalVotes: poll.TotalVotes(),
		Options:    poll.Results(),
	}, nil
}

// GetVote returns ErrVoteNotFound when the user has not voted on the poll.
func (uc PollQueryUseCase) GetVote(ctx context.Context, pollID string, userID string) (entities.Vote, error) {
	pollID = strings.TrimSpace(pollID)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.Vote{}, domainerrors.ErrInvalidVoteInput
	}
	if _, err := uc.GetPoll(ctx, pollID); err != nil {
		return entities.Vote{}, err
	}
	return uc.Polls.GetVote(ctx, pollID, userID)
}

// VerifyTally compares each populated slot's counter with the number of ledger
// rows selecting it.
func (uc PollQueryUseCase) VerifyTally(ctx context.Context, pollID string) (entities.TallyReport, error) {
	poll, err := uc.GetPoll(ctx, pollID)
	if err != nil {
		return entities.TallyReport{}, err
	}
	ledger, err := uc.Polls.CountVotesByOption(ctx, poll.PollID)
	if err != nil {
		return entities.TallyReport{}, err
	}

	report := entities.TallyReport{
		PollID:  poll.PollID,
		Options: make([]entities.OptionTally, 0, entities.MaxOptions),
	}
	for option := 1; option <= entities.MaxOptions; option++ {
		counter := poll.VoteCounts[option-1]
		rows := ledger[option]
		if !poll.IsPopulated(option) && counter == 0 && rows == 0 {
			continue
		}
		report.CounterTotal += counter
		report.LedgerTotal += rows
		report.Options = append(report.Options, entities.OptionTally{
			Option:      option,
			Counter:     counter,
			LedgerVotes: rows,
		})
	}
	// Rows pointing outside 1..4 can only come from outside the coordinator.
	for option, rows := range ledger {
		if option < 1 || option > entities.MaxOptions {
			report.LedgerTotal += rows
		}
	}
	return report, nil
}
