package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"cinetrack/contexts/community-engagement/poll-voting/application/commands"
	"cinetrack/contexts/community-engagement/poll-voting/application/queries"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	httptransport "cinetrack/contexts/community-engagement/poll-voting/transport/http"
)

type Handler struct {
	Votes  commands.VoteUseCase
	Admin  commands.PollAdminUseCase
	Polls  queries.PollQueryUseCase
	Logger *slog.Logger
}

func (h Handler) CreatePollHandler(
	ctx context.Context,
	ownerID string,
	req httptransport.CreatePollRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Admin.CreatePoll(ctx, commands.CreatePollCommand{
		OwnerID:  ownerID,
		Question: req.Question,
		Options:  req.Options,
		Active:   req.Active,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

func (h Handler) ListPollsHandler(ctx context.Context, activeOnly bool) (httptransport.ListPollsResponse, error) {
	polls, err := h.Polls.ListPolls(ctx, activeOnly)
	if err != nil {
		return httptransport.ListPollsResponse{}, err
	}
	items := make([]httptransport.PollResponse, 0, len(polls))
	for _, poll := range polls {
		items = append(items, mapPoll(poll))
	}
	return httptransport.ListPollsResponse{Items: items}, nil
}

func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	poll, err := h.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

func (h Handler) PollResultsHandler(ctx context.Context, pollID string) (httptransport.PollResultsResponse, error) {
	results, err := h.Polls.GetPercentages(ctx, pollID)
	if err != nil {
		return httptransport.PollResultsResponse{}, err
	}
	options := make([]httptransport.OptionPercentage, 0, len(results.Options))
	for _, item := range results.Options {
		options = append(options, httptransport.OptionPercentage{
			Option:     item.Option,
			Text:       item.Text,
			Votes:      item.Votes,
			Percentage: item.Percentage,
		})
	}
	return httptransport.PollResultsResponse{
		PollID:     results.PollID,
		Question:   results.Question,
		Active:     results.Active,
		TotalVotes: results.TotalVotes,
		Options:    options,
	}, nil
}

func (h Handler) TallyHandler(ctx context.Context, pollID string) (httptransport.TallyResponse, error) {
	report, err := h.Polls.VerifyTally(ctx, pollID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	options := make([]httptransport.OptionTally, 0, len(report.Options))
	for _, item := range report.Options {
		options = append(options, httptransport.OptionTally{
			Option:      item.Option,
			Counter:     item.Counter,
			LedgerVotes: item.LedgerVotes,
		})
	}
	return httptransport.TallyResponse{
		PollID:       report.PollID,
		CounterTotal: report.CounterTotal,
		LedgerTotal:  report.LedgerTotal,
		Consistent:   report.Consistent(),
		Options:      options,
	}, nil
}

func (h Handler) SetPollActiveHandler(
	ctx context.Context,
	pollID string,
	req httptransport.SetPollActiveRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Admin.SetPollActive(ctx, commands.SetPollActiveCommand{
		PollID: pollID,
		Active: req.Active,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

func (h Handler) DeletePollHandler(ctx context.Context, pollID string) error {
	return h.Admin.DeletePoll(ctx, pollID)
}

func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	pollID string,
	userID string,
	req httptransport.SubmitVoteRequest,
) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Votes.SubmitVote(ctx, commands.SubmitVoteCommand{
		PollID: pollID,
		UserID: userID,
		Option: req.Option,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{
		Vote:    mapVote(result.Vote),
		Outcome: string(result.Outcome),
		Poll:    mapPoll(result.Poll),
	}, nil
}

func (h Handler) GetVoteHandler(ctx context.Context, pollID string, userID string) (httptransport.VoteResponse, error) {
	vote, err := h.Polls.GetVote(ctx, pollID, userID)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote), nil
}

func mapPoll(poll entities.Poll) httptransport.PollResponse {
	options := make([]httptransport.PollOption, 0, entities.MaxOptions)
	for _, item := range poll.Results() {
		options = append(options, httptransport.PollOption{
			Option: item.Option,
			Text:   item.Text,
			Votes:  item.Votes,
		})
	}
	return httptransport.PollResponse{
		PollID:     poll.PollID,
		OwnerID:    poll.OwnerID,
		Question:   poll.Question,
		Options:    options,
		TotalVotes: poll.TotalVotes(),
		Active:     poll.Active,
		CreatedAt:  poll.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  poll.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapVote(vote entities.Vote) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		PollID:         vote.PollID,
		UserID:         vote.UserID,
		SelectedOption: vote.SelectedOption,
		VotedAt:        vote.VotedAt.UTC().Format(time.RFC3339),
	}
}
