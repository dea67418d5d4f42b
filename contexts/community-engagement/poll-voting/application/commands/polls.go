package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "cinetrack/contexts/community-engagement/poll-voting/application"
	"cinetrack/contexts/community-engagement/poll-voting/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	"cinetrack/contexts/community-engagement/poll-voting/ports"
)

type CreatePollCommand struct {
	OwnerID  string
	Question string
	Options  []string
	Active   *bool
}

type SetPollActiveCommand struct {
	PollID string
	Active bool
}

// PollAdminUseCase owns poll definitions. It never touches counters; those
// belong to VoteUseCase.
type PollAdminUseCase struct {
	Polls  ports.PollRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc PollAdminUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	ownerID := strings.TrimSpace(cmd.OwnerID)
	question := strings.TrimSpace(cmd.Question)
	slots, count := entities.NormalizeOptions(cmd.Options)
	if ownerID == "" || question == "" || count < entities.MinOptions || count > entities.MaxOptions {
		logger.Warn("poll create validation failed",
			"event", "poll_create_validation_failed",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"owner_id", ownerID,
			"option_count", count,
		)
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Poll{}, err
	}
	active := true
	if cmd.Active != nil {
		active = *cmd.Active
	}
	now := uc.now()
	poll := entities.Poll{
		PollID:    pollID,
		OwnerID:   ownerID,
		Question:  question,
		Options:   slots,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Poll{}, err
	}
	envelope, err := newPollEnvelope(eventID, eventPollCreated, pollID, now, map[string]any{
		"poll_id":      pollID,
		"owner_id":     ownerID,
		"question":     question,
		"option_count": count,
		"active":       active,
	})
	if err != nil {
		return entities.Poll{}, err
	}
	if err := uc.Polls.CreatePoll(ctx, poll, envelope); err != nil {
		logger.Error("poll create failed",
			"event", "poll_create_failed",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.Poll{}, err
	}

	logger.Info("poll created",
		"event", "poll_created",
		"module", "community-engagement/poll-voting",
		"layer", "application",
		"poll_id", pollID,
		"owner_id", ownerID,
		"option_count", count,
		"active", active,
	)
	return poll, nil
}

func (uc PollAdminUseCase) SetPollActive(ctx context.Context, cmd SetPollActiveCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	if pollID == "" {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	now := uc.now()
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Poll{}, err
	}
	envelope, err := newPollEnvelope(eventID, eventPollActivationChanged, pollID, now, map[string]any{
		"poll_id": pollID,
		"active":  cmd.Active,
	})
	if err != nil {
		return entities.Poll{}, err
	}
	poll, err := uc.Polls.SetPollActive(ctx, pollID, cmd.Active, now, envelope)
	if err != nil {
		logger.Warn("poll activation change failed",
			"event", "poll_activation_change_failed",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return entities.Poll{}, err
	}

	logger.Info("poll activation changed",
		"event", "poll_activation_changed",
		"module", "community-engagement/poll-voting",
		"layer", "application",
		"poll_id", pollID,
		"active", poll.Active,
	)
	return poll, nil
}

// DeletePoll removes the poll together with its ledger rows.
func (uc PollAdminUseCase) DeletePoll(ctx context.Context, pollID string) error {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return domainerrors.ErrInvalidPollInput
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newPollEnvelope(eventID, eventPollDeleted, pollID, uc.now(), map[string]any{
		"poll_id": pollID,
	})
	if err != nil {
		return err
	}
	if err := uc.Polls.DeletePoll(ctx, pollID, envelope); err != nil {
		logger.Warn("poll delete failed",
			"event", "poll_delete_failed",
			"module", "community-engagement/poll-voting",
			"layer", "application",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("poll deleted",
		"event", "poll_deleted",
		"module", "community-engagement/poll-voting",
		"layer", "application",
		"poll_id", pollID,
	)
	return nil
}

func (uc PollAdminUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
