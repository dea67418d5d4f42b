package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "cinetrack/contexts/community-engagement/ranking-engine/application"
	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

// RecalculateUseCase is the only writer of item positions.
type RecalculateUseCase struct {
	Ledger ports.RankingLedger
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// RecalculatePositions re-derives dense positions for every item of the
// ranking. A ranking without items succeeds without writing anything; callers
// that need to tell an unknown ranking from an empty one look it up first.
func (uc RecalculateUseCase) RecalculatePositions(ctx context.Context, rankingID string) (entities.Recalculation, error) {
	logger := application.ResolveLogger(uc.Logger)
	rankingID = strings.TrimSpace(rankingID)
	if rankingID == "" {
		return entities.Recalculation{}, domainerrors.ErrInvalidRankingInput
	}

	var result entities.Recalculation
	attempt := func() error {
		return uc.Ledger.WithinRankingScope(ctx, rankingID, func(tx ports.RecalcTx) error {
			applied, err := uc.recalculate(ctx, tx, rankingID)
			if err != nil {
				return err
			}
			result = applied
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, domainerrors.ErrConflict) && ctx.Err() == nil {
		logger.Warn("ranking recalculation conflicted; retrying once",
			"event", "ranking_recalculate_retry",
			"module", "community-engagement/ranking-engine",
			"layer", "application",
			"ranking_id", rankingID,
		)
		err = attempt()
	}
	if err != nil {
		logger.Error("ranking recalculation failed",
			"event", "ranking_recalculate_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "application",
			"ranking_id", rankingID,
			"error", err.Error(),
		)
		return entities.Recalculation{}, err
	}

	logger.Info("ranking positions recalculated",
		"event", "ranking_recalculated",
		"module", "community-engagement/ranking-engine",
		"layer", "application",
		"ranking_id", rankingID,
		"item_count", result.ItemCount,
		"changed_count", result.ChangedCount(),
	)
	return result, nil
}

func (uc RecalculateUseCase) recalculate(
	ctx context.Context,
	tx ports.RecalcTx,
	rankingID string,
) (entities.Recalculation, error) {
	items, err := tx.LockItems(ctx, rankingID)
	if err != nil {
		return entities.Recalculation{}, err
	}
	result := entities.Recalculation{
		RankingID: rankingID,
		ItemCount: len(items),
	}
	if len(items) == 0 {
		return result, nil
	}

	ordered := entities.AssignPositions(items)
	result.Changes = entities.DiffPositions(items, ordered)
	if len(result.Changes) == 0 {
		return result, nil
	}

	now := uc.now()
	if err := tx.UpdatePositions(ctx, rankingID, result.Changes, now); err != nil {
		return entities.Recalculation{}, err
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Recalculation{}, err
	}
	positions := make([]map[string]any, 0, len(ordered))
	for _, item := range ordered {
		positions = append(positions, map[string]any{
			"item_id":  item.ItemID,
			"position": item.Position,
			"score":    item.Score,
		})
	}
	envelope, err := newRankingEnvelope(eventID, eventPositionsRecalculated, rankingID, now, map[string]any{
		"ranking_id":    rankingID,
		"item_count":    result.ItemCount,
		"changed_count": result.ChangedCount(),
		"positions":     positions,
	})
	if err != nil {
		return entities.Recalculation{}, err
	}
	if err := tx.AppendOutbox(ctx, envelope); err != nil {
		return entities.Recalculation{}, err
	}
	return result, nil
}

func (uc RecalculateUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
