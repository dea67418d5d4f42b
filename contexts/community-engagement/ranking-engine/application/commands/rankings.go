package commands

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	application "cinetrack/contexts/community-engagement/ranking-engine/application"
	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

type CreateRankingCommand struct {
	Title string
	Type  string
}

type AddItemCommand struct {
	RankingID string
	SubjectID string
	Score     float64
}

type UpdateItemScoreCommand struct {
	RankingID string
	ItemID    string
	Score     float64
}

// ItemMutationResult carries the item as placed by the recalculation that
// followed the mutation.
type ItemMutationResult struct {
	Item          entities.RankingItem
	Recalculation entities.Recalculation
}

// RankingAdminUseCase applies score-affecting mutations and recalculates
// positions right after each one.
type RankingAdminUseCase struct {
	Rankings     ports.RankingRepository
	Recalculator RecalculateUseCase
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger
}

func (uc RankingAdminUseCase) CreateRanking(ctx context.Context, cmd CreateRankingCommand) (entities.Ranking, error) {
	logger := application.ResolveLogger(uc.Logger)
	title := strings.TrimSpace(cmd.Title)
	rankingType := strings.TrimSpace(cmd.Type)
	if title == "" || rankingType == "" {
		return entities.Ranking{}, domainerrors.ErrInvalidRankingInput
	}

	rankingID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ranking{}, err
	}
	now := uc.now()
	ranking := entities.Ranking{
		RankingID: rankingID,
		Title:     title,
		Type:      rankingType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	envelope, err := uc.envelope(ctx, eventRankingCreated, rankingID, now, map[string]any{
		"ranking_id": rankingID,
		"title":      title,
		"type":       rankingType,
	})
	if err != nil {
		return entities.Ranking{}, err
	}
	if err := uc.Rankings.CreateRanking(ctx, ranking, envelope); err != nil {
		return entities.Ranking{}, err
	}

	logger.Info("ranking created",
		"event", "ranking_created",
		"module", "community-engagement/ranking-engine",
		"layer", "application",
		"ranking_id", rankingID,
		"type", rankingType,
	)
	return ranking, nil
}

func (uc RankingAdminUseCase) AddItem(ctx context.Context, cmd AddItemCommand) (ItemMutationResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	rankingID := strings.TrimSpace(cmd.RankingID)
	subjectID := strings.TrimSpace(cmd.SubjectID)
	if rankingID == "" || subjectID == "" || !validScore(cmd.Score) {
		return ItemMutationResult{}, domainerrors.ErrInvalidItemInput
	}
	if _, err := uc.Rankings.GetRanking(ctx, rankingID); err != nil {
		return ItemMutationResult{}, err
	}

	itemID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ItemMutationResult{}, err
	}
	now := uc.now()
	item := entities.RankingItem{
		ItemID:    itemID,
		RankingID: rankingID,
		SubjectID: subjectID,
		Score:     cmd.Score,
		CreatedAt: now,
		UpdatedAt: now,
	}
	envelope, err := uc.envelope(ctx, eventItemAdded, rankingID, now, map[string]any{
		"ranking_id": rankingID,
		"item_id":    itemID,
		"subject_id": subjectID,
		"score":      cmd.Score,
	})
	if err != nil {
		return ItemMutationResult{}, err
	}
	if err := uc.Rankings.AddItem(ctx, item, envelope); err != nil {
		logger.Warn("ranking item add failed",
			"event", "ranking_item_add_failed",
			"module", "community-engagement/ranking-engine",
			"layer", "application",
			"ranking_id", rankingID,
			"subject_id", subjectID,
			"error", err.Error(),
		)
		return ItemMutationResult{}, err
	}
	return uc.recalculateAfter(ctx, rankingID, itemID)
}

func (uc RankingAdminUseCase) UpdateItemScore(ctx context.Context, cmd UpdateItemScoreCommand) (ItemMutationResult, error) {
	rankingID := strings.TrimSpace(cmd.RankingID)
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" || !validScore(cmd.Score) {
		return ItemMutationResult{}, domainerrors.ErrInvalidItemInput
	}
	item, err := uc.ownedItem(ctx, rankingID, itemID)
	if err != nil {
		return ItemMutationResult{}, err
	}

	now := uc.now()
	envelope, err := uc.envelope(ctx, eventItemScoreChanged, item.RankingID, now, map[string]any{
		"ranking_id":     item.RankingID,
		"item_id":        itemID,
		"previous_score": item.Score,
		"score":          cmd.Score,
	})
	if err != nil {
		return ItemMutationResult{}, err
	}
	if _, err := uc.Rankings.UpdateItemScore(ctx, itemID, cmd.Score, now, envelope); err != nil {
		return ItemMutationResult{}, err
	}
	return uc.recalculateAfter(ctx, item.RankingID, itemID)
}

func (uc RankingAdminUseCase) RemoveItem(ctx context.Context, rankingID string, itemID string) (entities.Recalculation, error) {
	rankingID = strings.TrimSpace(rankingID)
	itemID = strings.TrimSpace(itemID)
	item, err := uc.ownedItem(ctx, rankingID, itemID)
	if err != nil {
		return entities.Recalculation{}, err
	}

	envelope, err := uc.envelope(ctx, eventItemRemoved, item.RankingID, uc.now(), map[string]any{
		"ranking_id": item.RankingID,
		"item_id":    itemID,
		"subject_id": item.SubjectID,
	})
	if err != nil {
		return entities.Recalculation{}, err
	}
	if err := uc.Rankings.RemoveItem(ctx, itemID, envelope); err != nil {
		return entities.Recalculation{}, err
	}
	return uc.Recalculator.RecalculatePositions(ctx, item.RankingID)
}

func (uc RankingAdminUseCase) ownedItem(ctx context.Context, rankingID string, itemID string) (entities.RankingItem, error) {
	if itemID == "" {
		return entities.RankingItem{}, domainerrors.ErrItemNotFound
	}
	item, err := uc.Rankings.GetItem(ctx, itemID)
	if err != nil {
		return entities.RankingItem{}, err
	}
	if rankingID != "" && item.RankingID != rankingID {
		return entities.RankingItem{}, domainerrors.ErrItemNotFound
	}
	return item, nil
}

func (uc RankingAdminUseCase) recalculateAfter(ctx context.Context, rankingID string, itemID string) (ItemMutationResult, error) {
	recalculation, err := uc.Recalculator.RecalculatePositions(ctx, rankingID)
	if err != nil {
		return ItemMutationResult{}, err
	}
	item, err := uc.Rankings.GetItem(ctx, itemID)
	if err != nil {
		return ItemMutationResult{}, err
	}
	return ItemMutationResult{Item: item, Recalculation: recalculation}, nil
}

func (uc RankingAdminUseCase) envelope(
	ctx context.Context,
	eventType string,
	rankingID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newRankingEnvelope(eventID, eventType, rankingID, occurredAt, data)
}

func (uc RankingAdminUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func validScore(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0)
}
