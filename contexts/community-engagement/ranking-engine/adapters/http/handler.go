package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"cinetrack/contexts/community-engagement/ranking-engine/application/commands"
	"cinetrack/contexts/community-engagement/ranking-engine/application/queries"
	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	httptransport "cinetrack/contexts/community-engagement/ranking-engine/transport/http"
)

type Handler struct {
	Recalculator commands.RecalculateUseCase
	Admin        commands.RankingAdminUseCase
	Rankings     queries.RankingQueryUseCase
	Logger       *slog.Logger
}

func (h Handler) CreateRankingHandler(
	ctx context.Context,
	req httptransport.CreateRankingRequest,
) (httptransport.RankingResponse, error) {
	ranking, err := h.Admin.CreateRanking(ctx, commands.CreateRankingCommand{
		Title: req.Title,
		Type:  req.Type,
	})
	if err != nil {
		return httptransport.RankingResponse{}, err
	}
	return mapRanking(ranking, nil), nil
}

func (h Handler) GetRankingHandler(ctx context.Context, rankingID string) (httptransport.RankingResponse, error) {
	view, err := h.Rankings.GetRanking(ctx, rankingID)
	if err != nil {
		return httptransport.RankingResponse{}, err
	}
	return mapRanking(view.Ranking, view.Items), nil
}

// RecalculateHandler reports an unknown ranking as not found even though the
// recalculation itself treats it like an empty one.
func (h Handler) RecalculateHandler(ctx context.Context, rankingID string) (httptransport.RecalculateResponse, error) {
	if _, err := h.Rankings.GetRanking(ctx, rankingID); err != nil {
		return httptransport.RecalculateResponse{}, err
	}
	result, err := h.Recalculator.RecalculatePositions(ctx, rankingID)
	if err != nil {
		return httptransport.RecalculateResponse{}, err
	}
	return mapRecalculation(result), nil
}

func (h Handler) AddItemHandler(
	ctx context.Context,
	rankingID string,
	req httptransport.AddItemRequest,
) (httptransport.ItemMutationResponse, error) {
	result, err := h.Admin.AddItem(ctx, commands.AddItemCommand{
		RankingID: rankingID,
		SubjectID: req.SubjectID,
		Score:     req.Score,
	})
	if err != nil {
		return httptransport.ItemMutationResponse{}, err
	}
	return mapMutation(result), nil
}

func (h Handler) UpdateItemScoreHandler(
	ctx context.Context,
	rankingID string,
	itemID string,
	req httptransport.UpdateItemScoreRequest,
) (httptransport.ItemMutationResponse, error) {
	result, err := h.Admin.UpdateItemScore(ctx, commands.UpdateItemScoreCommand{
		RankingID: rankingID,
		ItemID:    itemID,
		Score:     req.Score,
	})
	if err != nil {
		return httptransport.ItemMutationResponse{}, err
	}
	return mapMutation(result), nil
}

func (h Handler) RemoveItemHandler(ctx context.Context, rankingID string, itemID string) (httptransport.RecalculateResponse, error) {
	result, err := h.Admin.RemoveItem(ctx, rankingID, itemID)
	if err != nil {
		return httptransport.RecalculateResponse{}, err
	}
	return mapRecalculation(result), nil
}

func mapRanking(ranking entities.Ranking, items []entities.RankingItem) httptransport.RankingResponse {
	mapped := make([]httptransport.RankingItemResponse, 0, len(items))
	for _, item := range items {
		mapped = append(mapped, mapItem(item))
	}
	return httptransport.RankingResponse{
		RankingID: ranking.RankingID,
		Title:     ranking.Title,
		Type:      ranking.Type,
		CreatedAt: ranking.CreatedAt.UTC().Format(time.RFC3339),
		Items:     mapped,
	}
}

func mapItem(item entities.RankingItem) httptransport.RankingItemResponse {
	return httptransport.RankingItemResponse{
		ItemID:    item.ItemID,
		SubjectID: item.SubjectID,
		Score:     item.Score,
		Position:  item.Position,
	}
}

func mapRecalculation(result entities.Recalculation) httptransport.RecalculateResponse {
	return httptransport.RecalculateResponse{
		RankingID:    result.RankingID,
		ItemCount:    result.ItemCount,
		ChangedCount: result.ChangedCount(),
	}
}

func mapMutation(result commands.ItemMutationResult) httptransport.ItemMutationResponse {
	return httptransport.ItemMutationResponse{
		Item:          mapItem(result.Item),
		Recalculation: mapRecalculation(result.Recalculation),
	}
}
