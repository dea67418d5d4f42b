package queries

import (
	"context"
	"strings"

	"cinetrack/contexts/community-engagement/ranking-engine/domain/entities"
	domainerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	"cinetrack/contexts/community-engagement/ranking-engine/ports"
)

type RankingView struct {
	Ranking entities.Ranking
	Items   []entities.RankingItem
}

type RankingQueryUseCase struct {
	Rankings ports.RankingRepository
}

func (uc RankingQueryUseCase) GetRanking(ctx context.Context, rankingID string) (RankingView, error) {
	rankingID = strings.TrimSpace(rankingID)
	if rankingID == "" {
		return RankingView{}, domainerrors.ErrRankingNotFound
	}
	ranking, err := uc.Rankings.GetRanking(ctx, rankingID)
	if err != nil {
		return RankingView{}, err
	}
	items, err := uc.Rankings.ListItems(ctx, rankingID)
	if err != nil {
		return RankingView{}, err
	}
	entities.SortByPosition(items)
	return RankingView{Ranking: ranking, Items: items}, nil
}
