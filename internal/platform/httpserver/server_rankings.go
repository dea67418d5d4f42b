package httpserver

import (
	"errors"
	"net/http"

	rankingerrors "cinetrack/contexts/community-engagement/ranking-engine/domain/errors"
	rankinghttp "cinetrack/contexts/community-engagement/ranking-engine/transport/http"
)

func writeRankingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, rankinghttp.ErrorResponse{Code: code, Message: message})
}

func writeRankingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rankingerrors.ErrRankingNotFound):
		writeRankingError(w, http.StatusNotFound, "ranking_not_found", err.Error())
	case errors.Is(err, rankingerrors.ErrItemNotFound):
		writeRankingError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, rankingerrors.ErrInvalidRankingInput),
		errors.Is(err, rankingerrors.ErrInvalidItemInput):
		writeRankingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, rankingerrors.ErrConflict):
		writeRankingError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeRankingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) handleCreateRanking(w http.ResponseWriter, r *http.Request) {
	var req rankinghttp.CreateRankingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRankingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.rankings.Handler.CreateRankingHandler(r.Context(), req)
	if err != nil {
		writeRankingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleGetRanking godoc
// @Summary Ranking with items in position order
// @Tags rankings
// @Produce json
// @Param ranking_id path string true "Ranking id"
// @Success 200 {object} rankinghttp.RankingResponse
// @Failure 404 {object} rankinghttp.ErrorResponse
// @Router /api/v1/rankings/{ranking_id} [get]
func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	resp, err := s.rankings.Handler.GetRankingHandler(r.Context(), r.PathValue("ranking_id"))
	if err != nil {
		writeRankingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddRankingItem(w http.ResponseWriter, r *http.Request) {
	var req rankinghttp.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRankingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.rankings.Handler.AddItemHandler(r.Context(), r.PathValue("ranking_id"), req)
	if err != nil {
		writeRankingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateRankingItemScore(w http.ResponseWriter, r *http.Request) {
	var req rankinghttp.UpdateItemScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeRankingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.rankings.Handler.UpdateItemScoreHandler(
		r.Context(),
		r.PathValue("ranking_id"),
		r.PathValue("item_id"),
		req,
	)
	if err != nil {
		writeRankingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveRankingItem(w http.ResponseWriter, r *http.Request) {
	resp, err := s.rankings.Handler.RemoveItemHandler(r.Context(), r.PathValue("ranking_id"), r.PathValue("item_id"))
	if err != nil {
		writeRankingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecalculateRanking godoc
// @Summary Recalculate item positions from scores
// @Tags rankings
// @Produce json
// @Param ranking_id path string true "Ranking id"
// @Success 200 {object} rankinghttp.RecalculateResponse
// @Failure 404 {object} rankinghttp.ErrorResponse
// @Failure 409 {object} rankinghttp.ErrorResponse
// @Router /api/v1/rankings/{ranking_id}/recalculate [post]
func (s *Server) handleRecalculateRanking(w http.ResponseWriter, r *http.Request) {
	resp, err := s.rankings.Handler.RecalculateHandler(r.Context(), r.PathValue("ranking_id"))
	if err != nil {
		writeRankingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
