package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	pollerrors "cinetrack/contexts/community-engagement/poll-voting/domain/errors"
	pollhttp "cinetrack/contexts/community-engagement/poll-voting/transport/http"
)

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{Code: code, Message: message})
}

func writePollDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pollerrors.ErrPollNotFound):
		writePollError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, pollerrors.ErrVoteNotFound):
		writePollError(w, http.StatusNotFound, "vote_not_found", err.Error())
	case errors.Is(err, pollerrors.ErrInvalidPollInput),
		errors.Is(err, pollerrors.ErrInvalidVoteInput),
		errors.Is(err, pollerrors.ErrInvalidOption):
		writePollError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, pollerrors.ErrPollInactive):
		writePollError(w, http.StatusConflict, "poll_inactive", err.Error())
	case errors.Is(err, pollerrors.ErrConflict):
		writePollError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writePollError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// handleCreatePoll godoc
// @Summary Create a poll
// @Tags polls
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Poll owner"
// @Param body body pollhttp.CreatePollRequest true "Poll"
// @Success 201 {object} pollhttp.PollResponse
// @Failure 400 {object} pollhttp.ErrorResponse
// @Router /api/v1/polls [post]
func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(r)
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req pollhttp.CreatePollRequest
	if err := decodeJSON(r, &req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polls.Handler.CreatePollHandler(r.Context(), userID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writePollError(w, http.StatusBadRequest, "invalid_request", "active must be a boolean")
			return
		}
		activeOnly = parsed
	}

	resp, err := s.polls.Handler.ListPollsHandler(r.Context(), activeOnly)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetPollHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePollResults godoc
// @Summary Per-option vote percentages
// @Tags polls
// @Produce json
// @Param poll_id path string true "Poll id"
// @Success 200 {object} pollhttp.PollResultsResponse
// @Failure 404 {object} pollhttp.ErrorResponse
// @Router /api/v1/polls/{poll_id}/results [get]
func (s *Server) handlePollResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.PollResultsHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollIntegrity(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.TallyHandler(r.Context(), r.PathValue("poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetPollActive(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.SetPollActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.polls.Handler.SetPollActiveHandler(r.Context(), r.PathValue("poll_id"), req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	if err := s.polls.Handler.DeletePollHandler(r.Context(), r.PathValue("poll_id")); err != nil {
		writePollDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmitVote godoc
// @Summary Cast or change the caller's vote
// @Tags votes
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Voter"
// @Param poll_id path string true "Poll id"
// @Param body body pollhttp.SubmitVoteRequest true "Selected option (1-4)"
// @Success 200 {object} pollhttp.SubmitVoteResponse
// @Failure 400 {object} pollhttp.ErrorResponse
// @Failure 404 {object} pollhttp.ErrorResponse
// @Failure 409 {object} pollhttp.ErrorResponse
// @Router /api/v1/polls/{poll_id}/votes [post]
func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(r)
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	var req pollhttp.SubmitVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writePollError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.polls.Handler.SubmitVoteHandler(r.Context(), r.PathValue("poll_id"), userID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMyVote(w http.ResponseWriter, r *http.Request) {
	userID := requireUserID(r)
	if userID == "" {
		writePollError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}
	resp, err := s.polls.Handler.GetVoteHandler(r.Context(), r.PathValue("poll_id"), userID)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
