package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	pollvoting "cinetrack/contexts/community-engagement/poll-voting"
	rankingengine "cinetrack/contexts/community-engagement/ranking-engine"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "cinetrack/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	corsOrigins []string
	polls       pollvoting.Module
	rankings    rankingengine.Module
}

func New(
	polls pollvoting.Module,
	rankings rankingengine.Module,
	logger *slog.Logger,
	addr string,
	corsOrigins []string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		corsOrigins: corsOrigins,
		polls:       polls,
		rankings:    rankings,
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed mux wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-Id", "X-Request-Id"},
	})
	return c.Handler(s.logRequests(s.mux))
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
		)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/v1/polls", s.handleCreatePoll)
	s.mux.HandleFunc("GET /api/v1/polls", s.handleListPolls)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}", s.handleGetPoll)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/results", s.handlePollResults)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/integrity", s.handlePollIntegrity)
	s.mux.HandleFunc("PATCH /api/v1/polls/{poll_id}/active", s.handleSetPollActive)
	s.mux.HandleFunc("DELETE /api/v1/polls/{poll_id}", s.handleDeletePoll)
	s.mux.HandleFunc("POST /api/v1/polls/{poll_id}/votes", s.handleSubmitVote)
	s.mux.HandleFunc("GET /api/v1/polls/{poll_id}/votes/me", s.handleGetMyVote)

	s.mux.HandleFunc("POST /api/v1/rankings", s.handleCreateRanking)
	s.mux.HandleFunc("GET /api/v1/rankings/{ranking_id}", s.handleGetRanking)
	s.mux.HandleFunc("POST /api/v1/rankings/{ranking_id}/items", s.handleAddRankingItem)
	s.mux.HandleFunc("PATCH /api/v1/rankings/{ranking_id}/items/{item_id}", s.handleUpdateRankingItemScore)
	s.mux.HandleFunc("DELETE /api/v1/rankings/{ranking_id}/items/{item_id}", s.handleRemoveRankingItem)
	s.mux.HandleFunc("POST /api/v1/rankings/{ranking_id}/recalculate", s.handleRecalculateRanking)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request handled",
			"event", "http_request",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", strings.TrimSpace(r.Header.Get("X-Request-Id")),
		)
	})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requireUserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}
