// Package api serves stored run results over HTTP.
// All endpoints are GET and read-only.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/talgya/climate-net/internal/persistence"
)

// Server serves a results database over HTTP.
type Server struct {
	DB   *persistence.DB
	Addr string

	// AllowedOrigins receive CORS headers. Localhost dev servers are
	// always allowed.
	AllowedOrigins []string

	// RequestsPerMinute bounds each client. Zero disables limiting.
	RequestsPerMinute int
}

// Handler builds the routed handler with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/rounds", s.handleRounds)
	mux.HandleFunc("GET /api/v1/runs/{id}/shocks", s.handleShocks)

	var h http.Handler = mux
	if s.RequestsPerMinute > 0 {
		h = NewRateLimiter(s.RequestsPerMinute, time.Minute).Limit(h)
	}
	return corsMiddleware(s.AllowedOrigins, h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "rate_limit", s.RequestsPerMinute)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		slog.Info("HTTP API stopped")
		return nil
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, o := range origins {
		if o != "" {
			allowed[o] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.Runs()
	if err != nil {
		serverError(w, "list runs", err)
		return
	}
	status := map[string]any{"runs": len(runs)}
	if last, err := s.DB.GetMeta("last_run"); err == nil {
		status["last_run"] = last
	}
	writeJSON(w, status)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.Runs()
	if err != nil {
		serverError(w, "list runs", err)
		return
	}
	if runs == nil {
		runs = []persistence.RunRow{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	retired, err := s.DB.TypeSurvival(run.RunID)
	if err != nil {
		serverError(w, "type survival", err)
		return
	}
	writeJSON(w, map[string]any{
		"run":             run,
		"retired_by_type": retired,
	})
}

// handleRounds returns round totals, optionally bounded by ?from= and ?to=
// (inclusive round numbers).
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	from := queryInt(r, "from", 0)
	to := queryInt(r, "to", run.Rounds)

	rows, err := s.DB.LoadRounds(run.RunID)
	if err != nil {
		serverError(w, "load rounds", err)
		return
	}

	type roundEntry struct {
		persistence.RoundRow
		FiredShocks json.RawMessage `json:"fired_shocks"`
	}
	out := make([]roundEntry, 0, len(rows))
	for _, row := range rows {
		if row.Round < from || row.Round > to {
			continue
		}
		out = append(out, roundEntry{RoundRow: row, FiredShocks: json.RawMessage(row.FiredShocks)})
	}
	writeJSON(w, out)
}

func (s *Server) handleShocks(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := s.DB.RecentShocks(run.RunID, limit)
	if err != nil {
		serverError(w, "recent shocks", err)
		return
	}
	if rows == nil {
		rows = []persistence.ShockRow{}
	}
	writeJSON(w, rows)
}

// lookupRun resolves the {id} path value, writing a 404 when unknown.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (persistence.RunRow, bool) {
	run, err := s.DB.Run(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return run, false
	}
	if err != nil {
		serverError(w, "load run", err)
		return run, false
	}
	return run, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func serverError(w http.ResponseWriter, what string, err error) {
	slog.Error("API query failed", "query", what, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
