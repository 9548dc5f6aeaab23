// Package api serves a control room session over HTTP.
// One session per process; reads are GETs and every state change is a POST.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/control-room/internal/agents"
	"github.com/talgya/control-room/internal/backend"
	"github.com/talgya/control-room/internal/scenario"
	"github.com/talgya/control-room/internal/session"
)

// Server serves the session over HTTP.
type Server struct {
	Session *session.Session
	Remote  *backend.Client // for the remote scenario listing; nil disables it
	Port    int

	CORSOrigins      []string      // allowed in addition to localhost dev servers
	BriefRate        int           // brief requests per IP per minute (default 10)
	PlaybackInterval time.Duration // default auto-advance interval

	// Ctx bounds background work started by requests, such as playback.
	Ctx context.Context

	httpServer *http.Server
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	rate := s.BriefRate
	if rate <= 0 {
		rate = 10
	}
	briefLimiter := NewRateLimiter(rate, time.Minute)

	mux := http.NewServeMux()

	// Catalog.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/scenarios", s.handleScenarios)
	mux.HandleFunc("/api/v1/scenarios/remote", s.handleRemoteScenarios)
	mux.HandleFunc("/api/v1/scenario/", s.handleScenarioDetail)

	// Session lifecycle.
	mux.HandleFunc("/api/v1/session/select", postOnly(s.handleSelect))
	mux.HandleFunc("/api/v1/session/reset", postOnly(s.handleReset))
	mux.HandleFunc("/api/v1/session/round", postOnly(s.handleRound))
	mux.HandleFunc("/api/v1/session/perspective", postOnly(s.handlePerspective))
	mux.HandleFunc("/api/v1/session/move", postOnly(s.handleMove))
	mux.HandleFunc("/api/v1/session/playback", s.handlePlayback)

	// Session reads.
	mux.HandleFunc("/api/v1/session/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/session/timeline", s.handleTimeline)
	mux.HandleFunc("/api/v1/session/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/session/panels", s.handlePanels)
	mux.HandleFunc("/api/v1/session/brief", s.limitRefresh(briefLimiter, s.handleBrief))
	mux.HandleFunc("/api/v1/session/relations", s.handleRelations)
	mux.HandleFunc("/api/v1/session/standings", s.handleStandings)
	mux.HandleFunc("/api/v1/session/history", s.handleHistory)
	mux.HandleFunc("/api/v1/session/remote-status", s.handleRemoteStatus)
	mux.HandleFunc("/api/v1/session/notifications", s.handleNotifications)

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "session", s.Session.ID())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(extra []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
		"http://localhost:8080": true,
	}
	for _, origin := range extra {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// postOnly rejects anything but POST with 405.
func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// sessionError maps session and service errors to HTTP statuses.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scenario.ErrNotFound), errors.Is(err, session.ErrUnknownMove):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrAlreadyLoading),
		errors.Is(err, session.ErrNoScenario),
		errors.Is(err, session.ErrNotCompleted),
		errors.Is(err, session.ErrSuperseded):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		var be *backend.Error
		if errors.As(err, &be) {
			http.Error(w, be.Message, http.StatusBadGateway)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

// ── Catalog ────────────────────────────────────────────────────────────

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.View())
}

type scenarioSummary struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      scenario.Status `json:"status"`
	Rounds      int             `json:"rounds"`
	Image       string          `json:"image,omitempty"`
	Agents      int             `json:"agents"`
	Moves       int             `json:"moves"`
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	status := scenario.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	list := s.Session.Catalog().ByStatus(status)
	out := make([]scenarioSummary, 0, len(list))
	for _, sc := range list {
		out = append(out, scenarioSummary{
			ID:          sc.ID,
			Title:       sc.Title,
			Description: sc.Description,
			Status:      sc.Status,
			Rounds:      sc.Rounds,
			Image:       sc.Image,
			Agents:      len(sc.Agents),
			Moves:       len(sc.Moves),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleRemoteScenarios(w http.ResponseWriter, r *http.Request) {
	if s.Remote == nil {
		http.Error(w, "simulation service not configured", http.StatusServiceUnavailable)
		return
	}
	list, err := s.Remote.ListScenarios(r.Context())
	if err != nil {
		slog.Warn("remote scenario listing failed", "error", err)
		sessionError(w, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleScenarioDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/scenario/")
	sc, err := s.Session.Catalog().Get(id)
	if err != nil {
		http.Error(w, "scenario not found", http.StatusNotFound)
		return
	}
	detail := struct {
		*scenario.Scenario
		CurrentMove *scenario.Move `json:"current_move,omitempty"`
	}{Scenario: sc}
	if m, ok := sc.CurrentMove(); ok {
		detail.CurrentMove = &m
	}
	writeJSON(w, detail)
}

// ── Lifecycle ──────────────────────────────────────────────────────────

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
		NumRounds  *int   `json:"num_rounds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ScenarioID == "" {
		http.Error(w, "scenario_id is required", http.StatusBadRequest)
		return
	}
	if req.NumRounds != nil && *req.NumRounds <= 0 {
		http.Error(w, "num_rounds must be positive", http.StatusBadRequest)
		return
	}

	if err := s.Session.SelectAsync(req.ScenarioID, req.NumRounds); err != nil {
		sessionError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, s.Session.View())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Session.Reset()
	writeJSON(w, s.Session.View())
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Round  int    `json:"round"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	applied := true
	switch req.Action {
	case "next":
		s.Session.Next()
	case "prev":
		s.Session.Prev()
	case "set":
		_, applied = s.Session.SetRound(req.Round)
	default:
		http.Error(w, "action must be next, prev or set", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"applied":  applied,
		"session":  s.Session.View(),
		"snapshot": s.Session.Snapshot(),
	})
}

func (s *Server) handlePerspective(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Perspective string `json:"perspective"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p, err := scenario.ParsePerspective(req.Perspective)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Session.SetPerspective(p)
	writeJSON(w, s.Session.View())
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MoveID string `json:"move_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	rec, err := s.Session.ExecuteMove(req.MoveID)
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			IntervalMS int `json:"interval_ms"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		interval := s.PlaybackInterval
		if req.IntervalMS > 0 {
			interval = time.Duration(req.IntervalMS) * time.Millisecond
		}
		ctx := s.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := s.Session.StartPlayback(ctx, interval); err != nil {
			sessionError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusAccepted, s.Session.View())
	case http.MethodDelete:
		s.Session.StopPlayback()
		writeJSON(w, s.Session.View())
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ── Reads ──────────────────────────────────────────────────────────────

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Snapshot())
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Timeline())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	changes := s.Session.ShareChanges()
	lines := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.Significant() {
			lines = append(lines, c.String())
		}
	}
	writeJSON(w, map[string]any{
		"session":       s.Session.View(),
		"share_changes": changes,
		"market_impact": lines,
		"moves":         s.Session.MoveHistory(),
		"last_move":     s.Session.MoveSummary(),
	})
}

func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	p := s.Session.Perspective()
	writeJSON(w, map[string]any{
		"perspective": p,
		"panels":      scenario.PanelsFor(p),
	})
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := s.Session.RefreshBrief(r.Context()); err != nil {
			sessionError(w, err)
			return
		}
	}
	brief, loading := s.Session.Brief()
	writeJSON(w, map[string]any{
		"perspective": s.Session.Perspective(),
		"loading":     loading,
		"brief":       brief,
	})
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	edges, err := s.Session.Relations(agents.ID(r.URL.Query().Get("agent")))
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, edges)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := s.Session.Standings()
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, standings)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.Session.History(r.Context(), limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	total, err := s.Session.EventCount(r.Context())
	if err != nil {
		slog.Error("history count failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"entries": entries,
		"total":   total,
		"moves":   s.Session.MoveHistory(),
	})
}

// handleRemoteStatus asks the simulation service where the session's run is.
func (s *Server) handleRemoteStatus(w http.ResponseWriter, r *http.Request) {
	if s.Remote == nil {
		http.Error(w, "simulation service not configured", http.StatusServiceUnavailable)
		return
	}
	v := s.Session.View()
	if v.SimulationID == "" {
		http.Error(w, "no simulation has been started", http.StatusConflict)
		return
	}
	status, err := s.Remote.FetchStatus(r.Context(), v.SimulationID)
	if err != nil {
		slog.Warn("remote status failed", "simulation", v.SimulationID, "error", err)
		sessionError(w, err)
		return
	}
	writeJSON(w, status)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	after, _ := strconv.Atoi(r.URL.Query().Get("after"))
	writeJSON(w, s.Session.Notifications().List(after))
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
