// Package session holds the state of one control room session: the selected
// scenario, the remote run and its series, the round cursor, the analytical
// perspective and the locally executed moves.
//
// All mutation happens under the session mutex. The two asynchronous
// operations, loading a run and fetching a brief, are tagged when they begin
// and their results are dropped if the session has moved on by the time they
// complete.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/control-room/internal/agents"
	"github.com/talgya/control-room/internal/backend"
	"github.com/talgya/control-room/internal/engine"
	"github.com/talgya/control-room/internal/journal"
	"github.com/talgya/control-room/internal/relations"
	"github.com/talgya/control-room/internal/scenario"
	"github.com/talgya/control-room/internal/snapshot"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	// StatusRunning is reported by the service while a run is in progress.
	// Sessions never enter it because runs complete before start returns.
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

var (
	ErrAlreadyLoading = errors.New("scenario is already loading")
	ErrNoScenario     = errors.New("no scenario selected")
	ErrUnknownMove    = errors.New("unknown move")
	ErrNotCompleted   = errors.New("simulation has not completed")
	ErrSuperseded     = errors.New("superseded by a newer request")
)

// Backend is the part of the simulation service a session uses.
type Backend interface {
	StartSimulation(ctx context.Context, req backend.StartRequest) (*backend.StartResponse, error)
	FetchData(ctx context.Context, simulationID string) (*backend.Series, error)
	FetchBrief(ctx context.Context, simulationID, perspective string) (*backend.Brief, error)
}

// Journal stores session events.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
	List(ctx context.Context, sessionID string, limit int) ([]journal.Entry, error)
	Count(ctx context.Context, sessionID string) (int, error)
}

// Options configures a new Session.
type Options struct {
	Catalog          *scenario.Catalog
	Backend          Backend
	Journal          Journal // optional
	Perspective      scenario.Perspective
	MaxNotifications int
}

// Session is one user's view of the control room.
type Session struct {
	id      string
	catalog *scenario.Catalog
	backend Backend
	journal Journal
	notes   *Notifications

	mu           sync.Mutex
	scenario     *scenario.Scenario
	board        *engine.Board
	simulationID string
	series       *snapshot.Series
	cursor       snapshot.Cursor
	status       Status
	lastErr      string
	perspective  scenario.Perspective
	brief        *backend.Brief
	briefLoading bool
	playback     *engine.Playback

	epoch    uint64 // bumped on Select and Reset
	briefGen uint64 // bumped on every brief request

	wg sync.WaitGroup
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = scenario.Builtin()
	}
	if opts.Perspective == "" {
		opts.Perspective = scenario.DefaultPerspective
	}
	s := &Session{
		id:          uuid.NewString(),
		catalog:     opts.Catalog,
		backend:     opts.Backend,
		journal:     opts.Journal,
		notes:       NewNotifications(opts.MaxNotifications),
		status:      StatusIdle,
		perspective: opts.Perspective,
	}
	slog.Info("session created", "session", s.id, "perspective", s.perspective)
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Catalog returns the scenarios the session can select.
func (s *Session) Catalog() *scenario.Catalog { return s.catalog }

// Notifications returns the session's notification log.
func (s *Session) Notifications() *Notifications { return s.notes }

// Wait blocks until all background loads and brief fetches have finished.
func (s *Session) Wait() { s.wg.Wait() }

// ── Selection ──────────────────────────────────────────────────────────

// load is a start+fetch request captured when a scenario is selected.
type load struct {
	epoch      uint64
	scenarioID string
	req        backend.StartRequest
}

// begin moves the session into loading for scenarioID.
func (s *Session) begin(scenarioID string, numRounds *int) (load, error) {
	sc, err := s.catalog.Get(scenarioID)
	if err != nil {
		return load{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusLoading && s.scenario != nil && s.scenario.ID == sc.ID {
		return load{}, ErrAlreadyLoading
	}

	s.stopPlaybackLocked()
	s.epoch++
	s.briefGen++

	total := sc.Rounds
	if numRounds != nil && *numRounds > 0 {
		total = *numRounds
	}

	s.scenario = sc
	s.board = engine.NewBoard(sc)
	s.simulationID = ""
	s.series = nil
	s.cursor = snapshot.NewCursor(total)
	s.lastErr = ""
	s.brief = nil
	s.briefLoading = false
	s.status = StatusLoading

	slog.Info("scenario selected", "session", s.id, "scenario", sc.ID, "backend_scenario", sc.BackendID(), "rounds", total, "epoch", s.epoch)
	s.record(journal.KindSelect, sc.ID, sc.Title)

	return load{
		epoch:      s.epoch,
		scenarioID: sc.ID,
		req:        backend.StartRequest{ScenarioID: sc.BackendID(), NumRounds: numRounds},
	}, nil
}

// Select loads a scenario and blocks until the run has been fetched or has
// failed. Selecting the scenario that is already loading returns
// ErrAlreadyLoading without contacting the service.
func (s *Session) Select(ctx context.Context, scenarioID string, numRounds *int) error {
	l, err := s.begin(scenarioID, numRounds)
	if err != nil {
		return err
	}
	err = s.run(ctx, l)
	if err == nil {
		s.RefreshBriefAsync()
	}
	return err
}

// SelectAsync is Select without waiting for the run. The session reports
// loading until the result arrives.
func (s *Session) SelectAsync(scenarioID string, numRounds *int) error {
	l, err := s.begin(scenarioID, numRounds)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.run(context.Background(), l); err == nil {
			s.RefreshBriefAsync()
		}
	}()
	return nil
}

// run performs the start request then the series fetch for l.
func (s *Session) run(ctx context.Context, l load) error {
	start, err := s.backend.StartSimulation(ctx, l.req)
	if err := s.startAccepted(l, start, err); err != nil {
		return err
	}

	series, err := s.backend.FetchData(ctx, start.SimulationID)
	return s.seriesFetched(l, series, err)
}

func (s *Session) startAccepted(l load, start *backend.StartResponse, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.epoch != s.epoch {
		slog.Debug("discarding stale start result", "session", s.id, "scenario", l.scenarioID, "epoch", l.epoch, "current", s.epoch)
		return ErrSuperseded
	}
	if err != nil {
		s.failLocked("Failed to start simulation", err)
		return err
	}

	s.simulationID = start.SimulationID
	if start.TotalRounds > 0 {
		s.cursor = s.cursor.WithTotal(start.TotalRounds)
	}

	slog.Info("simulation accepted", "session", s.id, "simulation", start.SimulationID, "rounds", s.cursor.Total(), "status", start.Status)
	s.record(journal.KindAccepted, l.scenarioID, start.SimulationID)
	return nil
}

func (s *Session) seriesFetched(l load, series *backend.Series, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.epoch != s.epoch {
		slog.Debug("discarding stale series", "session", s.id, "scenario", l.scenarioID, "epoch", l.epoch, "current", s.epoch)
		return ErrSuperseded
	}
	if err != nil {
		s.failLocked("Failed to load simulation data", err)
		return err
	}

	s.series = series
	s.cursor = snapshot.NewCursor(s.cursor.Total())
	s.status = StatusCompleted

	slog.Info("simulation data loaded", "session", s.id, "simulation", s.simulationID, "agent_rows", len(series.AgentData), "model_rows", len(series.ModelData))
	s.record(journal.KindFetched, l.scenarioID, fmt.Sprintf("%d rounds", s.cursor.Total()))
	s.notes.Notify(LevelSuccess, "Simulation completed", fmt.Sprintf("%s is ready to review.", s.scenario.Title))
	return nil
}

// failLocked moves the session to error. Caller holds s.mu.
func (s *Session) failLocked(title string, err error) {
	s.status = StatusError
	s.lastErr = err.Error()
	slog.Error(title, "session", s.id, "error", err)
	var scenarioID string
	if s.scenario != nil {
		scenarioID = s.scenario.ID
	}
	s.record(journal.KindFailed, scenarioID, s.lastErr)
	s.notes.Notify(LevelError, title, s.lastErr)
}

// Reset returns the session to idle from any state. In-flight results are
// discarded when they arrive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopPlaybackLocked()
	s.epoch++
	s.briefGen++

	var scenarioID string
	if s.scenario != nil {
		scenarioID = s.scenario.ID
	}

	s.scenario = nil
	s.board = nil
	s.simulationID = ""
	s.series = nil
	s.cursor = snapshot.NewCursor(0)
	s.lastErr = ""
	s.brief = nil
	s.briefLoading = false
	s.status = StatusIdle

	slog.Info("session reset", "session", s.id, "epoch", s.epoch)
	s.record(journal.KindReset, scenarioID, "")
}

// ── Rounds ─────────────────────────────────────────────────────────────

// Next advances the cursor one round and returns the new position.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.cursor.Next()
	return s.cursor.Pos()
}

// Prev steps the cursor back one round and returns the new position.
func (s *Session) Prev() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = s.cursor.Prev()
	return s.cursor.Pos()
}

// SetRound moves the cursor to the 0-based round r. Out-of-range values are
// ignored and reported as false.
func (s *Session) SetRound(r int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cursor.Set(r)
	s.cursor = c
	return c.Pos(), ok
}

// Snapshot derives the current round's state from the fetched series.
func (s *Session) Snapshot() snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Derive(s.series, s.cursor)
}

// Timeline returns the round markers for the current cursor.
func (s *Session) Timeline() []snapshot.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Timeline(s.cursor)
}

// ShareChanges returns the market share movement over the fetched run.
func (s *Session) ShareChanges() []snapshot.ShareChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.ShareChanges(s.series)
}

// ── Perspective and briefs ─────────────────────────────────────────────

// SetPerspective changes the analytical lens. A completed session fetches
// the matching brief in the background.
func (s *Session) SetPerspective(p scenario.Perspective) {
	s.mu.Lock()
	changed := s.perspective != p
	s.perspective = p
	completed := s.status == StatusCompleted
	var scenarioID string
	if s.scenario != nil {
		scenarioID = s.scenario.ID
	}
	if changed {
		s.record(journal.KindPerspective, scenarioID, string(p))
	}
	s.mu.Unlock()

	slog.Info("perspective set", "session", s.id, "perspective", p)
	if completed {
		s.RefreshBriefAsync()
	}
}

// Perspective returns the current lens.
func (s *Session) Perspective() scenario.Perspective {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perspective
}

// briefRequest is a brief fetch captured at request time.
type briefRequest struct {
	gen          uint64
	epoch        uint64
	simulationID string
	scenarioID   string
	perspective  scenario.Perspective
}

func (s *Session) beginBrief() (briefRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusCompleted || s.simulationID == "" {
		return briefRequest{}, ErrNotCompleted
	}
	s.briefGen++
	s.briefLoading = true
	return briefRequest{
		gen:          s.briefGen,
		epoch:        s.epoch,
		simulationID: s.simulationID,
		scenarioID:   s.scenario.ID,
		perspective:  s.perspective,
	}, nil
}

// RefreshBrief fetches the brief for the current perspective and waits for
// it. Failures are reported as notifications and never change the session
// status.
func (s *Session) RefreshBrief(ctx context.Context) (*backend.Brief, error) {
	req, err := s.beginBrief()
	if err != nil {
		return nil, err
	}
	return s.fetchBrief(ctx, req)
}

// RefreshBriefAsync starts a brief fetch if the session has completed.
func (s *Session) RefreshBriefAsync() {
	req, err := s.beginBrief()
	if err != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetchBrief(context.Background(), req)
	}()
}

func (s *Session) fetchBrief(ctx context.Context, req briefRequest) (*backend.Brief, error) {
	brief, err := s.backend.FetchBrief(ctx, req.simulationID, string(req.perspective))

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.gen != s.briefGen || req.epoch != s.epoch {
		slog.Debug("discarding stale brief", "session", s.id, "perspective", req.perspective, "gen", req.gen, "current", s.briefGen)
		return nil, ErrSuperseded
	}
	s.briefLoading = false

	if err != nil {
		slog.Warn("brief fetch failed", "session", s.id, "perspective", req.perspective, "error", err)
		s.record(journal.KindBriefFailed, req.scenarioID, err.Error())
		s.notes.Notify(LevelError, "Failed to load brief", err.Error())
		return nil, err
	}

	s.brief = brief
	s.record(journal.KindBrief, req.scenarioID, string(req.perspective))
	return brief, nil
}

// Brief returns the last fetched brief and whether a fetch is in flight.
func (s *Session) Brief() (*backend.Brief, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brief, s.briefLoading
}

// ── Moves ──────────────────────────────────────────────────────────────

// ExecuteMove applies one of the selected scenario's moves to the local
// board. Moves can be executed in any state once a scenario is selected.
func (s *Session) ExecuteMove(moveID string) (engine.MoveRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board == nil {
		return engine.MoveRecord{}, ErrNoScenario
	}
	rec, err := s.board.Execute(moveID)
	if errors.Is(err, scenario.ErrNotFound) {
		return engine.MoveRecord{}, fmt.Errorf("%w: %s", ErrUnknownMove, moveID)
	}
	if err != nil {
		return engine.MoveRecord{}, err
	}

	s.record(journal.KindMove, s.scenario.ID, rec.Title)
	s.notes.Notify(LevelInfo, "Executed move", rec.Title)
	return rec, nil
}

// MoveHistory returns the executed moves, oldest first.
func (s *Session) MoveHistory() []engine.MoveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil
	}
	return append([]engine.MoveRecord(nil), s.board.History...)
}

// MoveSummary describes the last executed move, or is empty when no scenario
// is selected.
func (s *Session) MoveSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return ""
	}
	return s.board.Summary()
}

// Standings returns each agent's current standing.
func (s *Session) Standings() ([]relations.AgentStanding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil, ErrNoScenario
	}
	return s.board.Standings.List(), nil
}

// Relations returns the pairwise edges of the board, or only agent's
// outgoing edges when agent is set.
func (s *Session) Relations(agent agents.ID) ([]relations.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil, ErrNoScenario
	}
	if agent != "" {
		return s.board.Relations.Outgoing(agent), nil
	}
	return s.board.Relations.Edges(), nil
}

// Scenario returns the selected scenario, if any.
func (s *Session) Scenario() (*scenario.Scenario, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenario, s.scenario != nil
}

// ── Playback ───────────────────────────────────────────────────────────

// StartPlayback advances the cursor every interval until the last round.
// A playback that starts on the last round rewinds to the first.
func (s *Session) StartPlayback(ctx context.Context, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusCompleted {
		return ErrNotCompleted
	}
	s.stopPlaybackLocked()
	if s.cursor.AtEnd() {
		s.cursor, _ = s.cursor.Set(0)
	}

	// Ticks from a playback that has been stopped or replaced are dropped,
	// including one already waiting on the lock when Stop ran.
	var p *engine.Playback
	p = engine.NewPlayback(interval, func(uint64) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.playback != p {
			return false
		}
		s.cursor = s.cursor.Next()
		return !s.cursor.AtEnd()
	})
	s.playback = p

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p.Run(ctx)
	}()
	return nil
}

// StopPlayback halts a running playback.
func (s *Session) StopPlayback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPlaybackLocked()
}

func (s *Session) stopPlaybackLocked() {
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
}

// ── View ───────────────────────────────────────────────────────────────

// View is a point-in-time copy of the session state.
type View struct {
	SessionID     string               `json:"session_id"`
	Status        Status               `json:"status"`
	ScenarioID    string               `json:"scenario_id,omitempty"`
	ScenarioTitle string               `json:"scenario_title,omitempty"`
	SimulationID  string               `json:"simulation_id,omitempty"`
	Cursor        int                  `json:"cursor"`
	Round         int                  `json:"round"`
	TotalRounds   int                  `json:"total_rounds"`
	Error         string               `json:"error,omitempty"`
	Perspective   scenario.Perspective `json:"perspective"`
	BriefLoading  bool                 `json:"brief_loading"`
	Playing       bool                 `json:"playing"`
	MovesExecuted int                  `json:"moves_executed"`
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:    s.id,
		Status:       s.status,
		SimulationID: s.simulationID,
		Cursor:       s.cursor.Pos(),
		Round:        s.cursor.Round(),
		TotalRounds:  s.cursor.Total(),
		Error:        s.lastErr,
		Perspective:  s.perspective,
		BriefLoading: s.briefLoading,
		Playing:      s.playback != nil && s.playback.Running(),
	}
	if s.scenario != nil {
		v.ScenarioID = s.scenario.ID
		v.ScenarioTitle = s.scenario.Title
	}
	if s.board != nil {
		v.MovesExecuted = s.board.MovesExecuted()
	}
	return v
}

// ── Journal ────────────────────────────────────────────────────────────

// record writes a journal entry. Journal failures are logged and otherwise
// ignored.
func (s *Session) record(kind journal.Kind, scenarioID, detail string) {
	if s.journal == nil {
		return
	}
	_, err := s.journal.Record(context.Background(), journal.Entry{
		SessionID:  s.id,
		Kind:       kind,
		ScenarioID: scenarioID,
		Detail:     detail,
	})
	if err != nil {
		slog.Warn("journal write failed", "session", s.id, "kind", kind, "error", err)
	}
}

// History returns up to limit of the session's journal entries, oldest first.
func (s *Session) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.List(ctx, s.id, limit)
}

// EventCount returns how many journal entries the session has written.
func (s *Session) EventCount(ctx context.Context) (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	return s.journal.Count(ctx, s.id)
}
