// Package backendtest provides an in-process fake of the simulation service
// for tests and local development.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/talgya/control-room/internal/backend"
	"github.com/talgya/control-room/internal/snapshot"
)

// Scenarios are the runs the fake accepts, matching the real service.
var Scenarios = []backend.ScenarioSummary{
	{ID: "exclusivity_gambit", Name: "Exclusivity Gambit", Description: "Experian attempts to secure an exclusive data-sharing agreement, aiming for market dominance.", Rounds: 5, ImageURL: "/placeholder.svg"},
	{ID: "data_breach_response", Name: "Data Breach Response", Description: "One bureau experiences a data breach, testing trust and crisis management across the industry.", Rounds: 5, ImageURL: "/placeholder.svg"},
	{ID: "new_entrant_alliance", Name: "New Entrant Alliance", Description: "A new fintech startup proposes an alliance, potentially disrupting the existing market dynamics.", Rounds: 5, ImageURL: "/placeholder.svg"},
}

var bureaus = []string{"Experian", "Equifax", "TransUnion"}

// Server is a fake simulation service. Like the real one it keeps a single
// active simulation.
type Server struct {
	*httptest.Server

	// Gate, when set, blocks start requests until it is closed or receives.
	Gate chan struct{}
	// StartError, DataError and BriefError force the matching endpoint to
	// answer 500 with that message.
	StartError string
	DataError  string
	BriefError string

	mu      sync.Mutex
	starts  int
	briefs  int
	seq     int
	active  *backend.Series
	lastReq backend.StartRequest
}

// New starts a fake service. Close it when done.
func New() *Server {
	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scenarios", s.handleScenarios)
	mux.HandleFunc("/api/simulation/start", s.handleStart)
	mux.HandleFunc("/api/simulation/data/", s.handleData)
	mux.HandleFunc("/api/simulation/status/", s.handleStatus)
	mux.HandleFunc("/api/simulation/brief/", s.handleBrief)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the API root to hand to backend.NewClient.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// Starts returns how many start requests were received.
func (s *Server) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Briefs returns how many brief requests were received.
func (s *Server) Briefs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.briefs
}

// LastStart returns the most recent start request body.
func (s *Server) LastStart() backend.StartRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req backend.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON"})
		return
	}

	s.mu.Lock()
	s.starts++
	s.lastReq = req
	gate := s.Gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.StartError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.StartError})
		return
	}

	rounds := 0
	for _, sc := range Scenarios {
		if sc.ID == req.ScenarioID {
			rounds = sc.Rounds
		}
	}
	if rounds == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid scenario_id"})
		return
	}
	if req.NumRounds != nil && *req.NumRounds > 0 {
		rounds = *req.NumRounds
	}

	s.seq++
	s.active = Run(fmt.Sprintf("sim_%s_%d", req.ScenarioID, 1000+s.seq), req.ScenarioID, rounds)

	writeJSON(w, http.StatusCreated, backend.StartResponse{
		SimulationID: s.active.SimulationID,
		Status:       s.active.Status,
		ScenarioID:   req.ScenarioID,
		TotalRounds:  rounds,
		Message:      fmt.Sprintf("Simulation for %s started and completed.", req.ScenarioID),
	})
}

// lookup returns the active series if id names it.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, prefix string) *backend.Series {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if s.active == nil || s.active.SimulationID != id {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Simulation not found or ID mismatch"})
		return nil
	}
	return s.active
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DataError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.DataError})
		return
	}
	if series := s.lookup(w, r, "/api/simulation/data/"); series != nil {
		writeJSON(w, http.StatusOK, series)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if series := s.lookup(w, r, "/api/simulation/status/"); series != nil {
		writeJSON(w, http.StatusOK, backend.StatusResponse{
			SimulationID: series.SimulationID,
			ScenarioID:   series.ScenarioID,
			Status:       series.Status,
			CurrentRound: series.CurrentRound,
			TotalRounds:  series.TotalRounds,
		})
	}
}

func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefs++

	if s.BriefError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": s.BriefError})
		return
	}
	series := s.lookup(w, r, "/api/simulation/brief/")
	if series == nil {
		return
	}

	perspective := r.URL.Query().Get("perspective")
	if perspective == "" {
		perspective = "CRO"
	}
	switch perspective {
	case "CRO", "Regulator", "Investor":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid perspective. Must be one of ['CRO', 'Regulator', 'Investor']"})
		return
	}
	writeJSON(w, http.StatusOK, Brief(series, perspective))
}

// Run builds a deterministic completed series: each bureau gains or loses a
// little market share every round.
func Run(simulationID, scenarioID string, rounds int) *backend.Series {
	sc := scenarioID
	out := &backend.Series{
		SimulationID: simulationID,
		ScenarioID:   scenarioID,
		Status:       "completed",
		CurrentRound: rounds,
		TotalRounds:  rounds,
		ModelData:    make([]snapshot.ModelRecord, 0, rounds),
		AgentData:    make([]snapshot.AgentRecord, 0, rounds*len(bureaus)),
	}
	drift := []float64{0.02, -0.01, -0.01}
	for r := 1; r <= rounds; r++ {
		yes, no := 0, 0
		for i, name := range bureaus {
			vote := "yes"
			if i > 0 && r%2 == 0 {
				vote = "no"
			}
			if vote == "yes" {
				yes++
			} else {
				no++
			}
			out.AgentData = append(out.AgentData, snapshot.AgentRecord{
				Step:             r,
				AgentID:          i,
				Name:             name,
				Vote:             &vote,
				TrustLevel:       0.5,
				CurrentIncentive: "market_share_expansion",
				MarketShare:      1.0/3 + drift[i]*float64(r-1),
			})
		}
		out.ModelData = append(out.ModelData, snapshot.ModelRecord{
			Step:            r,
			CurrentRound:    r,
			CurrentScenario: &sc,
			TotalVotesYes:   yes,
			TotalVotesNo:    no,
		})
	}
	return out
}

// Brief summarises a series the way the real service does for unknown
// scenarios: market movements plus a generic suggestion per perspective.
func Brief(series *backend.Series, perspective string) backend.Brief {
	b := backend.Brief{ScenarioID: series.ScenarioID, Perspective: perspective}

	var moved []string
	for _, c := range snapshot.ShareChanges(series) {
		if c.Significant() {
			moved = append(moved, c.String()+".")
		}
	}
	if len(moved) > 0 {
		b.Summary.WhatHappened = append(b.Summary.WhatHappened, "Market Impact: "+strings.Join(moved, ", "))
	} else {
		b.Summary.WhatHappened = append(b.Summary.WhatHappened, "Market Impact: No significant market share changes were observed among the major players.")
	}

	switch perspective {
	case "CRO":
		b.Summary.StrategicImplications = []string{"Competitive position shifted over the run."}
		b.Summary.SuggestedNextMove = "Continuously monitor market dynamics, adapt strategies to maintain competitive advantage, and ensure operational resilience."
	case "Regulator":
		b.Summary.StrategicImplications = []string{"Market concentration should be reviewed."}
		b.Summary.SuggestedNextMove = "Ensure market practices remain fair and transparent. Monitor for anti-competitive behavior and systemic risks. Promote data security standards."
	case "Investor":
		b.Summary.StrategicImplications = []string{"Share movements signal changing growth prospects."}
		b.Summary.SuggestedNextMove = "Evaluate the company's strategic positioning, risk management, and long-term value creation potential in light of these events."
	}
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
