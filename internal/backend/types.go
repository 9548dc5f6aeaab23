// Package backend is the HTTP client for the remote simulation service that
// runs scenarios and writes outcome briefs.
package backend

import (
	"errors"
	"fmt"

	"github.com/talgya/control-room/internal/snapshot"
)

// Series is the body of GET /simulation/data/{id}.
type Series = snapshot.Series

// ScenarioSummary mirrors items from GET /scenarios.
type ScenarioSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rounds      int    `json:"rounds"`
	ImageURL    string `json:"image_url"`
}

// StartRequest is the body of POST /simulation/start. A nil NumRounds lets
// the service use the scenario's default.
type StartRequest struct {
	ScenarioID string `json:"scenario_id"`
	NumRounds  *int   `json:"num_rounds,omitempty"`
}

// StartResponse is the result of POST /simulation/start.
type StartResponse struct {
	SimulationID string `json:"simulation_id"`
	Status       string `json:"status"`
	ScenarioID   string `json:"scenario_id"`
	TotalRounds  int    `json:"total_rounds"`
	Message      string `json:"message"`
}

// StatusResponse mirrors GET /simulation/status/{id}.
type StatusResponse struct {
	SimulationID string `json:"simulation_id"`
	ScenarioID   string `json:"scenario_id"`
	Status       string `json:"status"`
	CurrentRound int    `json:"current_round"`
	TotalRounds  int    `json:"total_rounds"`
}

// BriefSummary is the body of an outcome brief.
type BriefSummary struct {
	WhatHappened          []string `json:"what_happened"`
	StrategicImplications []string `json:"strategic_implications"`
	SuggestedNextMove     string   `json:"suggested_next_move"`
}

// Brief is a perspective-specific summary of a completed run.
type Brief struct {
	ScenarioID  string       `json:"scenario_id"`
	Perspective string       `json:"perspective"`
	Summary     BriefSummary `json:"summary"`
}

// Error is a non-2xx response from the service.
type Error struct {
	Op         string // e.g. "POST /simulation/start"
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: HTTP %d - %s", e.Op, e.StatusCode, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 if err is not a
// service error.
func StatusOf(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}
