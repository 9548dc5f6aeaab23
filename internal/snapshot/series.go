// Package snapshot turns the flat per-step time series returned by the
// simulation backend into the view of a single round.
package snapshot

// AgentRecord is one agent's state at one step of a completed run.
// Field names follow the backend's data collector columns.
type AgentRecord struct {
	Step             int     `json:"Step"`
	AgentID          int     `json:"AgentID"`
	Name             string  `json:"Name"`
	Vote             *string `json:"Vote"`
	TrustLevel       float64 `json:"TrustLevel"`
	CurrentIncentive string  `json:"CurrentIncentive"`
	MarketShare      float64 `json:"MarketShare"`
}

// ModelRecord is the model-level state at one step.
type ModelRecord struct {
	Step                   int     `json:"Step"`
	CurrentRound           int     `json:"CurrentRound"`
	CurrentScenario        *string `json:"CurrentScenario"`
	TotalVotesYes          int     `json:"TotalVotesYes"`
	TotalVotesNo           int     `json:"TotalVotesNo"`
	TotalVotesAbstain      int     `json:"TotalVotesAbstain"`
	ExclusivityDealSecured *bool   `json:"ExclusivityDealSecured"`
}

// Series is the full result of a completed simulation run. Rounds are
// 1-based in the records.
type Series struct {
	SimulationID string        `json:"simulation_id"`
	ScenarioID   string        `json:"scenario_id"`
	Status       string        `json:"status"`
	CurrentRound int           `json:"current_round"`
	TotalRounds  int           `json:"total_rounds"`
	ModelData    []ModelRecord `json:"model_data"`
	AgentData    []AgentRecord `json:"agent_data"`
}

// Rounds returns the highest round present in the model data, falling back
// to the agent steps, or 0 for an empty series.
func (s *Series) Rounds() int {
	if s == nil {
		return 0
	}
	hi := 0
	for _, m := range s.ModelData {
		if m.CurrentRound > hi {
			hi = m.CurrentRound
		}
	}
	if hi > 0 {
		return hi
	}
	for _, a := range s.AgentData {
		if a.Step > hi {
			hi = a.Step
		}
	}
	return hi
}
