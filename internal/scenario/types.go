// Package scenario provides the static scenario catalog: agents, their
// initial relationship matrix, and the ordered moves available in each
// strategic situation. Scenarios are read-only reference data.
package scenario

import (
	"errors"
	"fmt"

	"github.com/talgya/control-room/internal/agents"
	"github.com/talgya/control-room/internal/relations"
)

// ErrNotFound is returned when a scenario or move id is not in the catalog.
var ErrNotFound = errors.New("not found")

// MoveType is a strategic archetype.
type MoveType string

const (
	MoveCollaborate MoveType = "Collaborate"
	MoveCompete     MoveType = "Compete"
	MoveRegulate    MoveType = "Regulate"
	MoveInnovate    MoveType = "Innovate"
	MoveConsolidate MoveType = "Consolidate"
)

// MoveTypes lists every archetype.
var MoveTypes = []MoveType{MoveCollaborate, MoveCompete, MoveRegulate, MoveInnovate, MoveConsolidate}

// Valid reports whether t is a known archetype.
func (t MoveType) Valid() bool {
	for _, known := range MoveTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the headline state shown on a scenario card.
type Status string

const (
	StatusStrategicGain  Status = "Strategic Gain"
	StatusRisingTension  Status = "Rising Tension"
	StatusEcosystemShock Status = "Ecosystem Shock"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusStrategicGain || s == StatusRisingTension || s == StatusEcosystemShock
}

// Delta is a signed trust/influence change, roughly in [-100, 100].
type Delta struct {
	Trust     int `json:"trust" yaml:"trust"`
	Influence int `json:"influence" yaml:"influence"`
}

// Move is a discrete strategic action with authored per-agent effects.
type Move struct {
	ID          string              `json:"id" yaml:"id"`
	Title       string              `json:"title" yaml:"title"`
	Description string              `json:"description" yaml:"description"`
	Type        MoveType            `json:"type" yaml:"type"`
	Impacts     map[agents.ID]Delta `json:"impacts" yaml:"impacts"`
}

// Scenario is a self-contained strategic situation.
type Scenario struct {
	ID               string           `json:"id" yaml:"id"`
	RemoteID         string           `json:"remote_id,omitempty" yaml:"remote_id"` // Backend scenario this drives
	Title            string           `json:"title" yaml:"title"`
	Description      string           `json:"description" yaml:"description"`
	Background       string           `json:"background" yaml:"background"`
	Status           Status           `json:"status" yaml:"status"`
	Rounds           int              `json:"rounds" yaml:"rounds"`
	CurrentMoveIndex int              `json:"current_move_index" yaml:"current_move_index"`
	Image            string           `json:"image,omitempty" yaml:"image"`
	Agents           []agents.Agent   `json:"agents" yaml:"agents"`
	Relationships    relations.Matrix `json:"relationships" yaml:"relationships"`
	Moves            []Move           `json:"moves" yaml:"moves"`
}

// BackendID returns the scenario id the remote service knows, defaulting to ID.
func (s *Scenario) BackendID() string {
	if s.RemoteID != "" {
		return s.RemoteID
	}
	return s.ID
}

// AgentIDs returns agent ids in authored order.
func (s *Scenario) AgentIDs() []agents.ID {
	ids := make([]agents.ID, len(s.Agents))
	for i, a := range s.Agents {
		ids[i] = a.ID
	}
	return ids
}

// Agent looks up an agent by id.
func (s *Scenario) Agent(id agents.ID) (agents.Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return agents.Agent{}, false
}

// Move looks up a move by id.
func (s *Scenario) Move(id string) (Move, error) {
	for _, m := range s.Moves {
		if m.ID == id {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("move %q in scenario %s: %w", id, s.ID, ErrNotFound)
}

// CurrentMove returns the move at CurrentMoveIndex, if any.
func (s *Scenario) CurrentMove() (Move, bool) {
	if s.CurrentMoveIndex < 0 || s.CurrentMoveIndex >= len(s.Moves) {
		return Move{}, false
	}
	return s.Moves[s.CurrentMoveIndex], true
}

// Validate checks catalog-level structure: ids, enums, round count, and that
// the relationship matrix only names agents in the scenario. Move impacts are
// not checked against the agent list; the impact engine ignores unknown ids.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return errors.New("scenario: missing id")
	}
	if s.Rounds <= 0 {
		return fmt.Errorf("scenario %s: rounds must be positive, got %d", s.ID, s.Rounds)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("scenario %s: unknown status %q", s.ID, s.Status)
	}

	seen := make(map[agents.ID]bool, len(s.Agents))
	for _, a := range s.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("scenario %s: duplicate agent %s", s.ID, a.ID)
		}
		seen[a.ID] = true
	}

	for src, targets := range s.Relationships {
		if !seen[src] {
			return fmt.Errorf("scenario %s: relationship source %s is not an agent", s.ID, src)
		}
		for tgt := range targets {
			if !seen[tgt] {
				return fmt.Errorf("scenario %s: relationship target %s is not an agent", s.ID, tgt)
			}
		}
	}

	moveIDs := make(map[string]bool, len(s.Moves))
	for _, m := range s.Moves {
		if m.ID == "" {
			return fmt.Errorf("scenario %s: move %q has no id", s.ID, m.Title)
		}
		if moveIDs[m.ID] {
			return fmt.Errorf("scenario %s: duplicate move %s", s.ID, m.ID)
		}
		if !m.Type.Valid() {
			return fmt.Errorf("scenario %s: move %s: unknown type %q", s.ID, m.ID, m.Type)
		}
		moveIDs[m.ID] = true
	}
	return nil
}
