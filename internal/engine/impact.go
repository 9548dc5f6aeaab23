// Package engine applies strategic moves to relationship state and drives
// timed playback of a completed simulation's rounds.
package engine

import (
	"sort"

	"github.com/talgya/control-room/internal/agents"
	"github.com/talgya/control-room/internal/relations"
	"github.com/talgya/control-room/internal/scenario"
)

// Change is one agent's standing before and after a move.
type Change struct {
	Agent  agents.ID       `json:"agent"`
	Delta  scenario.Delta  `json:"delta"`
	Before relations.Score `json:"before"`
	After  relations.Score `json:"after"`
}

// ApplyMove adds each impact delta to the named agent's standing, clamped to
// [0, 100], and returns the changes in agent id order. Impacts naming agents
// without a standing are ignored. Applying the same move again applies the
// same deltas again.
func ApplyMove(st *relations.Standings, m scenario.Move) []Change {
	ids := make([]agents.ID, 0, len(m.Impacts))
	for id := range m.Impacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		if !st.Has(id) {
			continue
		}
		d := m.Impacts[id]
		before := st.Get(id)
		after := st.ApplyDelta(id, d.Trust, d.Influence)
		changes = append(changes, Change{Agent: id, Delta: d, Before: before, After: after})
	}
	return changes
}
