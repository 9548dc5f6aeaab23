package relations

import (
	"sort"

	"github.com/talgya/control-room/internal/agents"
)

// Standings tracks each agent's aggregate trust/influence position.
// Move impacts adjust standings directly; pairwise edges are left alone.
type Standings struct {
	scores map[agents.ID]Score
}

// AgentStanding is one entry of a standings listing.
type AgentStanding struct {
	Agent agents.ID `json:"agent"`
	Score
	Band Band `json:"band"`
}

// NewStandings creates empty standings.
func NewStandings() *Standings {
	return &Standings{scores: make(map[agents.ID]Score)}
}

// DeriveStandings seeds each listed agent's standing with the rounded mean of
// its incoming edges in store. Agents nobody points at start at zero.
func DeriveStandings(store *Store, ids []agents.ID) *Standings {
	st := NewStandings()
	for _, id := range ids {
		in := store.Incoming(id)
		if len(in) == 0 {
			st.scores[id] = Score{}
			continue
		}
		var trust, influence int
		for _, e := range in {
			trust += e.Trust
			influence += e.Influence
		}
		st.scores[id] = Score{
			Trust:     roundedMean(trust, len(in)),
			Influence: roundedMean(influence, len(in)),
		}
	}
	return st
}

// roundedMean divides with half-up rounding; sums are never negative.
func roundedMean(sum, n int) int {
	return Clamp((sum*2 + n) / (n * 2))
}

// Get returns id's standing, or the zero score.
func (st *Standings) Get(id agents.ID) Score {
	return st.scores[id]
}

// Has reports whether id has a standing.
func (st *Standings) Has(id agents.ID) bool {
	_, ok := st.scores[id]
	return ok
}

// ApplyDelta shifts id's standing, clamped, and returns the new value.
func (st *Standings) ApplyDelta(id agents.ID, dTrust, dInfluence int) Score {
	next := st.scores[id].Add(dTrust, dInfluence)
	st.scores[id] = next
	return next
}

// Clone returns an independent copy.
func (st *Standings) Clone() *Standings {
	c := &Standings{scores: make(map[agents.ID]Score, len(st.scores))}
	for k, v := range st.scores {
		c.scores[k] = v
	}
	return c
}

// List returns all standings sorted by agent id.
func (st *Standings) List() []AgentStanding {
	out := make([]AgentStanding, 0, len(st.scores))
	for id, s := range st.scores {
		out = append(out, AgentStanding{Agent: id, Score: s, Band: s.TrustBand()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}
