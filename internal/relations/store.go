// Package relations holds pairwise trust/influence between agents and each
// agent's aggregate standing. All scores are integers clamped to [0, 100];
// out-of-range deltas are absorbed by clamping, never rejected.
package relations

import (
	"sort"

	"github.com/talgya/control-room/internal/agents"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Score is a trust/influence pair.
type Score struct {
	Trust     int `json:"trust" yaml:"trust"`
	Influence int `json:"influence" yaml:"influence"`
}

// Add returns s shifted by the deltas, each axis clamped. Any integer delta
// is accepted; the sum saturates instead of overflowing.
func (s Score) Add(dTrust, dInfluence int) Score {
	return Score{
		Trust:     addClamped(s.Trust, dTrust),
		Influence: addClamped(s.Influence, dInfluence),
	}
}

// addClamped returns Clamp(v+d) without overflow. With v in range, any delta
// beyond ±MaxScore saturates the same way as ±MaxScore.
func addClamped(v, d int) int {
	d = max(-MaxScore, min(d, MaxScore))
	return Clamp(Clamp(v) + d)
}

// Clamped returns s with both axes bounded.
func (s Score) Clamped() Score {
	return Score{Trust: Clamp(s.Trust), Influence: Clamp(s.Influence)}
}

// Band is a coarse trust classification used by meters and relationship lines.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// TrustBand classifies the trust axis: >=70 high, >=40 medium, else low.
func (s Score) TrustBand() Band {
	switch {
	case s.Trust >= 70:
		return BandHigh
	case s.Trust >= 40:
		return BandMedium
	default:
		return BandLow
	}
}

// Pair is an ordered (source, target) key. (A,B) and (B,A) are independent.
type Pair struct {
	Source agents.ID
	Target agents.ID
}

// Edge is one stored relationship, used for listings.
type Edge struct {
	Source agents.ID `json:"source"`
	Target agents.ID `json:"target"`
	Score
	Band Band `json:"band"`
}

// Matrix is the nested source → target → score form scenarios are authored in.
type Matrix map[agents.ID]map[agents.ID]Score

// Store maps agent pairs to scores. Absent pairs read as the zero score.
// Store is not safe for concurrent use; the session serializes access.
type Store struct {
	edges map[Pair]Score
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{edges: make(map[Pair]Score)}
}

// FromMatrix builds a store from an authored matrix, clamping every entry.
func FromMatrix(m Matrix) *Store {
	s := NewStore()
	for src, targets := range m {
		for tgt, score := range targets {
			s.edges[Pair{Source: src, Target: tgt}] = score.Clamped()
		}
	}
	return s
}

// Get returns the stored score for (source, target), or the zero score.
func (s *Store) Get(source, target agents.ID) Score {
	return s.edges[Pair{Source: source, Target: target}]
}

// Has reports whether (source, target) has been stored.
func (s *Store) Has(source, target agents.ID) bool {
	_, ok := s.edges[Pair{Source: source, Target: target}]
	return ok
}

// ApplyDelta adds the deltas to (source, target), creating the pair from the
// zero score if absent, and returns the clamped result.
func (s *Store) ApplyDelta(source, target agents.ID, dTrust, dInfluence int) Score {
	key := Pair{Source: source, Target: target}
	next := s.edges[key].Add(dTrust, dInfluence)
	s.edges[key] = next
	return next
}

// Len returns the number of stored pairs.
func (s *Store) Len() int {
	return len(s.edges)
}

// Clone returns an independent copy.
func (s *Store) Clone() *Store {
	c := &Store{edges: make(map[Pair]Score, len(s.edges))}
	for k, v := range s.edges {
		c.edges[k] = v
	}
	return c
}

// Outgoing lists source's edges sorted by target.
func (s *Store) Outgoing(source agents.ID) []Edge {
	var out []Edge
	for k, v := range s.edges {
		if k.Source == source {
			out = append(out, newEdge(k, v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// Incoming lists edges pointing at target sorted by source.
func (s *Store) Incoming(target agents.ID) []Edge {
	var in []Edge
	for k, v := range s.edges {
		if k.Target == target {
			in = append(in, newEdge(k, v))
		}
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Source < in[j].Source })
	return in
}

// Edges lists every stored edge sorted by (source, target).
func (s *Store) Edges() []Edge {
	all := make([]Edge, 0, len(s.edges))
	for k, v := range s.edges {
		all = append(all, newEdge(k, v))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Source != all[j].Source {
			return all[i].Source < all[j].Source
		}
		return all[i].Target < all[j].Target
	})
	return all
}

func newEdge(k Pair, v Score) Edge {
	return Edge{Source: k.Source, Target: k.Target, Score: v, Band: v.TrustBand()}
}
