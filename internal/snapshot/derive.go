package snapshot

import (
	"fmt"
	"sort"
)

// Snapshot is the state of a single round.
type Snapshot struct {
	Round  int           `json:"round"`
	Model  *ModelRecord  `json:"model"`
	Agents []AgentRecord `json:"agents"`
}

// Derive selects the records belonging to the cursor's round (cursor+1).
// Missing data yields a nil model and an empty, non-nil agent list. The
// series is not modified.
func Derive(s *Series, c Cursor) Snapshot {
	round := c.Round()
	snap := Snapshot{Round: round, Agents: []AgentRecord{}}
	if s == nil || len(s.AgentData) == 0 {
		return snap
	}

	for _, a := range s.AgentData {
		if a.Step == round {
			snap.Agents = append(snap.Agents, a)
		}
	}
	for i := range s.ModelData {
		if s.ModelData[i].CurrentRound == round {
			m := s.ModelData[i]
			snap.Model = &m
			break
		}
	}
	return snap
}

// Marker is a round's position relative to the cursor.
type Marker string

const (
	MarkerPast    Marker = "past"
	MarkerCurrent Marker = "current"
	MarkerFuture  Marker = "future"
)

// TimelineEntry is one round on the progress bar.
type TimelineEntry struct {
	Round  int    `json:"round"`
	Marker Marker `json:"marker"`
}

// Timeline returns one entry per round with its marker.
func Timeline(c Cursor) []TimelineEntry {
	out := make([]TimelineEntry, 0, c.Total())
	for i := 0; i < c.Total(); i++ {
		m := MarkerFuture
		switch {
		case i < c.Pos():
			m = MarkerPast
		case i == c.Pos():
			m = MarkerCurrent
		}
		out = append(out, TimelineEntry{Round: i + 1, Marker: m})
	}
	return out
}

// ShareChange is an agent's market share movement over a run.
type ShareChange struct {
	Name    string  `json:"name"`
	Initial float64 `json:"initial"`
	Final   float64 `json:"final"`
}

// Change is the difference in percentage points.
func (sc ShareChange) Change() float64 {
	return (sc.Final - sc.Initial) * 100
}

// Significant reports whether the change exceeds a tenth of a point.
func (sc ShareChange) Significant() bool {
	d := sc.Change()
	return d > 0.1 || d < -0.1
}

func (sc ShareChange) String() string {
	return fmt.Sprintf("%s's market share changed by %.1f%% (to %.1f%%)", sc.Name, sc.Change(), sc.Final*100)
}

// ShareChanges compares each agent's market share at round 1 with the last
// round, sorted by agent name. Agents absent from round 1 use their final
// share as the initial one.
func ShareChanges(s *Series) []ShareChange {
	last := s.Rounds()
	if last == 0 {
		return nil
	}

	initial := make(map[string]float64)
	final := make(map[string]float64)
	for _, a := range s.AgentData {
		if a.Step == 1 {
			initial[a.Name] = a.MarketShare
		}
		if a.Step == last {
			final[a.Name] = a.MarketShare
		}
	}

	out := make([]ShareChange, 0, len(final))
	for name, f := range final {
		i, ok := initial[name]
		if !ok {
			i = f
		}
		out = append(out, ShareChange{Name: name, Initial: i, Final: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
