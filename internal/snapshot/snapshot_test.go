package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeRounds builds a series of three rounds with two agents per round.
func threeRounds() *Series {
	s := &Series{SimulationID: "sim_exclusivity_gambit_1234", Status: "completed", TotalRounds: 3, CurrentRound: 3}
	for r := 1; r <= 3; r++ {
		s.ModelData = append(s.ModelData, ModelRecord{Step: r, CurrentRound: r, TotalVotesYes: r})
		s.AgentData = append(s.AgentData,
			AgentRecord{Step: r, AgentID: 0, Name: "Experian", MarketShare: 0.33 + 0.05*float64(r-1)},
			AgentRecord{Step: r, AgentID: 1, Name: "Equifax", MarketShare: 0.33},
		)
	}
	return s
}

func TestDerive_SelectsCursorPlusOne(t *testing.T) {
	s := threeRounds()
	c := NewCursor(3)

	for pos := 0; pos < 3; pos++ {
		c, ok := c.Set(pos)
		require.True(t, ok)

		snap := Derive(s, c)
		assert.Equal(t, pos+1, snap.Round)
		require.NotNil(t, snap.Model)
		assert.Equal(t, pos+1, snap.Model.CurrentRound)
		require.Len(t, snap.Agents, 2)
		for _, a := range snap.Agents {
			assert.Equal(t, pos+1, a.Step)
		}
	}
}

func TestDerive_MissingData(t *testing.T) {
	snap := Derive(nil, NewCursor(5))
	assert.Nil(t, snap.Model)
	assert.NotNil(t, snap.Agents)
	assert.Empty(t, snap.Agents)

	snap = Derive(&Series{ModelData: []ModelRecord{{Step: 1, CurrentRound: 1}}}, NewCursor(1))
	assert.Nil(t, snap.Model, "no agent data means no snapshot")
	assert.Empty(t, snap.Agents)
}

func TestDerive_PastEnd(t *testing.T) {
	s := threeRounds()
	// A cursor longer than the series selects a round with no records.
	c, ok := NewCursor(5).Set(4)
	require.True(t, ok)

	snap := Derive(s, c)
	assert.Equal(t, 5, snap.Round)
	assert.Nil(t, snap.Model)
	assert.Empty(t, snap.Agents)
}

func TestDerive_ModelWithoutAgents(t *testing.T) {
	s := threeRounds()
	s.ModelData = s.ModelData[:1]

	c, _ := NewCursor(3).Set(2)
	snap := Derive(s, c)
	assert.Nil(t, snap.Model)
	assert.Len(t, snap.Agents, 2)
}

func TestDerive_DoesNotMutate(t *testing.T) {
	s := threeRounds()
	before := *threeRounds()

	c, _ := NewCursor(3).Set(1)
	snap := Derive(s, c)
	snap.Agents[0].Name = "changed"
	snap.Model.TotalVotesYes = 99

	assert.Equal(t, before, *s)
}

func TestCursor_Bounds(t *testing.T) {
	c := NewCursor(3)
	assert.Equal(t, 0, c.Pos())
	assert.Equal(t, 0, c.Prev().Pos())

	c = c.Next().Next().Next().Next()
	assert.Equal(t, 2, c.Pos())
	assert.True(t, c.AtEnd())

	_, ok := c.Set(3)
	assert.False(t, ok)
	_, ok = c.Set(-1)
	assert.False(t, ok)

	c, ok = c.Set(1)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Round())
}

func TestCursor_Empty(t *testing.T) {
	c := NewCursor(0)
	assert.Equal(t, 0, c.Next().Pos())
	assert.Equal(t, 0, c.Prev().Pos())
	_, ok := c.Set(0)
	assert.False(t, ok)
	assert.True(t, c.AtEnd())
}

func TestCursor_StepsStayInRange(t *testing.T) {
	for total := 0; total <= 6; total++ {
		c := NewCursor(total)
		moves := []func(Cursor) Cursor{Cursor.Next, Cursor.Next, Cursor.Prev, Cursor.Next, Cursor.Next, Cursor.Next, Cursor.Next, Cursor.Prev}
		for _, m := range moves {
			c = m(c)
			assert.GreaterOrEqual(t, c.Pos(), 0)
			if total > 0 {
				assert.Less(t, c.Pos(), total)
			} else {
				assert.Equal(t, 0, c.Pos())
			}
		}
	}
}

func TestCursor_WithTotal(t *testing.T) {
	c, _ := NewCursor(5).Set(4)
	c = c.WithTotal(3)
	assert.Equal(t, 2, c.Pos())
	assert.Equal(t, 3, c.Total())

	c = c.WithTotal(0)
	assert.Equal(t, 0, c.Pos())
}

func TestTimeline(t *testing.T) {
	c, _ := NewCursor(4).Set(1)
	got := Timeline(c)
	assert.Equal(t, []TimelineEntry{
		{Round: 1, Marker: MarkerPast},
		{Round: 2, Marker: MarkerCurrent},
		{Round: 3, Marker: MarkerFuture},
		{Round: 4, Marker: MarkerFuture},
	}, got)

	assert.Empty(t, Timeline(NewCursor(0)))
}

func TestShareChanges(t *testing.T) {
	changes := ShareChanges(threeRounds())
	require.Len(t, changes, 2)

	assert.Equal(t, "Equifax", changes[0].Name)
	assert.False(t, changes[0].Significant())

	assert.Equal(t, "Experian", changes[1].Name)
	assert.InDelta(t, 10.0, changes[1].Change(), 1e-9)
	assert.True(t, changes[1].Significant())
	assert.Equal(t, "Experian's market share changed by 10.0% (to 43.0%)", changes[1].String())

	assert.Nil(t, ShareChanges(nil))
}

func TestSeries_Rounds(t *testing.T) {
	assert.Equal(t, 3, threeRounds().Rounds())
	assert.Equal(t, 0, (*Series)(nil).Rounds())
	assert.Equal(t, 2, (&Series{AgentData: []AgentRecord{{Step: 1}, {Step: 2}}}).Rounds())
}
