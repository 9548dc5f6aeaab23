package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/control-room/internal/agents"
)

func TestDeriveStandings_MeanOfIncoming(t *testing.T) {
	s := FromMatrix(Matrix{
		"a": {"c": {Trust: 50, Influence: 10}},
		"b": {"c": {Trust: 55, Influence: 11}},
	})

	st := DeriveStandings(s, []agents.ID{"a", "c"})

	// (50+55)/2 = 52.5 rounds up; (10+11)/2 = 10.5 rounds up.
	assert.Equal(t, Score{Trust: 53, Influence: 11}, st.Get("c"))
	assert.True(t, st.Has("a"))
	assert.Equal(t, Score{}, st.Get("a"))
	assert.False(t, st.Has("b"))
}

func TestStandings_ApplyDeltaClamps(t *testing.T) {
	st := NewStandings()
	st.ApplyDelta("a", 30, 95)
	got := st.ApplyDelta("a", -50, 20)

	assert.Equal(t, Score{Trust: 0, Influence: 100}, got)
	assert.Equal(t, got, st.Get("a"))
}

func TestStandings_CloneAndList(t *testing.T) {
	st := NewStandings()
	st.ApplyDelta("b", 75, 5)
	st.ApplyDelta("a", 10, 5)

	c := st.Clone()
	c.ApplyDelta("a", 10, 0)
	assert.Equal(t, 10, st.Get("a").Trust)

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, agents.ID("a"), list[0].Agent)
	assert.Equal(t, BandLow, list[0].Band)
	assert.Equal(t, BandHigh, list[1].Band)
}
