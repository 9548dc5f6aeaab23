package relations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/control-room/internal/agents"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-500, 0},
		{-1, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{101, 100},
		{1 << 30, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in), "Clamp(%d)", tt.in)
	}
}

func TestStore_GetAbsentPairIsZero(t *testing.T) {
	s := NewStore()
	assert.Equal(t, Score{}, s.Get("a", "b"))
	assert.False(t, s.Has("a", "b"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_ApplyDeltaCreatesAndClamps(t *testing.T) {
	s := NewStore()

	got := s.ApplyDelta("a", "b", -20, 30)
	assert.Equal(t, Score{Trust: 0, Influence: 30}, got)
	assert.True(t, s.Has("a", "b"))

	got = s.ApplyDelta("a", "b", 150, 90)
	assert.Equal(t, Score{Trust: 100, Influence: 100}, got)
	assert.Equal(t, got, s.Get("a", "b"))
}

func TestStore_Asymmetric(t *testing.T) {
	s := NewStore()
	s.ApplyDelta("a", "b", 40, 10)

	assert.Equal(t, Score{Trust: 40, Influence: 10}, s.Get("a", "b"))
	assert.Equal(t, Score{}, s.Get("b", "a"))
}

func TestStore_ApplyDeltaAlwaysInRange(t *testing.T) {
	deltas := []int{-1000, -101, -100, -37, -1, 0, 1, 42, 99, 100, 101, 1000}
	starts := []int{0, 1, 50, 99, 100}

	for _, start := range starts {
		for _, dt := range deltas {
			for _, di := range deltas {
				s := FromMatrix(Matrix{"a": {"b": {Trust: start, Influence: start}}})
				got := s.ApplyDelta("a", "b", dt, di)
				require.GreaterOrEqual(t, got.Trust, MinScore)
				require.LessOrEqual(t, got.Trust, MaxScore)
				require.GreaterOrEqual(t, got.Influence, MinScore)
				require.LessOrEqual(t, got.Influence, MaxScore)
				require.Equal(t, Clamp(start+dt), got.Trust)
				require.Equal(t, Clamp(start+di), got.Influence)
			}
		}
	}
}

func TestStore_ApplyDeltaSaturatesExtremeDeltas(t *testing.T) {
	tests := []struct {
		name       string
		start      int
		dTrust     int
		dInfluence int
		want       Score
	}{
		{"max from middle", 50, math.MaxInt, math.MaxInt, Score{Trust: 100, Influence: 100}},
		{"min from middle", 50, math.MinInt, math.MinInt, Score{Trust: 0, Influence: 0}},
		{"max from top", 100, math.MaxInt, math.MinInt, Score{Trust: 100, Influence: 0}},
		{"min from bottom", 0, math.MinInt, math.MaxInt, Score{Trust: 0, Influence: 100}},
		{"just past max", 1, math.MaxInt - 1, -math.MaxInt, Score{Trust: 100, Influence: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromMatrix(Matrix{"a": {"b": {Trust: tt.start, Influence: tt.start}}})
			assert.Equal(t, tt.want, s.ApplyDelta("a", "b", tt.dTrust, tt.dInfluence))
			assert.Equal(t, tt.want, s.Get("a", "b"))
		})
	}
}

func TestStandings_ApplyDeltaSaturatesExtremeDeltas(t *testing.T) {
	st := NewStandings()
	st.ApplyDelta("a", 50, 50)
	assert.Equal(t, Score{Trust: 100, Influence: 100}, st.ApplyDelta("a", math.MaxInt, math.MaxInt))
	assert.Equal(t, Score{Trust: 0, Influence: 0}, st.ApplyDelta("a", math.MinInt, math.MinInt))
}

func TestFromMatrix_ClampsAuthoredValues(t *testing.T) {
	s := FromMatrix(Matrix{
		"a": {"b": {Trust: 120, Influence: -5}},
	})
	assert.Equal(t, Score{Trust: 100, Influence: 0}, s.Get("a", "b"))
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := FromMatrix(Matrix{"a": {"b": {Trust: 50, Influence: 50}}})
	c := s.Clone()
	c.ApplyDelta("a", "b", 10, 10)

	assert.Equal(t, Score{Trust: 50, Influence: 50}, s.Get("a", "b"))
	assert.Equal(t, Score{Trust: 60, Influence: 60}, c.Get("a", "b"))
}

func TestStore_Listings(t *testing.T) {
	s := FromMatrix(Matrix{
		"a": {"c": {Trust: 80}, "b": {Trust: 45}},
		"b": {"a": {Trust: 10}},
	})

	out := s.Outgoing("a")
	require.Len(t, out, 2)
	assert.Equal(t, agents.ID("b"), out[0].Target)
	assert.Equal(t, BandMedium, out[0].Band)
	assert.Equal(t, agents.ID("c"), out[1].Target)
	assert.Equal(t, BandHigh, out[1].Band)

	in := s.Incoming("a")
	require.Len(t, in, 1)
	assert.Equal(t, agents.ID("b"), in[0].Source)
	assert.Equal(t, BandLow, in[0].Band)

	all := s.Edges()
	require.Len(t, all, 3)
	assert.Equal(t, Pair{"a", "b"}, Pair{all[0].Source, all[0].Target})
	assert.Equal(t, Pair{"b", "a"}, Pair{all[2].Source, all[2].Target})
}

func TestScore_TrustBand(t *testing.T) {
	assert.Equal(t, BandHigh, Score{Trust: 70}.TrustBand())
	assert.Equal(t, BandMedium, Score{Trust: 69}.TrustBand())
	assert.Equal(t, BandMedium, Score{Trust: 40}.TrustBand())
	assert.Equal(t, BandLow, Score{Trust: 39}.TrustBand())
}
