package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/control-room/internal/agents"
	"github.com/talgya/control-room/internal/relations"
	"github.com/talgya/control-room/internal/scenario"
)

func s1(t *testing.T) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Builtin().Get("s1")
	require.NoError(t, err)
	return sc
}

func TestApplyMove_ShiftsStandingByDelta(t *testing.T) {
	sc := s1(t)
	board := NewBoard(sc)

	before := board.Standings.Get("eq-cro")
	assert.Equal(t, relations.Score{Trust: 53, Influence: 47}, before)

	rec, err := board.Execute("m1")
	require.NoError(t, err)

	after := board.Standings.Get("eq-cro")
	assert.Equal(t, before.Trust-15, after.Trust)
	assert.Equal(t, before.Influence-5, after.Influence)

	var found bool
	for _, c := range rec.Changes {
		if c.Agent == "eq-cro" {
			found = true
			assert.Equal(t, before, c.Before)
			assert.Equal(t, after, c.After)
		}
	}
	assert.True(t, found)
	assert.Equal(t, 1, rec.Seq)
	assert.Equal(t, "m1", rec.MoveID)
}

func TestApplyMove_LeavesEdgesAndScenarioAlone(t *testing.T) {
	sc := s1(t)
	board := NewBoard(sc)
	edges := board.Relations.Clone()

	_, err := board.Execute("m1")
	require.NoError(t, err)

	assert.Equal(t, edges.Edges(), board.Relations.Edges())
	assert.Equal(t, relations.Score{Trust: 90, Influence: 70}, sc.Relationships["exp-cro"]["exp-risk"])
}

func TestApplyMove_Clamps(t *testing.T) {
	st := relations.NewStandings()
	st.ApplyDelta("a", 95, 3)

	m := scenario.Move{ID: "x", Impacts: map[agents.ID]scenario.Delta{"a": {Trust: 20, Influence: -10}}}
	changes := ApplyMove(st, m)
	require.Len(t, changes, 1)
	assert.Equal(t, relations.Score{Trust: 100, Influence: 0}, changes[0].After)
}

func TestApplyMove_IgnoresUnknownAgents(t *testing.T) {
	st := relations.NewStandings()
	st.ApplyDelta("a", 10, 10)

	m := scenario.Move{ID: "x", Impacts: map[agents.ID]scenario.Delta{
		"a":     {Trust: 5, Influence: 5},
		"ghost": {Trust: 5, Influence: 5},
	}}
	changes := ApplyMove(st, m)
	require.Len(t, changes, 1)
	assert.Equal(t, agents.ID("a"), changes[0].Agent)
	assert.False(t, st.Has("ghost"))
}

func TestApplyMove_Accumulates(t *testing.T) {
	board := NewBoard(s1(t))
	start := board.Standings.Get("eq-cro")

	for i := 0; i < 2; i++ {
		_, err := board.Execute("m1")
		require.NoError(t, err)
	}
	assert.Equal(t, start.Trust-30, board.Standings.Get("eq-cro").Trust)
	assert.Equal(t, 2, board.MovesExecuted())
	assert.Len(t, board.History, 2)
	assert.Equal(t, 2, board.History[1].Seq)
}

func TestBoard_UnknownMove(t *testing.T) {
	board := NewBoard(s1(t))
	_, err := board.Execute("m99")
	assert.ErrorIs(t, err, scenario.ErrNotFound)
	assert.Equal(t, 0, board.MovesExecuted())
	assert.Equal(t, "No moves executed yet.", board.Summary())
}

func TestPlayback_StopsWhenAdvanceEnds(t *testing.T) {
	var calls atomic.Int64
	p := NewPlayback(time.Millisecond, func(step uint64) bool {
		calls.Add(1)
		return step < 3
	})

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
	assert.Equal(t, int64(3), calls.Load())
	assert.False(t, p.Running())
}

func TestPlayback_Stop(t *testing.T) {
	p := NewPlayback(time.Millisecond, func(uint64) bool { return true })

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, p.Running, time.Second, time.Millisecond)
	p.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not stop")
	}
	assert.False(t, p.Running())
}

func TestPlayback_NoStepAfterStop(t *testing.T) {
	// Stop from inside Advance while a tick is already pending; both the stop
	// channel and the ticker are ready on the next pass.
	for i := 0; i < 20; i++ {
		var calls atomic.Int64
		var p *Playback
		p = NewPlayback(time.Millisecond, func(uint64) bool {
			calls.Add(1)
			p.Stop()
			time.Sleep(5 * time.Millisecond)
			return true
		})

		done := make(chan struct{})
		go func() {
			p.Run(context.Background())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("playback did not stop")
		}
		require.Equal(t, int64(1), calls.Load())
		require.Equal(t, uint64(1), p.Steps)
	}
}

func TestPlayback_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPlayback(time.Hour, nil)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playback ignored cancellation")
	}
}

func TestNewPlayback_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewPlayback(0, nil).Interval)
}
