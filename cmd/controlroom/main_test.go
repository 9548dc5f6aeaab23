package main

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/control-room/internal/backend/backendtest"
	"github.com/talgya/control-room/internal/relations"
)

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.Bytes()
}

func TestVersion(t *testing.T) {
	var got map[string]string
	require.NoError(t, json.Unmarshal(execute(t, "version", "--json"), &got))
	assert.Equal(t, version, got["version"])
}

func TestScenarios_JSON(t *testing.T) {
	var got []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(execute(t, "scenarios", "--json"), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "s1", got[0].ID)
}

func TestScenarios_RejectsUnknownStatus(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"scenarios", "--status", "Calm Seas"})
	assert.Error(t, root.Execute())
}

func TestMoves_AppliesLocally(t *testing.T) {
	var got movesReport
	require.NoError(t, json.Unmarshal(execute(t, "moves", "s1", "m1", "--json"), &got))

	require.Len(t, got.Executed, 1)
	assert.Equal(t, 1, got.Executed[0].Seq)

	find := func(list []relations.AgentStanding) relations.Score {
		for _, s := range list {
			if s.Agent == "eq-cro" {
				return s.Score
			}
		}
		t.Fatal("eq-cro missing")
		return relations.Score{}
	}
	assert.Equal(t, relations.Score{Trust: 53, Influence: 47}, find(got.Before))
	assert.Equal(t, relations.Score{Trust: 38, Influence: 42}, find(got.After))
}

func TestMoves_ListsWithoutMoveIDs(t *testing.T) {
	out := string(execute(t, "moves", "s1"))
	assert.Contains(t, out, "m1")
	assert.Regexp(t, `(?m)^\*\s+m1\s`, out)
}

func TestMoves_UnknownMove(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"moves", "s1", "nope"})
	assert.Error(t, root.Execute())
}

func TestPlay_StepsThroughEveryRound(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	t.Setenv("CONTROLROOM_BACKEND_URL", srv.BaseURL())

	var got playReport
	require.NoError(t, json.Unmarshal(execute(t, "play", "s1", "--perspective", "investor", "--json"), &got))

	assert.Equal(t, "completed", string(got.Session.Status))
	require.Len(t, got.Rounds, 5)
	for i, r := range got.Rounds {
		assert.Equal(t, i+1, r.Round)
		assert.Len(t, r.Agents, 3)
	}
	require.NotNil(t, got.Brief)
	assert.Equal(t, "Investor", got.Brief.Perspective)
	assert.NotEmpty(t, got.History)
	assert.Equal(t, len(got.History), got.Events)
	assert.Equal(t, "exclusivity_gambit", srv.LastStart().ScenarioID)
}

func TestPlay_TextOutput(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	t.Setenv("CONTROLROOM_BACKEND_URL", srv.BaseURL())

	out := string(execute(t, "play", "s1"))
	assert.Contains(t, out, "round 5 of 5")
	assert.Contains(t, out, "Market impact:")
	assert.Contains(t, out, "Strategic brief (CRO):")
	assert.Contains(t, out, "Session log (")
}

func TestPlay_PacedPlayback(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()
	t.Setenv("CONTROLROOM_BACKEND_URL", srv.BaseURL())

	var got playReport
	require.NoError(t, json.Unmarshal(execute(t, "play", "s2", "--interval", "1ms", "--rounds", "3", "--json"), &got))
	require.Len(t, got.Rounds, 3)
	assert.Equal(t, 3, got.Rounds[2].Round)
	assert.Equal(t, 2, got.Session.Cursor)
}
