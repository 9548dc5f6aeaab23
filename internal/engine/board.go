package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/control-room/internal/relations"
	"github.com/talgya/control-room/internal/scenario"
)

// maxHistory bounds the executed-move log.
const maxHistory = 200

// MoveRecord is an executed move in the board's history.
type MoveRecord struct {
	Seq     int               `json:"seq"`
	MoveID  string            `json:"move_id"`
	Title   string            `json:"title"`
	Type    scenario.MoveType `json:"type"`
	Changes []Change          `json:"changes"`
	At      time.Time         `json:"at"`
}

// Board is the locally mutable relationship state of one scenario: pairwise
// edges seeded from the authored matrix, and per-agent standings that moves
// adjust. The scenario itself is never mutated.
type Board struct {
	Scenario  *scenario.Scenario
	Relations *relations.Store
	Standings *relations.Standings
	History   []MoveRecord

	seq int
}

// NewBoard seeds a board from a scenario.
func NewBoard(sc *scenario.Scenario) *Board {
	store := relations.FromMatrix(sc.Relationships)
	return &Board{
		Scenario:  sc,
		Relations: store,
		Standings: relations.DeriveStandings(store, sc.AgentIDs()),
	}
}

// Execute applies the move with the given id and records it.
func (b *Board) Execute(moveID string) (MoveRecord, error) {
	m, err := b.Scenario.Move(moveID)
	if err != nil {
		return MoveRecord{}, err
	}

	b.seq++
	rec := MoveRecord{
		Seq:     b.seq,
		MoveID:  m.ID,
		Title:   m.Title,
		Type:    m.Type,
		Changes: ApplyMove(b.Standings, m),
		At:      time.Now().UTC(),
	}
	b.History = append(b.History, rec)
	if len(b.History) > maxHistory {
		b.History = b.History[len(b.History)-maxHistory:]
	}

	slog.Info("move executed",
		"scenario", b.Scenario.ID,
		"move", m.ID,
		"type", m.Type,
		"seq", rec.Seq,
		"agents", len(rec.Changes),
	)
	return rec, nil
}

// MovesExecuted returns how many moves have been executed on this board.
func (b *Board) MovesExecuted() int {
	return b.seq
}

// Summary is a one-line description of the last executed move.
func (b *Board) Summary() string {
	if len(b.History) == 0 {
		return "No moves executed yet."
	}
	last := b.History[len(b.History)-1]
	return fmt.Sprintf("Move %d: %s (%s)", last.Seq, last.Title, last.Type)
}
