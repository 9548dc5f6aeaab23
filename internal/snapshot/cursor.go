package snapshot

// Cursor is a 0-based round index bounded by a total round count. The zero
// value is a cursor over no rounds.
type Cursor struct {
	pos   int
	total int
}

// NewCursor returns a cursor at round 0 of total rounds. Negative totals are
// treated as zero.
func NewCursor(total int) Cursor {
	if total < 0 {
		total = 0
	}
	return Cursor{total: total}
}

// Pos is the 0-based index.
func (c Cursor) Pos() int { return c.pos }

// Total is the number of rounds.
func (c Cursor) Total() int { return c.total }

// Round is the 1-based round number the cursor selects.
func (c Cursor) Round() int { return c.pos + 1 }

// AtEnd reports whether the cursor is on the last round.
func (c Cursor) AtEnd() bool { return c.total == 0 || c.pos >= c.total-1 }

// Next advances one round, stopping at the last.
func (c Cursor) Next() Cursor {
	if c.pos+1 < c.total {
		c.pos++
	}
	return c
}

// Prev steps back one round, stopping at the first.
func (c Cursor) Prev() Cursor {
	if c.pos > 0 {
		c.pos--
	}
	return c
}

// Set moves to round r. Out-of-range values leave the cursor unchanged and
// report false.
func (c Cursor) Set(r int) (Cursor, bool) {
	if r < 0 || r >= c.total {
		return c, false
	}
	c.pos = r
	return c, true
}

// WithTotal changes the round count, pulling the position back inside it.
func (c Cursor) WithTotal(total int) Cursor {
	if total < 0 {
		total = 0
	}
	c.total = total
	if c.pos > 0 && c.pos >= total {
		c.pos = max(total-1, 0)
	}
	return c
}
