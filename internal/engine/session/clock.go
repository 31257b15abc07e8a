package session

import "time"

// Discipline selects the per-move clock increment rule.
type Discipline string

const (
	DisciplineByoyomi Discipline = "byoyomi"
	DisciplineFischer Discipline = "fischer"
)

// Clock tracks one seat's remaining time under its increment discipline.
// Clocks are mutated only by the mode state machine.
type Clock struct {
	Discipline Discipline
	Remaining  time.Duration

	// Byoyomi bookkeeping: overtime periods of PeriodLength each.
	Periods      int
	PeriodLength time.Duration

	// Fischer bookkeeping: added after every completed move.
	Increment time.Duration

	// InOvertime is set once main time is exhausted under byoyomi.
	InOvertime bool
}

// Consume deducts elapsed thinking time. Under byoyomi, exhausting main time
// rolls into overtime periods; a period is burned only when fully used.
// It returns false when the clock has flagged (no time left).
func (c *Clock) Consume(elapsed time.Duration) bool {
	if elapsed <= 0 {
		return true
	}

	if !c.InOvertime {
		if elapsed < c.Remaining {
			c.Remaining -= elapsed
			return true
		}
		elapsed -= c.Remaining
		c.Remaining = 0
		if c.Discipline != DisciplineByoyomi || c.Periods == 0 {
			return false
		}
		c.InOvertime = true
	}

	for elapsed >= c.PeriodLength {
		elapsed -= c.PeriodLength
		c.Periods--
		if c.Periods <= 0 {
			return false
		}
	}
	return true
}

// CompleteMove applies the post-move increment for the discipline. A byoyomi
// seat that answered within the period keeps the full period.
func (c *Clock) CompleteMove() {
	switch c.Discipline {
	case DisciplineFischer:
		c.Remaining += c.Increment
	case DisciplineByoyomi:
		// Periods reset implicitly: Consume only burns fully-used periods.
	}
}

// Flagged reports whether the clock has no time left.
func (c *Clock) Flagged() bool {
	if c.Remaining > 0 {
		return false
	}
	if c.Discipline == DisciplineByoyomi {
		return c.InOvertime && c.Periods <= 0 || !c.InOvertime && c.Periods == 0
	}
	return true
}
