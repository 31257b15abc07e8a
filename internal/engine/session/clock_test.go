package session

import (
	"testing"
	"time"
)

func TestClockConsume_FischerDeductsAndIncrements(t *testing.T) {
	c := Clock{Discipline: DisciplineFischer, Remaining: time.Minute, Increment: 5 * time.Second}

	if !c.Consume(20 * time.Second) {
		t.Fatal("clock should not flag with time remaining")
	}
	if c.Remaining != 40*time.Second {
		t.Fatalf("remaining = %s, want 40s", c.Remaining)
	}

	c.CompleteMove()
	if c.Remaining != 45*time.Second {
		t.Fatalf("remaining after increment = %s, want 45s", c.Remaining)
	}
}

func TestClockConsume_FischerFlagsWhenExhausted(t *testing.T) {
	c := Clock{Discipline: DisciplineFischer, Remaining: 10 * time.Second}
	if c.Consume(10 * time.Second) {
		t.Fatal("consuming all main time should flag a fischer clock")
	}
	if !c.Flagged() {
		t.Fatal("clock should report flagged")
	}
}

func TestClockConsume_ByoyomiRollsIntoPeriods(t *testing.T) {
	c := Clock{
		Discipline:   DisciplineByoyomi,
		Remaining:    10 * time.Second,
		Periods:      3,
		PeriodLength: 30 * time.Second,
	}

	if !c.Consume(25 * time.Second) {
		t.Fatal("first overtime period should absorb the overflow")
	}
	if !c.InOvertime {
		t.Fatal("clock should be in overtime")
	}
	if c.Periods != 3 {
		t.Fatalf("periods = %d, want 3 (partial period not burned)", c.Periods)
	}

	if !c.Consume(65 * time.Second) {
		t.Fatal("two full periods burned, one remains")
	}
	if c.Periods != 1 {
		t.Fatalf("periods = %d, want 1", c.Periods)
	}

	if c.Consume(30 * time.Second) {
		t.Fatal("burning the last period should flag")
	}
}

func TestClockFlagged_ByoyomiWithPeriodsLeft(t *testing.T) {
	c := Clock{
		Discipline:   DisciplineByoyomi,
		Remaining:    0,
		Periods:      2,
		PeriodLength: 30 * time.Second,
		InOvertime:   true,
	}
	if c.Flagged() {
		t.Fatal("clock with overtime periods left should not be flagged")
	}
}
