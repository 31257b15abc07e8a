package seed

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Mode != "baduk" {
		t.Fatalf("expected default mode baduk, got %q", cfg.Mode)
	}
	if cfg.BoardSize != 9 {
		t.Fatalf("expected default board size 9, got %d", cfg.BoardSize)
	}
	if cfg.BotTier != 2 {
		t.Fatalf("expected default bot tier 2, got %d", cfg.BotTier)
	}
}

func TestRunSeedsStartedMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.db")
	cfg := Config{DBPath: path, Mode: "baduk", BoardSize: 9, BotTier: 3}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	live, err := store.ListLive(context.Background())
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(live) != 1 {
		t.Fatalf("live sessions = %d, want 1", len(live))
	}
	s := live[0]
	if s.Phase != session.PhasePlaying {
		t.Fatalf("phase = %s, want playing", s.Phase)
	}
	if !s.Seats[1].Bot() || s.Seats[1].BotTier != 3 {
		t.Fatalf("seat 1 = %+v, want tier-3 bot", s.Seats[1])
	}
	if _, err := store.Participants().Get(context.Background(), s.Seats[0].ParticipantID); err != nil {
		t.Fatalf("seeded participant missing: %v", err)
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := Config{DBPath: filepath.Join(t.TempDir(), "seed.db"), Mode: "checkers", BoardSize: 9}
	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
