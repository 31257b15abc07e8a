// Package seed creates a demo participant and a bot match for local runs.
package seed

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/baduklab/arena/internal/engine/mode"
	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
	"github.com/baduklab/arena/internal/engine/storage/sqlite"
	entrypoint "github.com/baduklab/arena/internal/platform/cmd"
	"github.com/baduklab/arena/internal/platform/id"
)

// Config holds seed command configuration.
type Config struct {
	DBPath    string `env:"ARENA_ENGINE_DB_PATH" envDefault:"arena.db"`
	Mode      string `env:"ARENA_SEED_MODE" envDefault:"baduk"`
	BoardSize int    `env:"ARENA_SEED_BOARD_SIZE" envDefault:"9"`
	BotTier   int    `env:"ARENA_SEED_BOT_TIER" envDefault:"2"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Game mode for the seeded match")
	fs.IntVar(&cfg.BoardSize, "size", cfg.BoardSize, "Board size for the seeded match")
	fs.IntVar(&cfg.BotTier, "bot-tier", cfg.BotTier, "Opponent bot tier")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds one participant record and one started human-versus-bot match.
func Run(ctx context.Context, cfg Config) error {
	m := session.Mode(cfg.Mode)
	h, err := mode.ForMode(m)
	if err != nil {
		return err
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now().UTC()
	participantID, err := id.NewID()
	if err != nil {
		return err
	}
	if err := store.Participants().Update(ctx, storage.ParticipantRecord{
		ID:           participantID,
		DisplayName:  "Demo Player",
		Level:        1,
		Rating:       1500,
		MannerScore:  10,
		InventoryCap: 20,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}

	sessionID, err := id.NewID()
	if err != nil {
		return err
	}
	komi := 0.0
	if m.Family() == session.FamilyStrategic {
		komi = 6.5
	}
	botID := fmt.Sprintf("bot-tier-%d", cfg.BotTier)
	s, err := session.New(sessionID, session.Settings{
		Mode:      m,
		Category:  session.CategorySingle,
		BoardSize: cfg.BoardSize,
		Komi:      komi,
		InitialClock: session.Clock{
			Discipline: session.DisciplineFischer,
			Remaining:  10 * time.Minute,
			Increment:  10 * time.Second,
		},
		Participants: [2]string{participantID, botID},
		BotSeat:      1,
		BotID:        botID,
		BotTier:      cfg.BotTier,
	}, now)
	if err != nil {
		return err
	}
	if err := h.Begin(s, now); err != nil {
		return err
	}
	if err := store.ForceSave(ctx, s); err != nil {
		return err
	}
	log.Printf("seeded %s match %s for participant %s", m, sessionID, participantID)
	return nil
}
