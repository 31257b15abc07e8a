// Package engine parses engine command flags and starts the tick runtime.
package engine

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/baduklab/arena/internal/engine/analyzer"
	"github.com/baduklab/arena/internal/engine/bot"
	"github.com/baduklab/arena/internal/engine/scheduler"
	"github.com/baduklab/arena/internal/engine/scoring"
	"github.com/baduklab/arena/internal/engine/settlement"
	"github.com/baduklab/arena/internal/engine/storage/sqlite"
	entrypoint "github.com/baduklab/arena/internal/platform/cmd"
	"github.com/baduklab/arena/internal/random"
	"github.com/baduklab/arena/internal/telemetry"
)

// Config holds engine command configuration.
type Config struct {
	DBPath          string        `env:"ARENA_ENGINE_DB_PATH" envDefault:"arena.db"`
	TickInterval    time.Duration `env:"ARENA_ENGINE_TICK_INTERVAL" envDefault:"250ms"`
	AnalyzerURL     string        `env:"ARENA_ANALYZER_URL"`
	AnalyzerTimeout time.Duration `env:"ARENA_ANALYZER_TIMEOUT" envDefault:"30s"`
	BotThinkMin     time.Duration `env:"ARENA_ENGINE_BOT_THINK_MIN" envDefault:"800ms"`
	BotThinkMax     time.Duration `env:"ARENA_ENGINE_BOT_THINK_MAX" envDefault:"2500ms"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Scheduler tick interval")
	fs.StringVar(&cfg.AnalyzerURL, "analyzer-url", cfg.AnalyzerURL, "External analyzer base URL (empty disables the analyzer tier)")
	fs.DurationVar(&cfg.AnalyzerTimeout, "analyzer-timeout", cfg.AnalyzerTimeout, "External analyzer request timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the engine tick loop against the configured store.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEngine, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		seed, err := random.NewSeed()
		if err != nil {
			return err
		}

		emitter := telemetry.NewEmitter(store)
		var scorer scoring.Analyzer
		if cfg.AnalyzerURL != "" {
			scorer = analyzer.New(cfg.AnalyzerURL, cfg.AnalyzerTimeout)
		}
		settler := settlement.NewService(store, store.Participants(), emitter, nil, nil, nil, seed)
		pipeline := scoring.NewPipeline(store, scorer, settler, emitter, nil, seed, scoring.Options{
			AnalyzeTimeout: cfg.AnalyzerTimeout,
		})
		defer pipeline.Drain()

		sch := scheduler.New(store, store.Participants(), bot.NewGenerator(nil, seed),
			pipeline, emitter, nil, seed, scheduler.Options{
				ThinkMin:   cfg.BotThinkMin,
				ThinkMax:   cfg.BotThinkMax,
				TickPeriod: cfg.TickInterval,
			})
		if err := sch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
