// Package scheduler runs the fixed-tick game loop over all live sessions.
//
// Sessions in the single-player category share no mutable state and fan out
// concurrently; shared sessions run sequentially within the tick. Every
// session's update is isolated: a panic or error during one session's tick
// degrades to a no-op for that session and never affects siblings.
package scheduler

import (
	"context"
	"log"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/baduklab/arena/internal/engine/bot"
	"github.com/baduklab/arena/internal/engine/mode"
	"github.com/baduklab/arena/internal/engine/notify"
	"github.com/baduklab/arena/internal/engine/scoring"
	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
	"github.com/baduklab/arena/internal/random"
	"github.com/baduklab/arena/internal/telemetry"
)

const (
	defaultThinkMin   = 800 * time.Millisecond
	defaultThinkMax   = 2500 * time.Millisecond
	defaultBotRetry   = 500 * time.Millisecond
	cooldownWindow    = 5 * time.Minute
	defaultTickPeriod = 250 * time.Millisecond
)

// Options tune the scheduler; zero values take defaults.
type Options struct {
	ThinkMin   time.Duration
	ThinkMax   time.Duration
	BotRetry   time.Duration
	TickPeriod time.Duration
}

// Scheduler orchestrates one protocol step per live session per tick.
type Scheduler struct {
	store        storage.SessionStore
	participants storage.ParticipantStore
	bots         *bot.Generator
	pipeline     *scoring.Pipeline
	emitter      *telemetry.Emitter
	notifier     notify.Notifier
	tracer       trace.Tracer
	rng          *rand.Rand

	thinkMin   time.Duration
	thinkMax   time.Duration
	botRetry   time.Duration
	tickPeriod time.Duration
}

// New wires the scheduler. The notifier may be nil.
func New(store storage.SessionStore, participants storage.ParticipantStore, bots *bot.Generator, pipeline *scoring.Pipeline, emitter *telemetry.Emitter, notifier notify.Notifier, seed int64, opts Options) *Scheduler {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if opts.ThinkMin == 0 {
		opts.ThinkMin = defaultThinkMin
	}
	if opts.ThinkMax <= opts.ThinkMin {
		opts.ThinkMax = opts.ThinkMin + (defaultThinkMax - defaultThinkMin)
	}
	if opts.BotRetry == 0 {
		opts.BotRetry = defaultBotRetry
	}
	if opts.TickPeriod == 0 {
		opts.TickPeriod = defaultTickPeriod
	}
	return &Scheduler{
		store:        store,
		participants: participants,
		bots:         bots,
		pipeline:     pipeline,
		emitter:      emitter,
		notifier:     notifier,
		tracer:       otel.Tracer("arena/scheduler"),
		rng:          random.NewLockedRand(seed),
		thinkMin:     opts.ThinkMin,
		thinkMax:     opts.ThinkMax,
		botRetry:     opts.BotRetry,
		tickPeriod:   opts.TickPeriod,
	}
}

// Run drives Tick on a fixed period until the context is cancelled.
func (sch *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(sch.tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := sch.Tick(ctx, now); err != nil {
				log.Printf("scheduler: tick: %v", err)
			}
		}
	}
}

// Tick processes every live session exactly once. Independent sessions fan
// out concurrently; shared sessions run in order. No two ticks for the same
// session overlap because Tick itself is the only caller of session updates.
func (sch *Scheduler) Tick(ctx context.Context, now time.Time) error {
	ctx, span := sch.tracer.Start(ctx, "scheduler.tick")
	defer span.End()

	live, err := sch.store.ListLive(ctx)
	if err != nil {
		return err
	}

	var independent, shared []*session.GameSession
	for _, s := range live {
		if s.Category == session.CategorySingle {
			independent = append(independent, s)
		} else {
			shared = append(shared, s)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range independent {
		s := s
		g.Go(func() error {
			sch.processSession(gctx, s, now, false)
			return nil
		})
	}
	g.Go(func() error {
		for _, s := range shared {
			sch.processSession(gctx, s, now, true)
		}
		return nil
	})
	return g.Wait()
}

// processSession advances one session by at most one protocol step. Failures
// degrade to a no-op tick for this session only.
func (sch *Scheduler) processSession(ctx context.Context, s *session.GameSession, now time.Time, shared bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: session %s tick panicked: %v", s.ID, r)
			sch.emit(ctx, telemetry.SeverityError, "scheduler.tick_panic", s.ID,
				"session tick panicked, degraded to no-op", nil)
		}
	}()

	switch {
	case s.Phase == session.PhasePending:
		return
	case s.Phase.Protected():
		// Terminal reveal waits out its window; a scoring session is
		// re-dispatched when no continuation is in flight (post-restart).
		if err := sch.pipeline.Resume(ctx, s, now); err != nil {
			log.Printf("scheduler: resume scoring for %s: %v", s.ID, err)
		}
		return
	case s.Phase.Terminal(), s.Phase == session.PhaseRematchPending:
		return
	}

	if shared {
		sch.refreshParticipants(ctx, s, now)
	}

	h, err := mode.ForMode(s.Mode)
	if err != nil {
		log.Printf("scheduler: session %s: %v", s.ID, err)
		return
	}

	historyBefore := len(s.History)
	if err := h.Advance(ctx, s, now); err != nil {
		log.Printf("scheduler: advance session %s: %v", s.ID, err)
		return
	}

	if !s.Decided() && s.Phase.Active() && s.ActiveSeat().Bot() {
		sch.driveBot(ctx, s, h, now)
	}

	if s.Decided() {
		sch.routeDecided(ctx, s, now)
		return
	}

	if err := sch.store.Save(ctx, s); err != nil {
		log.Printf("scheduler: save session %s: %v", s.ID, err)
		return
	}
	if len(s.History) != historyBefore {
		sch.notifier.SessionUpdated(ctx, notify.SessionUpdate{
			SessionID:     s.ID,
			Phase:         s.Phase,
			IncludeBoard:  true,
			ChangedFields: []string{"board", "history", "turn"},
		})
	}
}

// driveBot applies the thinking delay then invokes the generator once per
// tick until a move is actually applied. A tick producing no move reschedules
// a short retry rather than tightening any fixed deadline.
func (sch *Scheduler) driveBot(ctx context.Context, s *session.GameSession, h mode.Handler, now time.Time) {
	if s.TryAcquireProcessing(session.ProcessingIdle, session.ProcessingBotThinking) {
		window := sch.thinkMin + time.Duration(sch.rng.Int63n(int64(sch.thinkMax-sch.thinkMin)))
		s.BotThinkingUntil = now.Add(window)
		return
	}
	if s.Processing != session.ProcessingBotThinking || now.Before(s.BotThinkingUntil) {
		return
	}
	if !s.TryAcquireProcessing(session.ProcessingBotThinking, session.ProcessingBotMoving) {
		return
	}

	applied, err := sch.bots.Act(ctx, s, h, now)
	if err != nil {
		log.Printf("scheduler: bot action for %s: %v", s.ID, err)
	}
	if !applied {
		// Retry shortly without touching the move deadline.
		s.BotThinkingUntil = now.Add(sch.botRetry)
		s.Processing = session.ProcessingBotThinking
		return
	}
	s.BotThinkingUntil = time.Time{}
	s.ReleaseProcessing()
}

// routeDecided hands a decided session to scoring or straight to settlement.
func (sch *Scheduler) routeDecided(ctx context.Context, s *session.GameSession, now time.Time) {
	s.ReleaseProcessing()
	var err error
	if s.EndReason == session.ReasonScore {
		err = sch.pipeline.Begin(ctx, s, now)
	} else {
		err = sch.pipeline.FinalizeDirect(ctx, s, now)
	}
	if err != nil {
		log.Printf("scheduler: finalize session %s: %v", s.ID, err)
	}
}

// refreshParticipants re-reads the two participant records and applies the
// time-boxed cooldown side-effect while the match is live.
func (sch *Scheduler) refreshParticipants(ctx context.Context, s *session.GameSession, now time.Time) {
	for i := range s.Seats {
		if s.Seats[i].Bot() {
			continue
		}
		rec, err := sch.participants.Get(ctx, s.Seats[i].ParticipantID)
		if err != nil {
			log.Printf("scheduler: participant %s: %v", s.Seats[i].ParticipantID, err)
			continue
		}
		until := now.Add(cooldownWindow)
		if rec.CooldownUntil.Before(until) {
			rec.CooldownUntil = until
			rec.UpdatedAt = now
			if err := sch.participants.Update(ctx, rec); err != nil {
				log.Printf("scheduler: refresh cooldown for %s: %v", rec.ID, err)
			}
		}
	}
}

func (sch *Scheduler) emit(ctx context.Context, sev telemetry.Severity, kind, sessionID, msg string, meta map[string]string) {
	if err := sch.emitter.Emit(ctx, storage.TelemetryEvent{
		Severity:  string(sev),
		Kind:      kind,
		SessionID: sessionID,
		Message:   msg,
		Metadata:  meta,
	}); err != nil {
		log.Printf("scheduler: telemetry emit: %v", err)
	}
}
