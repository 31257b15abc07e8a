// Package scoring drives a decided session from its terminal board condition
// to an ended phase with an attached score breakdown.
//
// Entering scoring freezes the board and history in a snapshot; the analyzer
// runs against the snapshot, never the live copy. The three-tier fallback
// chain (analyzer, manual scorer, random winner) guarantees no session stays
// in scoring forever.
package scoring

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/baduklab/arena/internal/engine/analyzer"
	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/mode"
	"github.com/baduklab/arena/internal/engine/notify"
	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
	"github.com/baduklab/arena/internal/random"
	"github.com/baduklab/arena/internal/telemetry"
)

const (
	// defaultRevealWindow is how long undiscovered concealed stones stay on
	// display before scoring resumes.
	defaultRevealWindow = 10 * time.Second

	// defaultAnalyzeTimeout bounds one analyzer round trip.
	defaultAnalyzeTimeout = 30 * time.Second

	// timeBonusUnit converts preserved remaining clock time into scoring
	// points for the strategic family, one point per full unit.
	timeBonusUnit = 5 * time.Minute
)

// Analyzer is the external board analyzer collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, pos analyzer.Position) (analyzer.Result, error)
}

// Settler converts an ended session into participant rewards.
type Settler interface {
	Settle(ctx context.Context, s *session.GameSession, now time.Time) error
}

// Pipeline owns the scoring state machine for all sessions.
type Pipeline struct {
	store    storage.SessionStore
	analyzer Analyzer
	settler  Settler
	emitter  *telemetry.Emitter
	notifier notify.Notifier
	tracer   trace.Tracer

	rng   *rand.Rand
	clock func() time.Time

	revealWindow   time.Duration
	analyzeTimeout time.Duration

	// inflight lets callers drain dispatched analyses, used on shutdown.
	inflight sync.WaitGroup

	// pending tracks sessions with a continuation in flight so a tick can
	// re-dispatch rehydrated scoring sessions without doubling live ones.
	mu      sync.Mutex
	pending map[string]bool
}

// Options tune pipeline timing; zero values take defaults.
type Options struct {
	RevealWindow   time.Duration
	AnalyzeTimeout time.Duration
	Clock          func() time.Time
}

// NewPipeline wires the scoring pipeline. The notifier may be nil.
func NewPipeline(store storage.SessionStore, a Analyzer, settler Settler, emitter *telemetry.Emitter, notifier notify.Notifier, seed int64, opts Options) *Pipeline {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if opts.RevealWindow == 0 {
		opts.RevealWindow = defaultRevealWindow
	}
	if opts.AnalyzeTimeout == 0 {
		opts.AnalyzeTimeout = defaultAnalyzeTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{
		store:          store,
		analyzer:       a,
		settler:        settler,
		emitter:        emitter,
		notifier:       notifier,
		tracer:         otel.Tracer("arena/scoring"),
		rng:            random.NewLockedRand(seed),
		clock:          opts.Clock,
		revealWindow:   opts.RevealWindow,
		analyzeTimeout: opts.AnalyzeTimeout,
		pending:        make(map[string]bool),
	}
}

// Begin moves a decided session into the scoring phase. It freezes the
// snapshot, schedules the terminal-reveal window for concealable modes, and
// dispatches the analyzer without blocking the caller's tick.
func (p *Pipeline) Begin(ctx context.Context, s *session.GameSession, now time.Time) error {
	if !s.Decided() {
		return apperrors.New(apperrors.CodeScoringNotTerminal, "session has no terminal outcome")
	}
	if !s.TryAcquireProcessing(session.ProcessingIdle, session.ProcessingScoring) {
		return apperrors.New(apperrors.CodeSessionProcessingBusy, "session already being processed")
	}

	// Reveal before freezing so the snapshot scores the revealed position.
	revealed := s.Mode == session.ModeHiddenBaduk && p.revealConcealed(s)

	if err := s.CaptureSnapshot(now); err != nil {
		s.ReleaseProcessing()
		return err
	}
	if err := s.TransitionPhase(session.PhaseScoring, now); err != nil {
		s.ReleaseProcessing()
		return err
	}

	if revealed {
		if err := s.TransitionPhase(session.PhaseTerminalReveal, now); err != nil {
			return err
		}
		s.PhaseDeadline = now.Add(p.revealWindow)
		if err := p.store.Save(ctx, s); err != nil {
			return err
		}
		p.notifier.SessionUpdated(ctx, notify.SessionUpdate{
			SessionID:     s.ID,
			Phase:         s.Phase,
			IncludeBoard:  true,
			ChangedFields: []string{"phase", "board"},
		})
		return nil
	}

	if err := p.store.Save(ctx, s); err != nil {
		return err
	}
	p.dispatch(s.ID)
	return nil
}

// Resume restarts scoring: once the terminal-reveal window has elapsed, or
// for a scoring-phase session with no continuation in flight, which happens
// after a restart rehydrates a session saved mid-analysis.
func (p *Pipeline) Resume(ctx context.Context, s *session.GameSession, now time.Time) error {
	switch s.Phase {
	case session.PhaseScoring:
		p.dispatch(s.ID)
		return nil
	case session.PhaseTerminalReveal:
		if now.Before(s.PhaseDeadline) {
			return nil
		}
		if err := s.TransitionPhase(session.PhaseScoring, now); err != nil {
			return err
		}
		if err := p.store.Save(ctx, s); err != nil {
			return err
		}
		p.dispatch(s.ID)
		return nil
	}
	return apperrors.New(apperrors.CodeSessionPhaseDisallowsOp, "session is not in a scoring phase")
}

// FinalizeDirect ends a session whose outcome needs no board analysis:
// resignation, timeout, capture threshold, line, elimination, or a playful
// score already decided by the mode handler.
func (p *Pipeline) FinalizeDirect(ctx context.Context, s *session.GameSession, now time.Time) error {
	if !s.Decided() {
		return apperrors.New(apperrors.CodeScoringNotTerminal, "session has no terminal outcome")
	}

	target := session.PhaseEnded
	if s.EndReason == session.ReasonVoid {
		target = session.PhaseVoided
	}
	if err := s.TransitionPhase(target, now); err != nil {
		return err
	}
	if err := p.store.ForceSave(ctx, s); err != nil {
		return err
	}
	p.emitTerminal(ctx, s)

	if target == session.PhaseEnded {
		if err := p.settler.Settle(ctx, s, now); err != nil {
			log.Printf("scoring: settlement for session %s: %v", s.ID, err)
		}
	}
	s.ReleaseProcessing()
	p.notifier.SessionUpdated(ctx, notify.SessionUpdate{
		SessionID:     s.ID,
		Phase:         s.Phase,
		ChangedFields: []string{"phase", "winner", "settlement"},
	})
	return nil
}

// Drain blocks until every dispatched analysis continuation has completed.
func (p *Pipeline) Drain() {
	p.inflight.Wait()
}

// revealConcealed surfaces every undiscovered concealed stone and reports
// whether anything was revealed.
func (p *Pipeline) revealConcealed(s *session.GameSession) bool {
	revealed := false
	for i := range s.Seats {
		for _, pt := range s.Seats[i].Concealed {
			if s.Board.At(pt) == board.Empty {
				s.Board.Put(pt, s.Seats[i].Color())
				revealed = true
			}
		}
		s.Seats[i].Concealed = nil
	}
	return revealed
}

// dispatch runs the analyzer chain off the tick loop, at most one
// continuation per session. The continuation re-fetches the session and
// re-validates its phase before committing.
func (p *Pipeline) dispatch(sessionID string) {
	p.mu.Lock()
	if p.pending[sessionID] {
		p.mu.Unlock()
		return
	}
	p.pending[sessionID] = true
	p.mu.Unlock()

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer func() {
			p.mu.Lock()
			delete(p.pending, sessionID)
			p.mu.Unlock()
		}()

		ctx, span := p.tracer.Start(context.Background(), "scoring.analyze")
		defer span.End()

		if err := p.complete(ctx, sessionID); err != nil {
			log.Printf("scoring: session %s: %v", sessionID, err)
		}
	}()
}

// complete is the analysis continuation. It owns the fallback chain and the
// terminal transition.
func (p *Pipeline) complete(ctx context.Context, sessionID string) error {
	s, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	// The continuation discards its result when the session left scoring
	// while the analysis was in flight.
	if s.Phase != session.PhaseScoring {
		return nil
	}

	now := p.clock()
	if s.Corrupted() {
		if err := s.RestoreSnapshot(); err != nil {
			return err
		}
		p.emit(ctx, telemetry.SeverityWarn, "scoring.corruption_restored", s.ID,
			"live state diverged from scoring snapshot; snapshot restored", nil)
	}

	snap := s.Snapshot()
	if snap == nil {
		return apperrors.New(apperrors.CodeSessionHistoryCorrupt, "scoring session has no snapshot")
	}

	breakdown := p.score(ctx, s, snap)
	if breakdown.Tier != session.ScoreTierAnalyzer {
		p.emit(ctx, telemetry.SeverityWarn, "scoring.fallback", s.ID,
			"score computed by fallback tier", map[string]string{"tier": string(breakdown.Tier)})
	}

	p.resolveWinner(s, &breakdown, now)
	if err := s.AttachAnalysis(breakdown); err != nil {
		return err
	}
	if err := s.TransitionPhase(session.PhaseEnded, now); err != nil {
		return err
	}
	s.DiscardSnapshot()

	// Persisted checkpoint after the terminal transition, before settlement,
	// so collaborators never observe partial settlement.
	if err := p.store.ForceSave(ctx, s); err != nil {
		return err
	}
	p.emitTerminal(ctx, s)

	if err := p.settler.Settle(ctx, s, now); err != nil {
		log.Printf("scoring: settlement for session %s: %v", s.ID, err)
	}
	s.ReleaseProcessing()
	p.notifier.SessionUpdated(ctx, notify.SessionUpdate{
		SessionID:     s.ID,
		Phase:         s.Phase,
		ChangedFields: []string{"phase", "winner", "analysis", "settlement"},
	})
	return nil
}

// score walks the fallback chain: analyzer, manual scorer, random winner.
// A snapshot without a board skips straight past both deterministic tiers.
func (p *Pipeline) score(ctx context.Context, s *session.GameSession, snap *session.Snapshot) session.ScoreBreakdown {
	if s.Mode.Family() == session.FamilyStrategic && p.analyzer != nil && snap.Board != nil {
		actx, cancel := context.WithTimeout(ctx, p.analyzeTimeout)
		res, err := p.analyzer.Analyze(actx, buildPosition(s, snap))
		cancel()
		if err == nil {
			return p.analyzedBreakdown(s, snap, res)
		}
		log.Printf("scoring: analyzer for session %s: %v", s.ID, err)
	}
	if breakdown, ok := p.manualBreakdown(s, snap); ok {
		return breakdown
	}
	return p.randomBreakdown(s)
}

// analyzedBreakdown merges the analyzer verdict with the snapshot counters.
func (p *Pipeline) analyzedBreakdown(s *session.GameSession, snap *session.Snapshot, res analyzer.Result) session.ScoreBreakdown {
	b := session.ScoreBreakdown{Tier: session.ScoreTierAnalyzer, DeadStones: res.DeadStones}
	for i := range b.Seats {
		b.Seats[i] = session.SeatScore{
			Territory:           res.Seats[i].Territory,
			Captures:            snap.Captures[i],
			DeadStoneAdjustment: res.Seats[i].DeadStoneAdjustment,
			ModeBonuses:         res.Seats[i].ModeBonuses + timeBonus(s.Mode, snap.Clocks[i]),
		}
	}
	b.Seats[1].Komi = s.Komi
	finalizeTotals(&b)
	return b
}

// manualBreakdown scores deterministically from the frozen snapshot alone.
func (p *Pipeline) manualBreakdown(s *session.GameSession, snap *session.Snapshot) (session.ScoreBreakdown, bool) {
	if snap.Board == nil {
		return session.ScoreBreakdown{}, false
	}

	b := session.ScoreBreakdown{Tier: session.ScoreTierManual}
	switch s.Mode.Family() {
	case session.FamilyStrategic:
		black, white := snap.Board.Territory()
		b.Seats[0] = session.SeatScore{
			Territory:   black,
			Captures:    snap.Captures[0],
			ModeBonuses: timeBonus(s.Mode, snap.Clocks[0]),
		}
		b.Seats[1] = session.SeatScore{
			Territory:   white,
			Captures:    snap.Captures[1],
			ModeBonuses: timeBonus(s.Mode, snap.Clocks[1]),
		}
	default:
		for i := range b.Seats {
			b.Seats[i] = session.SeatScore{
				Captures:    snap.Captures[i],
				ModeBonuses: s.Seats[i].Score,
			}
		}
	}
	b.Seats[1].Komi = s.Komi
	finalizeTotals(&b)
	return b, true
}

// randomBreakdown is the last-resort tier: a winner is always assigned so no
// session stays stuck in scoring. The deciding point rides in ModeBonuses so
// totals stay a pure function of their components.
func (p *Pipeline) randomBreakdown(s *session.GameSession) session.ScoreBreakdown {
	b := session.ScoreBreakdown{Tier: session.ScoreTierRandom}
	b.Seats[p.rng.Intn(2)].ModeBonuses = 1
	finalizeTotals(&b)
	return b
}

// resolveWinner applies the tie-break: strictly greater total wins; equal
// totals go to the second seat unless the mode declares a genuine draw.
func (p *Pipeline) resolveWinner(s *session.GameSession, b *session.ScoreBreakdown, now time.Time) {
	if s.Winner != session.NoWinner {
		// The mode handler already decided; scoring only attaches numbers.
		return
	}

	switch {
	case b.Seats[0].Total > b.Seats[1].Total:
		s.Decide(0, s.EndReason, now)
	case b.Seats[1].Total > b.Seats[0].Total:
		s.Decide(1, s.EndReason, now)
	default:
		allowDraw := false
		if h, err := mode.ForMode(s.Mode); err == nil {
			allowDraw = h.Draw().AllowDraw
		}
		if allowDraw {
			b.Draw = true
			s.Decide(session.NoWinner, s.EndReason, now)
		} else {
			s.Decide(1, s.EndReason, now)
		}
	}
}

func finalizeTotals(b *session.ScoreBreakdown) {
	for i := range b.Seats {
		b.Seats[i].Total = b.Seats[i].ComputeTotal()
	}
}

// timeBonus converts preserved remaining clock time into points. Only the
// strategic family rewards banked time.
func timeBonus(m session.Mode, c session.Clock) int {
	if m.Family() != session.FamilyStrategic {
		return 0
	}
	return int(c.Remaining / timeBonusUnit)
}

// buildPosition encodes the frozen snapshot in analyzer wire form.
func buildPosition(s *session.GameSession, snap *session.Snapshot) analyzer.Position {
	size := snap.Board.Size()
	rows := make([]string, size)
	for y := 0; y < size; y++ {
		var row strings.Builder
		for x := 0; x < size; x++ {
			switch snap.Board.At(board.Point{X: x, Y: y}) {
			case board.Black:
				row.WriteByte('b')
			case board.White:
				row.WriteByte('w')
			default:
				row.WriteByte('.')
			}
		}
		rows[y] = row.String()
	}

	moves := make([]analyzer.Move, 0, len(snap.History))
	for _, m := range snap.History {
		moves = append(moves, analyzer.Move{
			Seat: m.Seat,
			Kind: string(m.Kind),
			X:    m.Point.X,
			Y:    m.Point.Y,
		})
	}

	return analyzer.Position{
		Mode:      string(s.Mode),
		BoardSize: size,
		Rows:      rows,
		Moves:     moves,
		Komi:      s.Komi,
	}
}

// emitTerminal records the terminal transition event.
func (p *Pipeline) emitTerminal(ctx context.Context, s *session.GameSession) {
	p.emit(ctx, telemetry.SeverityInfo, "session.terminal", s.ID, "session reached terminal phase",
		map[string]string{
			"phase":  string(s.Phase),
			"reason": string(s.EndReason),
		})
}

func (p *Pipeline) emit(ctx context.Context, sev telemetry.Severity, kind, sessionID, msg string, meta map[string]string) {
	if err := p.emitter.Emit(ctx, storage.TelemetryEvent{
		Severity:  string(sev),
		Kind:      kind,
		SessionID: sessionID,
		Message:   msg,
		Metadata:  meta,
	}); err != nil {
		log.Printf("scoring: telemetry emit: %v", err)
	}
}
