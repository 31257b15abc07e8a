// Package settlement converts a terminally decided session into participant
// rewards: experience, rating, manner score, currency, and loot.
//
// Settlement is idempotent. The summary is attached to the session write-once
// and never recomputed; re-invocation on an already-settled session is a
// no-op. A missing participant record abandons settlement while keeping the
// session terminal so it is never retried forever.
package settlement

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/baduklab/arena/internal/engine/notify"
	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
	"github.com/baduklab/arena/internal/random"
	"github.com/baduklab/arena/internal/telemetry"
)

const (
	xpWinBase  = 100
	xpLossBase = 40
	xpDrawBase = 60

	// levelDiffStep scales experience per level of opponent advantage,
	// clamped to [levelMultFloor, levelMultCeil].
	levelDiffStep  = 0.05
	levelMultFloor = 0.5
	levelMultCeil  = 1.5

	// unrankedFactor reduces experience and currency for bot or unranked
	// matches.
	unrankedFactor = 0.5

	// fullMatchMoves is the history length at which the completion fraction
	// saturates; shorter matches earn proportionally less.
	fullMatchMoves = 30

	eloK = 32

	// earlyTerminationRatingPenalty is the fixed rating cost for the seat
	// responsible for a premature ending.
	earlyTerminationRatingPenalty = 30

	mannerDisconnectPenalty = 1
	mannerEarlyPenalty      = 3

	winCurrencyFactor  = 1.0
	drawCurrencyFactor = 0.6
	lossCurrencyFactor = 0.4
)

// RefundDispatch asynchronously returns a match's resource cost to one
// participant. Implementations must not block settlement.
type RefundDispatch func(ctx context.Context, participantID string, amount int64)

// Service computes and persists settlement outcomes.
type Service struct {
	sessions     storage.SessionStore
	participants storage.ParticipantStore
	emitter      *telemetry.Emitter
	notifier     notify.Notifier
	quests       notify.QuestSink
	refund       RefundDispatch
	rng          *rand.Rand
}

// NewService wires the settlement service. notifier, quests, and refund may
// be nil.
func NewService(sessions storage.SessionStore, participants storage.ParticipantStore, emitter *telemetry.Emitter, notifier notify.Notifier, quests notify.QuestSink, refund RefundDispatch, seed int64) *Service {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if quests == nil {
		quests = notify.NopQuestSink{}
	}
	if refund == nil {
		refund = func(context.Context, string, int64) {}
	}
	return &Service{
		sessions:     sessions,
		participants: participants,
		emitter:      emitter,
		notifier:     notifier,
		quests:       quests,
		refund:       refund,
		rng:          random.NewLockedRand(seed),
	}
}

// Settle computes rewards for both seats, attaches the immutable summary,
// and persists the participant records. Re-invocation on a settled session
// causes no additional mutation.
func (svc *Service) Settle(ctx context.Context, s *session.GameSession, now time.Time) error {
	if s.Settlement != nil {
		return nil
	}

	// Re-read immediately before mutation: the two records are exclusively
	// owned by this settlement step for the duration of the write.
	var records [2]storage.ParticipantRecord
	for i := range s.Seats {
		if s.Seats[i].Bot() {
			continue
		}
		rec, err := svc.participants.Get(ctx, s.Seats[i].ParticipantID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return svc.abandon(ctx, s, s.Seats[i].ParticipantID, now)
			}
			return err
		}
		records[i] = rec
	}

	summary := session.SettlementSummary{}
	for i := range s.Seats {
		summary.Deltas[i] = svc.computeDelta(ctx, s, i, records)
	}

	if err := s.AttachSettlement(summary); err != nil {
		return err
	}
	if err := svc.sessions.ForceSave(ctx, s); err != nil {
		return err
	}

	for i := range s.Seats {
		if s.Seats[i].Bot() {
			continue
		}
		rec := records[i]
		delta := summary.Deltas[i]
		rec.Experience += delta.Experience
		rec.Rating += delta.Rating
		rec.MannerScore += delta.Manner
		if rec.MannerScore < 0 {
			rec.MannerScore = 0
		}
		rec.Currency += delta.Currency
		rec.InventoryCount += len(delta.Drops)
		rec.UpdatedAt = now
		if err := svc.participants.Update(ctx, rec); err != nil {
			return err
		}
		svc.notifier.ParticipantUpdated(ctx, notify.ParticipantUpdate{
			ParticipantID: rec.ID,
			ChangedFields: []string{"experience", "rating", "manner_score", "currency"},
		})

		if delta.Refund > 0 {
			svc.refund(ctx, rec.ID, delta.Refund)
		}

		svc.quests.Increment(ctx, "match_completed", rec.ID, 1)
		if s.Winner == i {
			svc.quests.Increment(ctx, "match_won", rec.ID, 1)
		}
	}

	svc.emit(ctx, telemetry.SeverityInfo, "settlement.completed", s.ID,
		"settlement attached", map[string]string{"reason": string(s.EndReason)})
	return nil
}

// computeDelta derives one seat's reward record.
func (svc *Service) computeDelta(ctx context.Context, s *session.GameSession, seat int, records [2]storage.ParticipantRecord) session.RewardDelta {
	delta := session.RewardDelta{ParticipantID: s.Seats[seat].ParticipantID}
	if s.Seats[seat].Bot() {
		return delta
	}

	opponent := session.OpponentOf(seat)
	botMatch := s.Seats[opponent].Bot()
	reduced := botMatch || !s.Ranked
	completion := completionFraction(s)
	o := outcomeOf(s, seat)

	// Bots carry no participant record; the level multiplier stays neutral.
	oppRecord := records[opponent]
	if botMatch {
		oppRecord = records[seat]
	}

	delta.Experience = experienceGain(o, records[seat], oppRecord, completion, reduced)
	delta.Rating = svc.ratingDelta(s, seat, o, records)
	delta.Manner = mannerDelta(s, seat)
	delta.Currency = currencyReward(s, o, completion, reduced)
	delta.Drops = svc.rollLoot(ctx, s, records[seat])

	if s.EarlyTermination {
		if s.ResponsibleSeat == seat {
			delta.PenaltyNotice = true
		} else {
			delta.Refund = s.ResourceCost
		}
	}

	if records[seat].Admin {
		// Administrative accounts keep rewards but skip every penalty.
		if delta.Rating < 0 {
			delta.Rating = 0
		}
		if delta.Manner < 0 {
			delta.Manner = 0
		}
		delta.PenaltyNotice = false
	}
	return delta
}

type outcome int

const (
	outcomeLoss outcome = iota
	outcomeDraw
	outcomeWin
)

func outcomeOf(s *session.GameSession, seat int) outcome {
	switch s.Winner {
	case seat:
		return outcomeWin
	case session.NoWinner:
		return outcomeDraw
	}
	return outcomeLoss
}

// completionFraction scales rewards by match length so very short matches
// yield reduced reward.
func completionFraction(s *session.GameSession) float64 {
	frac := float64(len(s.History)) / fullMatchMoves
	if frac > 1 {
		return 1
	}
	return frac
}

func experienceGain(o outcome, own, opp storage.ParticipantRecord, completion float64, reduced bool) int64 {
	base := xpLossBase
	switch o {
	case outcomeWin:
		base = xpWinBase
	case outcomeDraw:
		base = xpDrawBase
	}

	mult := 1 + float64(opp.Level-own.Level)*levelDiffStep
	if mult < levelMultFloor {
		mult = levelMultFloor
	}
	if mult > levelMultCeil {
		mult = levelMultCeil
	}

	gain := float64(base) * mult * completion
	if reduced {
		gain *= unrankedFactor
	}
	return int64(gain)
}

// ratingDelta is Elo-style and applies to ranked human-vs-human matches
// only. Void outcomes and the early-termination penalty override the
// expected-score formula.
func (svc *Service) ratingDelta(s *session.GameSession, seat int, o outcome, records [2]storage.ParticipantRecord) int {
	if !s.Ranked || s.EndReason == session.ReasonVoid {
		return 0
	}
	if s.Seats[0].Bot() || s.Seats[1].Bot() {
		return 0
	}
	if s.EarlyTermination && s.ResponsibleSeat == seat {
		return -earlyTerminationRatingPenalty
	}

	opponent := session.OpponentOf(seat)
	expected := 1 / (1 + math.Pow(10, float64(records[opponent].Rating-records[seat].Rating)/400))
	score := 0.0
	switch o {
	case outcomeWin:
		score = 1
	case outcomeDraw:
		score = 0.5
	}
	return int(math.Round(eloK * (score - expected)))
}

func mannerDelta(s *session.GameSession, seat int) int {
	if s.EarlyTermination && s.ResponsibleSeat == seat {
		return -mannerEarlyPenalty
	}
	if s.EndReason == session.ReasonTimeout && s.ResponsibleSeat == seat {
		return -mannerDisconnectPenalty
	}
	return 0
}

// currencyReward is keyed by the mode/board-size tier and scaled by outcome
// and completion.
func currencyReward(s *session.GameSession, o outcome, completion float64, reduced bool) int64 {
	base := currencyBase(s)
	factor := lossCurrencyFactor
	switch o {
	case outcomeWin:
		factor = winCurrencyFactor
	case outcomeDraw:
		factor = drawCurrencyFactor
	}
	amount := float64(base) * factor * completion
	if reduced {
		amount *= unrankedFactor
	}
	return int64(amount)
}

func currencyBase(s *session.GameSession) int64 {
	if s.Mode.Family() == session.FamilyStrategic {
		switch {
		case s.Board.Size() >= 19:
			return 100
		case s.Board.Size() >= 13:
			return 60
		default:
			return 40
		}
	}
	return 30
}

// lootTable is one drop table keyed by mode family and round count.
type lootTable struct {
	family    session.Family
	minMoves  int
	minRounds int
	chance    float64
	items     []string
}

var lootTables = []lootTable{
	{family: session.FamilyStrategic, minMoves: 20, chance: 0.10,
		items: []string{"stone-polish", "kaya-board-shard", "clamshell-case"}},
	{family: session.FamilyStrategic, minMoves: 60, chance: 0.04,
		items: []string{"master-kifu", "golden-bowl"}},
	{family: session.FamilyPlayful, minRounds: 3, chance: 0.12,
		items: []string{"lucky-die", "festival-ticket"}},
	{family: session.FamilyPlayful, minRounds: 8, chance: 0.05,
		items: []string{"arcade-trophy"}},
}

// rollLoot grants at most one item per matching table. Grants without
// inventory space are skipped, never blocking the outcome.
func (svc *Service) rollLoot(ctx context.Context, s *session.GameSession, rec storage.ParticipantRecord) []string {
	var drops []string
	space := rec.InventoryCap - rec.InventoryCount
	for _, table := range lootTables {
		if table.family != s.Mode.Family() {
			continue
		}
		if len(s.History) < table.minMoves || s.Round < table.minRounds {
			continue
		}
		if svc.rng.Float64() >= table.chance*(1+rec.LootBonus) {
			continue
		}
		if space <= len(drops) {
			svc.emit(ctx, telemetry.SeverityInfo, "settlement.loot_skipped", s.ID,
				"loot grant skipped, no inventory space",
				map[string]string{"participant": rec.ID})
			continue
		}
		drops = append(drops, table.items[svc.rng.Intn(len(table.items))])
	}
	return drops
}

// abandon attaches an abandoned summary so the session stays terminal and the
// settlement is never retried.
func (svc *Service) abandon(ctx context.Context, s *session.GameSession, missingID string, now time.Time) error {
	summary := session.SettlementSummary{Abandoned: true}
	if err := s.AttachSettlement(summary); err != nil {
		return err
	}
	if err := svc.sessions.ForceSave(ctx, s); err != nil {
		return err
	}
	svc.emit(ctx, telemetry.SeverityError, "settlement.abandoned", s.ID,
		"participant record missing at settlement",
		map[string]string{"participant": missingID})
	return nil
}

func (svc *Service) emit(ctx context.Context, sev telemetry.Severity, kind, sessionID, msg string, meta map[string]string) {
	if err := svc.emitter.Emit(ctx, storage.TelemetryEvent{
		Severity:  string(sev),
		Kind:      kind,
		SessionID: sessionID,
		Message:   msg,
		Metadata:  meta,
	}); err != nil {
		log.Printf("settlement: telemetry emit: %v", err)
	}
}
