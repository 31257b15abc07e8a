package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
	"github.com/baduklab/arena/internal/telemetry"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memSessions struct {
	saved int
}

func (m *memSessions) Get(ctx context.Context, id string) (*session.GameSession, error) {
	return nil, storage.ErrNotFound
}
func (m *memSessions) Save(ctx context.Context, s *session.GameSession) error { return nil }
func (m *memSessions) ForceSave(ctx context.Context, s *session.GameSession) error {
	m.saved++
	return nil
}
func (m *memSessions) Invalidate(ctx context.Context, id string) error { return nil }
func (m *memSessions) ListLive(ctx context.Context) ([]*session.GameSession, error) {
	return nil, nil
}

type memParticipants struct {
	mu      sync.Mutex
	records map[string]storage.ParticipantRecord
	updates int
}

func newMemParticipants(records ...storage.ParticipantRecord) *memParticipants {
	m := &memParticipants{records: make(map[string]storage.ParticipantRecord)}
	for _, r := range records {
		m.records[r.ID] = r
	}
	return m
}

func (m *memParticipants) Get(ctx context.Context, id string) (storage.ParticipantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return storage.ParticipantRecord{}, storage.ErrNotFound
	}
	return r, nil
}

func (m *memParticipants) Update(ctx context.Context, record storage.ParticipantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record
	m.updates++
	return nil
}

func endedSession(t *testing.T, moves int) *session.GameSession {
	t.Helper()
	s, err := session.New("sess-settle", session.Settings{
		Mode:         session.ModeBaduk,
		Category:     session.CategoryNormal,
		BoardSize:    19,
		Komi:         6.5,
		InitialClock: session.Clock{Discipline: session.DisciplineFischer, Remaining: 10 * time.Minute},
		Participants: [2]string{"alice", "bob"},
		BotSeat:      session.NoWinner,
		ResourceCost: 50,
		Ranked:       true,
	}, testNow)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	for i := 0; i < moves; i++ {
		s.History = append(s.History, session.Move{Seq: i + 1, Seat: i % 2, Kind: session.MovePlace})
	}
	s.Phase = session.PhaseEnded
	return s
}

func humanRecords() (storage.ParticipantRecord, storage.ParticipantRecord) {
	alice := storage.ParticipantRecord{
		ID: "alice", Level: 10, Rating: 1500, MannerScore: 10,
		Currency: 0, InventoryCap: 20,
	}
	bob := storage.ParticipantRecord{
		ID: "bob", Level: 10, Rating: 1500, MannerScore: 10,
		Currency: 0, InventoryCap: 20,
	}
	return alice, bob
}

func newTestService(participants *memParticipants, refund RefundDispatch) (*Service, *memSessions) {
	sessions := &memSessions{}
	svc := NewService(sessions, participants, telemetry.NewEmitter(nil), nil, nil, refund, 99)
	return svc, sessions
}

func TestService_Settle_WinnerAndLoserRewards(t *testing.T) {
	alice, bob := humanRecords()
	participants := newMemParticipants(alice, bob)
	svc, _ := newTestService(participants, nil)

	s := endedSession(t, 40)
	s.Decide(0, session.ReasonScore, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if s.Settlement == nil {
		t.Fatal("summary should be attached")
	}

	winner := s.Settlement.Deltas[0]
	loser := s.Settlement.Deltas[1]
	if winner.Experience != 100 {
		t.Fatalf("winner xp = %d, want full win base at equal levels", winner.Experience)
	}
	if loser.Experience != 40 {
		t.Fatalf("loser xp = %d, want loss base", loser.Experience)
	}
	// Equal ratings: expected score 0.5, so the full K swings ±16.
	if winner.Rating != 16 || loser.Rating != -16 {
		t.Fatalf("ratings = %d/%d, want +16/-16", winner.Rating, loser.Rating)
	}
	if winner.Currency != 100 {
		t.Fatalf("winner currency = %d, want full 19x19 base", winner.Currency)
	}
	if winner.Refund != 0 || loser.Refund != 0 {
		t.Fatal("no refunds outside early termination")
	}

	got, _ := participants.Get(context.Background(), "alice")
	if got.Experience != 100 || got.Rating != 1516 {
		t.Fatalf("persisted alice = xp %d rating %d, want 100/1516", got.Experience, got.Rating)
	}
}

func TestService_Settle_Idempotent(t *testing.T) {
	alice, bob := humanRecords()
	participants := newMemParticipants(alice, bob)
	svc, sessions := newTestService(participants, nil)

	s := endedSession(t, 40)
	s.Decide(0, session.ReasonScore, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	updatesAfterFirst := participants.updates
	savesAfterFirst := sessions.saved

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if participants.updates != updatesAfterFirst {
		t.Fatal("second settle must not touch participant records")
	}
	if sessions.saved != savesAfterFirst {
		t.Fatal("second settle must not re-save the session")
	}
}

func TestService_Settle_EarlyTerminationAsymmetry(t *testing.T) {
	alice, bob := humanRecords()
	participants := newMemParticipants(alice, bob)

	var refunds []string
	refund := func(ctx context.Context, id string, amount int64) {
		refunds = append(refunds, id)
		if amount != 50 {
			t.Errorf("refund amount = %d, want resource cost 50", amount)
		}
	}
	svc, _ := newTestService(participants, refund)

	// Resignation at move 4: seat 1 is responsible.
	s := endedSession(t, 4)
	s.Decide(0, session.ReasonResignation, testNow)
	s.FlagEarlyTermination(1, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}

	winner := s.Settlement.Deltas[0]
	responsible := s.Settlement.Deltas[1]
	if winner.Refund != 50 {
		t.Fatalf("winner refund = %d, want 50", winner.Refund)
	}
	if responsible.Refund != 0 {
		t.Fatal("responsible seat never gets a refund")
	}
	if !responsible.PenaltyNotice {
		t.Fatal("responsible seat should carry a penalty notice")
	}
	if winner.PenaltyNotice {
		t.Fatal("winner must not carry a penalty notice")
	}
	if responsible.Rating != -earlyTerminationRatingPenalty {
		t.Fatalf("responsible rating = %d, want fixed -%d", responsible.Rating, earlyTerminationRatingPenalty)
	}
	if responsible.Manner != -mannerEarlyPenalty {
		t.Fatalf("responsible manner = %d, want -%d", responsible.Manner, mannerEarlyPenalty)
	}
	if len(refunds) != 1 || refunds[0] != "alice" {
		t.Fatalf("refund dispatches = %v, want only alice", refunds)
	}
}

func TestService_Settle_LateDisconnectMannerPenalty(t *testing.T) {
	alice, bob := humanRecords()
	participants := newMemParticipants(alice, bob)
	svc, _ := newTestService(participants, nil)

	// Timeout loss deep into the match: the disconnecting seat is recorded
	// as responsible without the early-termination flag.
	s := endedSession(t, 40)
	s.Decide(0, session.ReasonTimeout, testNow)
	s.ResponsibleSeat = 1

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}

	winner := s.Settlement.Deltas[0]
	responsible := s.Settlement.Deltas[1]
	if responsible.Manner != -mannerDisconnectPenalty {
		t.Fatalf("responsible manner = %d, want -%d", responsible.Manner, mannerDisconnectPenalty)
	}
	if winner.Manner != 0 {
		t.Fatalf("winner manner = %d, want untouched", winner.Manner)
	}
	if winner.Refund != 0 || responsible.Refund != 0 {
		t.Fatal("no refunds outside early termination")
	}
}

func TestService_Settle_MannerFloorsAtZero(t *testing.T) {
	alice, bob := humanRecords()
	bob.MannerScore = 1
	participants := newMemParticipants(alice, bob)
	svc, _ := newTestService(participants, nil)

	s := endedSession(t, 4)
	s.Decide(0, session.ReasonResignation, testNow)
	s.FlagEarlyTermination(1, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	got, _ := participants.Get(context.Background(), "bob")
	if got.MannerScore != 0 {
		t.Fatalf("manner = %d, want floored at zero", got.MannerScore)
	}
}

func TestService_Settle_BotMatchReducedRewards(t *testing.T) {
	alice, _ := humanRecords()
	participants := newMemParticipants(alice)
	svc, _ := newTestService(participants, nil)

	s := endedSession(t, 40)
	s.Seats[1].BotID = "bot-1"
	s.Seats[1].BotTier = 2
	s.Decide(0, session.ReasonScore, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	winner := s.Settlement.Deltas[0]
	if winner.Experience != 50 {
		t.Fatalf("xp = %d, want halved win base against a bot", winner.Experience)
	}
	if winner.Rating != 0 {
		t.Fatalf("rating = %d, want 0 for bot matches", winner.Rating)
	}
	if winner.Currency != 50 {
		t.Fatalf("currency = %d, want halved base", winner.Currency)
	}
	if participants.updates != 1 {
		t.Fatalf("updates = %d, want only the human record", participants.updates)
	}
}

func TestService_Settle_CompletionFractionScalesShortMatches(t *testing.T) {
	alice, bob := humanRecords()
	participants := newMemParticipants(alice, bob)
	svc, _ := newTestService(participants, nil)

	s := endedSession(t, 15) // half of fullMatchMoves
	s.Decide(0, session.ReasonScore, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got := s.Settlement.Deltas[0].Experience; got != 50 {
		t.Fatalf("xp = %d, want win base scaled by completion 0.5", got)
	}
}

func TestService_Settle_MissingParticipantAbandons(t *testing.T) {
	alice, _ := humanRecords()
	participants := newMemParticipants(alice) // bob missing
	svc, sessions := newTestService(participants, nil)

	s := endedSession(t, 40)
	s.Decide(0, session.ReasonScore, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if s.Settlement == nil || !s.Settlement.Abandoned {
		t.Fatal("settlement should be abandoned but attached")
	}
	if participants.updates != 0 {
		t.Fatal("abandoned settlement must not mutate participants")
	}
	if sessions.saved != 1 {
		t.Fatal("abandoned settlement still checkpoints the session")
	}
}

func TestService_Settle_AdminSkipsPenalties(t *testing.T) {
	alice, bob := humanRecords()
	bob.Admin = true
	participants := newMemParticipants(alice, bob)
	svc, _ := newTestService(participants, nil)

	s := endedSession(t, 4)
	s.Decide(0, session.ReasonResignation, testNow)
	s.FlagEarlyTermination(1, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	admin := s.Settlement.Deltas[1]
	if admin.Rating < 0 || admin.Manner < 0 {
		t.Fatalf("admin deltas = rating %d manner %d, want no penalties", admin.Rating, admin.Manner)
	}
	if admin.PenaltyNotice {
		t.Fatal("admin accounts never carry a penalty notice")
	}
}

func TestService_Settle_LootRespectsInventorySpace(t *testing.T) {
	alice, bob := humanRecords()
	// Boosted far past certainty so every matching table drops.
	alice.LootBonus = 50
	alice.InventoryCount = alice.InventoryCap // full
	bob.LootBonus = 50
	participants := newMemParticipants(alice, bob)
	svc, _ := newTestService(participants, nil)

	s := endedSession(t, 70)
	s.Decide(0, session.ReasonScore, testNow)

	if err := svc.Settle(context.Background(), s, testNow); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(s.Settlement.Deltas[0].Drops) != 0 {
		t.Fatalf("drops = %v, want none with a full inventory", s.Settlement.Deltas[0].Drops)
	}
	if len(s.Settlement.Deltas[1].Drops) != 2 {
		t.Fatalf("drops = %v, want one per matching strategic table", s.Settlement.Deltas[1].Drops)
	}
	got, _ := participants.Get(context.Background(), "bob")
	if got.InventoryCount != 2 {
		t.Fatalf("inventory = %d, want drops counted", got.InventoryCount)
	}
}
