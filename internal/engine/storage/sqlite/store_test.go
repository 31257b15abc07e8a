package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func newPlayingSession(t *testing.T, id string) *session.GameSession {
	t.Helper()
	s, err := session.New(id, session.Settings{
		Mode:         session.ModeBaduk,
		Category:     session.CategoryNormal,
		BoardSize:    9,
		Komi:         6.5,
		InitialClock: session.Clock{Discipline: session.DisciplineFischer, Remaining: 10 * time.Minute},
		Participants: [2]string{"alice", "bob"},
		BotSeat:      session.NoWinner,
		Ranked:       true,
	}, testNow)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Start(session.PhasePlaying, testNow.Add(time.Minute), testNow); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return s
}

func TestStore_ForceSaveRoundTripsAcrossReopen(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	s := newPlayingSession(t, "sess-1")
	if err := s.ApplyPlacement(0, board.Point{X: 2, Y: 2}, testNow); err != nil {
		t.Fatalf("placement: %v", err)
	}
	if err := s.ApplyPlacement(1, board.Point{X: 6, Y: 6}, testNow); err != nil {
		t.Fatalf("placement: %v", err)
	}
	if err := store.ForceSave(ctx, s); err != nil {
		t.Fatalf("force save: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Mode != session.ModeBaduk || got.Phase != session.PhasePlaying {
		t.Fatalf("rehydrated mode/phase = %s/%s, want baduk/playing", got.Mode, got.Phase)
	}
	if got.MoveCount() != 2 {
		t.Fatalf("history length = %d, want 2", got.MoveCount())
	}
	if got.Board.At(board.Point{X: 2, Y: 2}) != board.Black {
		t.Fatal("black stone missing after rehydration")
	}
	if got.Turn != 0 {
		t.Fatalf("turn = %d, want 0", got.Turn)
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, testNow)
	}
	if got.Seats[1].Clock.Remaining != 10*time.Minute {
		t.Fatalf("clock remaining = %v, want 10m", got.Seats[1].Clock.Remaining)
	}
	if !got.TurnStartedAt.Equal(testNow) {
		t.Fatalf("turn anchor = %v, want %v", got.TurnStartedAt, testNow)
	}
}

func TestStore_SaveIsCacheOnlyForLiveSessions(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	s := newPlayingSession(t, "sess-cache")
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "sess-cache")
	if err != nil {
		t.Fatalf("get from cache: %v", err)
	}
	if got != s {
		t.Fatal("cache returned a different session instance")
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "sess-cache"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after reopen = %v, want ErrNotFound", err)
	}
}

func TestStore_CheckpointPreservesSnapshot(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	s := newPlayingSession(t, "sess-snap")
	if err := s.ApplyPlacement(0, board.Point{X: 4, Y: 4}, testNow); err != nil {
		t.Fatalf("placement: %v", err)
	}
	if err := s.CaptureSnapshot(testNow); err != nil {
		t.Fatalf("capture snapshot: %v", err)
	}
	if err := s.TransitionPhase(session.PhaseScoring, testNow); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := store.ForceSave(ctx, s); err != nil {
		t.Fatalf("force save: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	live, err := reopened.ListLive(ctx)
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(live) != 1 {
		t.Fatalf("live sessions = %d, want 1", len(live))
	}
	got := live[0]
	if got.Phase != session.PhaseScoring {
		t.Fatalf("phase = %s, want scoring", got.Phase)
	}
	snap := got.Snapshot()
	if snap == nil {
		t.Fatal("snapshot lost across checkpoint")
	}
	if len(snap.History) != 1 {
		t.Fatalf("snapshot history = %d, want 1", len(snap.History))
	}
	if got.Corrupted() {
		t.Fatal("rehydrated session reports corruption")
	}
}

func TestStore_ListLiveExcludesTerminalRows(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	live := newPlayingSession(t, "sess-live")
	if err := store.Save(ctx, live); err != nil {
		t.Fatalf("save live: %v", err)
	}

	ended := newPlayingSession(t, "sess-ended")
	ended.Decide(0, session.ReasonResignation, testNow)
	if err := ended.TransitionPhase(session.PhaseEnded, testNow); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := store.Save(ctx, ended); err != nil {
		t.Fatalf("save ended: %v", err)
	}

	got, err := store.ListLive(ctx)
	if err != nil {
		t.Fatalf("list live: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sess-live" {
		t.Fatalf("live sessions = %v, want only sess-live", ids(got))
	}
}

func TestStore_InvalidateEvictsButKeepsDurableRow(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	s := newPlayingSession(t, "sess-evict")
	if err := store.ForceSave(ctx, s); err != nil {
		t.Fatalf("force save: %v", err)
	}
	if err := store.Invalidate(ctx, "sess-evict"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err := store.Get(ctx, "sess-evict")
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if got == s {
		t.Fatal("expected a rehydrated copy, got the evicted instance")
	}
	if got.ID != "sess-evict" {
		t.Fatalf("id = %s, want sess-evict", got.ID)
	}
}

func TestStore_ParticipantUpsertRoundTrips(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	participants := store.Participants()

	record := storage.ParticipantRecord{
		ID:             "alice",
		DisplayName:    "Alice",
		Level:          12,
		Experience:     3400,
		Rating:         1520,
		MannerScore:    9,
		Currency:       250,
		InventoryCount: 3,
		InventoryCap:   20,
		LootBonus:      0.1,
		CooldownUntil:  testNow.Add(5 * time.Minute),
		UpdatedAt:      testNow,
	}
	if err := participants.Update(ctx, record); err != nil {
		t.Fatalf("insert participant: %v", err)
	}

	got, err := participants.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if got.Rating != 1520 || got.Currency != 250 || got.LootBonus != 0.1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CooldownUntil.Equal(testNow.Add(5 * time.Minute)) {
		t.Fatalf("cooldown = %v, want %v", got.CooldownUntil, testNow.Add(5*time.Minute))
	}

	record.Rating = 1536
	record.Experience += 100
	if err := participants.Update(ctx, record); err != nil {
		t.Fatalf("update participant: %v", err)
	}
	got, err = participants.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get updated participant: %v", err)
	}
	if got.Rating != 1536 || got.Experience != 3500 {
		t.Fatalf("update mismatch: rating=%d xp=%d", got.Rating, got.Experience)
	}
}

func TestStore_ParticipantMissingReturnsNotFound(t *testing.T) {
	store, _ := openStore(t)
	if _, err := store.Participants().Get(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get = %v, want ErrNotFound", err)
	}
}

func TestStore_AppendTelemetryEvent(t *testing.T) {
	store, _ := openStore(t)
	err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{
		Timestamp: testNow,
		Severity:  "warn",
		Kind:      "scoring.corruption_detected",
		SessionID: "sess-1",
		Message:   "history shrank during scoring",
		Metadata:  map[string]string{"moves": "14"},
	})
	if err != nil {
		t.Fatalf("append telemetry: %v", err)
	}
}

func ids(sessions []*session.GameSession) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}
