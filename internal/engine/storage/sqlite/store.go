// Package sqlite persists engine state in a single SQLite database.
//
// Live sessions stay in an in-process cache; the durable row is written only
// at checkpoints (ForceSave) and terminal transitions. ListLive merges the
// cache with checkpointed rows so a restarted process resumes mid-scoring
// sessions with their snapshot intact.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/baduklab/arena/internal/engine/board"
	"github.com/baduklab/arena/internal/engine/session"
	"github.com/baduklab/arena/internal/engine/storage"
	"github.com/baduklab/arena/internal/engine/storage/sqlite/migrations"
	"github.com/baduklab/arena/internal/platform/storage/sqlitemigrate"
)

// Store implements the engine's session, participant, and telemetry stores
// on top of one SQLite file.
type Store struct {
	sqlDB *sql.DB

	mu    sync.Mutex
	cache map[string]*session.GameSession
}

// Open opens (creating if needed) the SQLite database at path and applies
// embedded migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{
		sqlDB: sqlDB,
		cache: make(map[string]*session.GameSession),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// sessionDoc is the JSON persistence shape of the session aggregate,
// including the scoring snapshot which the aggregate keeps unexported.
type sessionDoc struct {
	ID       string           `json:"id"`
	Mode     session.Mode     `json:"mode"`
	Category session.Category `json:"category"`

	Board *board.Board    `json:"board"`
	Seats [2]session.Seat `json:"seats"`
	Turn  int             `json:"turn"`

	Phase         session.Phase `json:"phase"`
	PhaseDeadline time.Time     `json:"phase_deadline"`
	TurnStartedAt time.Time     `json:"turn_started_at"`

	History []session.Move `json:"history"`
	Round   int            `json:"round"`
	Komi    float64        `json:"komi"`

	Winner    int               `json:"winner"`
	EndReason session.EndReason `json:"end_reason,omitempty"`

	EarlyTermination bool `json:"early_termination,omitempty"`
	ResponsibleSeat  int  `json:"responsible_seat"`

	Analysis   *session.ScoreBreakdown    `json:"analysis,omitempty"`
	Settlement *session.SettlementSummary `json:"settlement,omitempty"`

	ResourceCost int64 `json:"resource_cost"`
	Ranked       bool  `json:"ranked"`

	Processing       session.ProcessingState `json:"processing"`
	BotThinkingUntil time.Time               `json:"bot_thinking_until"`

	Snapshot *session.Snapshot `json:"snapshot,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func encodeSession(sess *session.GameSession) ([]byte, error) {
	doc := sessionDoc{
		ID:               sess.ID,
		Mode:             sess.Mode,
		Category:         sess.Category,
		Board:            sess.Board,
		Seats:            sess.Seats,
		Turn:             sess.Turn,
		Phase:            sess.Phase,
		PhaseDeadline:    sess.PhaseDeadline,
		TurnStartedAt:    sess.TurnStartedAt,
		History:          sess.History,
		Round:            sess.Round,
		Komi:             sess.Komi,
		Winner:           sess.Winner,
		EndReason:        sess.EndReason,
		EarlyTermination: sess.EarlyTermination,
		ResponsibleSeat:  sess.ResponsibleSeat,
		Analysis:         sess.Analysis,
		Settlement:       sess.Settlement,
		ResourceCost:     sess.ResourceCost,
		Ranked:           sess.Ranked,
		Processing:       sess.Processing,
		BotThinkingUntil: sess.BotThinkingUntil,
		Snapshot:         sess.Snapshot(),
		CreatedAt:        sess.CreatedAt,
		StartedAt:        sess.StartedAt,
		UpdatedAt:        sess.UpdatedAt,
		EndedAt:          sess.EndedAt,
	}
	return json.Marshal(doc)
}

func decodeSession(data []byte) (*session.GameSession, error) {
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session document: %w", err)
	}
	sess := &session.GameSession{
		ID:               doc.ID,
		Mode:             doc.Mode,
		Category:         doc.Category,
		Board:            doc.Board,
		Seats:            doc.Seats,
		Turn:             doc.Turn,
		Phase:            doc.Phase,
		PhaseDeadline:    doc.PhaseDeadline,
		TurnStartedAt:    doc.TurnStartedAt,
		History:          doc.History,
		Round:            doc.Round,
		Komi:             doc.Komi,
		Winner:           doc.Winner,
		EndReason:        doc.EndReason,
		EarlyTermination: doc.EarlyTermination,
		ResponsibleSeat:  doc.ResponsibleSeat,
		Analysis:         doc.Analysis,
		Settlement:       doc.Settlement,
		ResourceCost:     doc.ResourceCost,
		Ranked:           doc.Ranked,
		Processing:       doc.Processing,
		BotThinkingUntil: doc.BotThinkingUntil,
		CreatedAt:        doc.CreatedAt,
		StartedAt:        doc.StartedAt,
		UpdatedAt:        doc.UpdatedAt,
		EndedAt:          doc.EndedAt,
	}
	if doc.Snapshot != nil {
		sess.AdoptSnapshot(doc.Snapshot)
	}
	return sess, nil
}

// Get returns the cached session, falling back to the durable row.
func (s *Store) Get(ctx context.Context, id string) (*session.GameSession, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("sqlite store not initialized")
	}
	s.mu.Lock()
	if sess, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	var state []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess, err := decodeSession(state)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[sess.ID]; ok {
		return cached, nil
	}
	s.cache[sess.ID] = sess
	return sess, nil
}

// Save updates the cache. Terminal phases write through so a finished match
// survives a restart even without an explicit checkpoint.
func (s *Store) Save(ctx context.Context, sess *session.GameSession) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	s.mu.Lock()
	s.cache[sess.ID] = sess
	s.mu.Unlock()
	if sess.Phase.Terminal() {
		return s.writeRow(ctx, sess)
	}
	return nil
}

// ForceSave updates the cache and writes the durable row unconditionally.
func (s *Store) ForceSave(ctx context.Context, sess *session.GameSession) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	s.mu.Lock()
	s.cache[sess.ID] = sess
	s.mu.Unlock()
	return s.writeRow(ctx, sess)
}

func (s *Store) writeRow(ctx context.Context, sess *session.GameSession) error {
	state, err := encodeSession(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (id, mode, category, phase, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    mode = excluded.mode,
    category = excluded.category,
    phase = excluded.phase,
    state = excluded.state,
    updated_at = excluded.updated_at`,
		sess.ID, string(sess.Mode), string(sess.Category), string(sess.Phase),
		state, toMillis(sess.CreatedAt), toMillis(sess.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Invalidate evicts the session from the cache. The durable row, if any,
// stays: the engine never deletes sessions.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	return nil
}

// ListLive returns every non-terminal session: the live cache plus any
// checkpointed rows not yet rehydrated.
func (s *Store) ListLive(ctx context.Context) ([]*session.GameSession, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("sqlite store not initialized")
	}
	s.mu.Lock()
	out := make([]*session.GameSession, 0, len(s.cache))
	seen := make(map[string]bool, len(s.cache))
	for id, sess := range s.cache {
		seen[id] = true
		if !sess.Phase.Terminal() {
			out = append(out, sess)
		}
	}
	s.mu.Unlock()

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT state FROM sessions
WHERE phase NOT IN (?, ?)`,
		string(session.PhaseEnded), string(session.PhaseVoided))
	if err != nil {
		return nil, fmt.Errorf("query live sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess, err := decodeSession(state)
		if err != nil {
			return nil, err
		}
		if seen[sess.ID] {
			continue
		}
		s.mu.Lock()
		s.cache[sess.ID] = sess
		s.mu.Unlock()
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// Participants returns the participant-store view of this store. Session and
// participant Get collide on the Store receiver, so participants live behind
// a narrow adapter.
func (s *Store) Participants() storage.ParticipantStore {
	return participantStore{store: s}
}

type participantStore struct {
	store *Store
}

func (p participantStore) Get(ctx context.Context, id string) (storage.ParticipantRecord, error) {
	s := p.store
	if s == nil || s.sqlDB == nil {
		return storage.ParticipantRecord{}, fmt.Errorf("sqlite store not initialized")
	}
	var (
		record        storage.ParticipantRecord
		admin         int
		cooldownUntil int64
		updatedAt     int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, display_name, level, experience, rating, manner_score, currency,
       admin, inventory_count, inventory_cap, loot_bonus, cooldown_until, updated_at
FROM participants WHERE id = ?`, id).Scan(
		&record.ID, &record.DisplayName, &record.Level, &record.Experience,
		&record.Rating, &record.MannerScore, &record.Currency,
		&admin, &record.InventoryCount, &record.InventoryCap, &record.LootBonus,
		&cooldownUntil, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ParticipantRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ParticipantRecord{}, fmt.Errorf("query participant: %w", err)
	}
	record.Admin = admin != 0
	record.CooldownUntil = fromMillis(cooldownUntil)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func (p participantStore) Update(ctx context.Context, record storage.ParticipantRecord) error {
	s := p.store
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	admin := 0
	if record.Admin {
		admin = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO participants (id, display_name, level, experience, rating, manner_score,
    currency, admin, inventory_count, inventory_cap, loot_bonus, cooldown_until, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    display_name = excluded.display_name,
    level = excluded.level,
    experience = excluded.experience,
    rating = excluded.rating,
    manner_score = excluded.manner_score,
    currency = excluded.currency,
    admin = excluded.admin,
    inventory_count = excluded.inventory_count,
    inventory_cap = excluded.inventory_cap,
    loot_bonus = excluded.loot_bonus,
    cooldown_until = excluded.cooldown_until,
    updated_at = excluded.updated_at`,
		record.ID, record.DisplayName, record.Level, record.Experience,
		record.Rating, record.MannerScore, record.Currency,
		admin, record.InventoryCount, record.InventoryCap, record.LootBonus,
		toMillis(record.CooldownUntil), toMillis(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// AppendTelemetryEvent writes one operational telemetry row.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	metadata := []byte("{}")
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode telemetry metadata: %w", err)
		}
		metadata = encoded
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (occurred_at, severity, kind, session_id, message, metadata)
VALUES (?, ?, ?, ?, ?, ?)`,
		toMillis(event.Timestamp), event.Severity, event.Kind,
		event.SessionID, event.Message, metadata)
	if err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}
