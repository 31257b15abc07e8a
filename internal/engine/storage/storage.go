// Package storage defines the persistence interfaces the engine depends on.
//
// The engine never deletes a session; it only marks terminal phases. Deletion
// and cache eviction are store-level concerns behind Invalidate.
package storage

import (
	"context"
	"time"

	"github.com/baduklab/arena/internal/engine/session"
	apperrors "github.com/baduklab/arena/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ParticipantRecord captures the participant fields the engine reads and
// settles. The engine touches only these fields and requests minimal-diff
// broadcasts, never full-record pushes.
type ParticipantRecord struct {
	ID          string
	DisplayName string
	Level       int
	Experience  int64
	Rating      int
	MannerScore int
	Currency    int64

	// Admin accounts are exempt from rating and experience penalties.
	Admin bool

	// Inventory bookkeeping for loot grants.
	InventoryCount int
	InventoryCap   int
	LootBonus      float64

	CooldownUntil time.Time
	UpdatedAt     time.Time
}

// SessionStore owns live and terminal session persistence. Sessions normally
// live in a fast cache; ForceSave writes through to durable storage.
type SessionStore interface {
	Get(ctx context.Context, id string) (*session.GameSession, error)
	Save(ctx context.Context, s *session.GameSession) error
	Invalidate(ctx context.Context, id string) error
	ForceSave(ctx context.Context, s *session.GameSession) error
	// ListLive returns every session not yet in a terminal phase.
	ListLive(ctx context.Context) ([]*session.GameSession, error)
}

// ParticipantStore owns participant record persistence.
type ParticipantStore interface {
	Get(ctx context.Context, id string) (ParticipantRecord, error)
	Update(ctx context.Context, record ParticipantRecord) error
}

// TelemetryEvent is one operational telemetry record.
type TelemetryEvent struct {
	Timestamp time.Time
	Severity  string
	Kind      string
	SessionID string
	Message   string
	Metadata  map[string]string
}

// TelemetryStore appends operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
