// Package audit records persistence-engine events (migration attempts,
// fallback activations) for after-the-fact inspection. Publishing is
// fire-and-forget: audit must never slow down or fail a user operation.
package audit

import (
	"context"
	"time"
)

// Event kinds emitted by the engine.
const (
	KindMigrationStarted   = "migration.started"
	KindMigrationCompleted = "migration.completed"
	KindMigrationFailed    = "migration.failed"
	KindBackupStored       = "backup.stored"
	KindFallbackActivated  = "repository.fallback"
)

// Event is one audit record.
type Event struct {
	Kind       string            `json:"kind"`
	UserID     string            `json:"userId"`
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}

// Nop drops every event; used when auditing is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
