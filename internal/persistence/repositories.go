package persistence

import (
	"context"
	"time"
)

// SessionRepository stores scheduled sessions and their tag associations.
//
// InsertSessions persists a base session and its expanded recurring
// instances as one atomic set, including tag upserts and links. Deleting a
// session removes its tag links but never cascades to other rows that were
// materialized from the same recurrence rule.
type SessionRepository interface {
	InsertSessions(ctx context.Context, sessions []ScheduledSession) error
	GetSession(ctx context.Context, ownerID, id string) (ScheduledSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]ScheduledSession, error)
	UpdateSession(ctx context.Context, ownerID, id string, update SessionUpdate) error
	CompleteSession(ctx context.Context, ownerID, id, linkedSessionID string, at time.Time) error
	MarkNotified(ctx context.Context, ownerID, id string, at time.Time) error
	DeleteSession(ctx context.Context, ownerID, id string) error
}
