package persistence

import "time"

// RecurrenceType enumerates the supported recurrence rules.
type RecurrenceType string

const (
	// RecurrenceNone marks a one-off session.
	RecurrenceNone RecurrenceType = "none"
	// RecurrenceWeekly marks a base session whose weekly rule was expanded
	// into independent rows at creation time.
	RecurrenceWeekly RecurrenceType = "weekly"
)

// SessionStatus enumerates the stored lifecycle states. "notified" is not a
// status: it is derived from LastNotifiedAt.
type SessionStatus string

const (
	// StatusPending is the initial and default state.
	StatusPending SessionStatus = "pending"
	// StatusCompleted means the user started the session and a tracking
	// session was linked.
	StatusCompleted SessionStatus = "completed"
	// StatusCancelled is accepted in filters for symmetry; cancelling a
	// session removes its row, so the value is never stored.
	StatusCancelled SessionStatus = "cancelled"
)

// ScheduledSession represents a planned future coding session as stored.
//
// ScheduledAt, RecurrenceEndDate and LastNotifiedAt are naive local
// wall-clock values (see internal/wallclock); CreatedAt and UpdatedAt are
// absolute instants.
type ScheduledSession struct {
	ID                  string
	OwnerID             string
	Title               string
	Description         string
	ScheduledAt         time.Time
	EstimatedMinutes    *int
	Recurrence          RecurrenceType
	RecurrenceDayOfWeek int
	RecurrenceEndDate   *time.Time
	RecurrenceCount     *int
	Status              SessionStatus
	LastNotifiedAt      *time.Time
	LinkedSessionID     *string
	Tags                []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SessionFilter narrows session list queries.
type SessionFilter struct {
	OwnerID string
	From    *time.Time
	To      *time.Time
	Status  *SessionStatus
}

// SessionUpdate carries a partial update; nil fields are left untouched.
// Tags is replaced wholesale when non-nil.
type SessionUpdate struct {
	Title            *string
	Description      *string
	ScheduledAt      *time.Time
	EstimatedMinutes *int
	Tags             []string
	UpdatedAt        time.Time
}
