package planner

import "time"

// RecurrenceType enumerates the supported recurrence rules.
type RecurrenceType string

const (
	// RecurrenceNone marks a one-off session.
	RecurrenceNone RecurrenceType = "none"
	// RecurrenceWeekly marks a base session created with a weekly rule.
	RecurrenceWeekly RecurrenceType = "weekly"
)

// Status enumerates the session lifecycle states. A reminder having been
// sent is not a status; it is derived from LastNotifiedAt.
type Status string

const (
	// StatusPending is the initial and default state.
	StatusPending Status = "pending"
	// StatusCompleted means the session was started and linked to a
	// tracking session.
	StatusCompleted Status = "completed"
	// StatusCancelled exists for filter symmetry; cancelling deletes the
	// row, so the value is never stored.
	StatusCancelled Status = "cancelled"
)

// ScheduledSession represents a planned future work session.
//
// ScheduledAt, RecurrenceEndDate and LastNotifiedAt are naive local
// wall-clock values (see internal/wallclock). CreatedAt and UpdatedAt are
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
	Status              Status
	LastNotifiedAt      *time.Time
	LinkedSessionID     *string
	Tags                []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RecurrenceInput captures the caller provided recurrence rule.
type RecurrenceInput struct {
	Weekly      bool
	EndDate     *time.Time
	Occurrences *int
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	OwnerID          string
	Title            string
	Description      string
	ScheduledAt      time.Time
	EstimatedMinutes *int
	Recurrence       RecurrenceInput
	Tags             []string
}

// ListSessionsParams wraps the data required to list sessions.
type ListSessionsParams struct {
	OwnerID string
	From    *time.Time
	To      *time.Time
	Status  *Status
}

// UpdateSessionParams wraps a partial update; nil fields are left
// untouched. Tags replaces the tag set wholesale when non-nil.
type UpdateSessionParams struct {
	OwnerID          string
	SessionID        string
	Title            *string
	Description      *string
	ScheduledAt      *time.Time
	EstimatedMinutes *int
	Tags             []string
}

// SessionFilter narrows queries issued to the session store.
type SessionFilter struct {
	OwnerID string
	From    *time.Time
	To      *time.Time
	Status  *Status
}

// SessionUpdate carries the store-level partial update derived from
// UpdateSessionParams.
type SessionUpdate struct {
	Title            *string
	Description      *string
	ScheduledAt      *time.Time
	EstimatedMinutes *int
	Tags             []string
	UpdatedAt        time.Time
}
