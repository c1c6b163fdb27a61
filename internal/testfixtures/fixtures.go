// Package testfixtures provides deterministic clocks, id generators and
// session builders shared by tests across the module.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/session-planner/internal/planner"
)

var sessionCounter uint64

// referenceTime is a local wall-clock instant: a Friday morning, so the
// following Monday is a natural first weekly occurrence.
var referenceTime = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.Local)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// SessionOption configures the generated session fixture.
type SessionOption func(*planner.ScheduledSession)

// NewSessionFixture returns a deterministic pending session with optional
// overrides.
func NewSessionFixture(opts ...SessionOption) planner.ScheduledSession {
	idx := atomic.AddUint64(&sessionCounter, 1)
	scheduled := referenceTime.AddDate(0, 0, int(idx)).Add(90 * time.Minute)
	session := planner.ScheduledSession{
		ID:          fmt.Sprintf("session-%03d", idx),
		OwnerID:     "owner-1",
		Title:       fmt.Sprintf("Focus block %03d", idx),
		ScheduledAt: scheduled,
		Recurrence:  planner.RecurrenceNone,
		Status:      planner.StatusPending,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.ID = id
	}
}

// WithSessionOwner overrides the generated owner.
func WithSessionOwner(ownerID string) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.OwnerID = ownerID
	}
}

// WithScheduledAt overrides the generated wall-clock time.
func WithScheduledAt(at time.Time) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.ScheduledAt = at
	}
}

// WithSessionStatus overrides the lifecycle state.
func WithSessionStatus(status planner.Status) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.Status = status
	}
}

// WithSessionTags sets the tag names.
func WithSessionTags(tags ...string) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.Tags = tags
	}
}

// WithWeeklyRule marks the session as the base row of a weekly rule.
func WithWeeklyRule(dayOfWeek int, endDate *time.Time, occurrences *int) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.Recurrence = planner.RecurrenceWeekly
		s.RecurrenceDayOfWeek = dayOfWeek
		s.RecurrenceEndDate = endDate
		s.RecurrenceCount = occurrences
	}
}

// WithEstimatedMinutes sets the expected duration.
func WithEstimatedMinutes(minutes int) SessionOption {
	return func(s *planner.ScheduledSession) {
		s.EstimatedMinutes = &minutes
	}
}
