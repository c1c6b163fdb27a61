// Package notify decides when scheduled sessions need reminders and drives
// the periodic evaluation loop.
package notify

import (
	"time"

	"github.com/example/session-planner/internal/wallclock"
)

// Kind identifies the reminder tier an event belongs to.
type Kind string

const (
	// KindDayBefore fires once per calendar day for sessions scheduled tomorrow.
	KindDayBefore Kind = "day_before"
	// KindSameDay fires while a session is between zero and two hours away.
	KindSameDay Kind = "same_day"
	// KindTimeToStart fires within five minutes of the scheduled instant,
	// in either direction, to tolerate polling jitter.
	KindTimeToStart Kind = "time_to_start"
)

// Session is the evaluator's read-only view of a pending scheduled session.
type Session struct {
	ID               string
	Title            string
	ScheduledAt      time.Time
	EstimatedMinutes int
	Tags             []string
	LastNotifiedAt   *time.Time
}

// Event is one reminder the caller should surface to the user.
type Event struct {
	SessionID        string
	Title            string
	ScheduledAt      time.Time
	EstimatedMinutes int
	Tags             []string
	Kind             Kind
}

const (
	sameDayWindow    = 2 * time.Hour
	startWindow      = 5 * time.Minute
	startGracePeriod = 5 * time.Minute
)

// Evaluate classifies which pending sessions need a reminder at the given
// instant. The three windows are independent: a session may produce more
// than one event on a single pass when its windows overlap.
//
// Only day_before consults the persisted LastNotifiedAt guard; repeat
// suppression for same_day and time_to_start is the caller's job (see
// firedCache in the Driver).
func Evaluate(now time.Time, pending []Session) []Event {
	var events []Event

	for _, session := range pending {
		remaining := session.ScheduledAt.Sub(now)

		if dueDayBefore(now, session) {
			events = append(events, newEvent(session, KindDayBefore))
		}

		if wallclock.SameDay(session.ScheduledAt, now) {
			if remaining > 0 && remaining <= sameDayWindow {
				events = append(events, newEvent(session, KindSameDay))
			}
			if remaining > -startGracePeriod && remaining <= startWindow {
				events = append(events, newEvent(session, KindTimeToStart))
			}
		}
	}

	return events
}

func dueDayBefore(now time.Time, session Session) bool {
	if !wallclock.SameDay(session.ScheduledAt, now.AddDate(0, 0, 1)) {
		return false
	}
	if session.LastNotifiedAt == nil {
		return true
	}
	return wallclock.StartOfDay(*session.LastNotifiedAt).Before(wallclock.StartOfDay(now))
}

func newEvent(session Session, kind Kind) Event {
	return Event{
		SessionID:        session.ID,
		Title:            session.Title,
		ScheduledAt:      session.ScheduledAt,
		EstimatedMinutes: session.EstimatedMinutes,
		Tags:             append([]string(nil), session.Tags...),
		Kind:             kind,
	}
}
