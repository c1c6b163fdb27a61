// Package recurrence materializes weekly session rules into concrete drafts.
//
// Expansion is a one-time, up-front computation: the caller persists every
// returned draft as an independent row and no rule is evaluated again later.
package recurrence

import (
	"time"

	"github.com/example/session-planner/internal/wallclock"
)

// DefaultFollowOns bounds an uncapped weekly rule to roughly one year of
// instances beyond the base draft.
const DefaultFollowOns = 52

// Draft describes one scheduled session instance to persist.
type Draft struct {
	Title            string
	Description      string
	ScheduledAt      time.Time
	EstimatedMinutes *int
	Tags             []string
	Weekly           bool
	EndDate          *time.Time
	Occurrences      *int
}

// Expander turns a weekly-recurring draft into the full set of instances.
type Expander struct {
	maxFollowOns int
	now          func() time.Time
}

// NewExpander constructs an Expander. maxFollowOns caps uncapped rules; zero
// or negative selects DefaultFollowOns. now supplies the reference time for
// the default one-year end date and defaults to time.Now.
func NewExpander(maxFollowOns int, now func() time.Time) *Expander {
	if maxFollowOns <= 0 {
		maxFollowOns = DefaultFollowOns
	}
	if now == nil {
		now = time.Now
	}
	return &Expander{maxFollowOns: maxFollowOns, now: now}
}

// Expand returns the base draft followed by its weekly follow-on instances.
//
// Follow-ons advance the date by exactly seven days per step while keeping
// the time-of-day fields untouched; date arithmetic is wall-clock, so a DST
// transition never shifts the clock time. Each follow-on carries no
// recurrence of its own. Emission stops at whichever cap is hit first: the
// occurrence count (the base counts as the first occurrence when an explicit
// count is given) or the end date (defaulting to one year from now).
func (e *Expander) Expand(base Draft) []Draft {
	drafts := []Draft{base}
	if !base.Weekly {
		return drafts
	}

	followOns := e.maxFollowOns
	if base.Occurrences != nil {
		followOns = *base.Occurrences - 1
		if followOns < 0 {
			followOns = 0
		}
	}

	endDate := e.now().AddDate(1, 0, 0)
	if base.EndDate != nil {
		endDate = *base.EndDate
	}
	lastDay := wallclock.StartOfDay(endDate)

	for n := 1; n <= followOns; n++ {
		at := base.ScheduledAt.AddDate(0, 0, 7*n)
		if wallclock.StartOfDay(at).After(lastDay) {
			break
		}
		drafts = append(drafts, followOn(base, at))
	}

	return drafts
}

func followOn(base Draft, at time.Time) Draft {
	var estimated *int
	if base.EstimatedMinutes != nil {
		value := *base.EstimatedMinutes
		estimated = &value
	}

	return Draft{
		Title:            base.Title,
		Description:      base.Description,
		ScheduledAt:      at,
		EstimatedMinutes: estimated,
		Tags:             append([]string(nil), base.Tags...),
	}
}
