package recurrence

import (
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.Local)
}

func baseDraft(weekly bool) Draft {
	minutes := 90
	return Draft{
		Title:            "Deep work block",
		Description:      "compiler refactor",
		ScheduledAt:      time.Date(2024, time.March, 4, 9, 30, 0, 0, time.Local),
		EstimatedMinutes: &minutes,
		Tags:             []string{"go", "focus"},
		Weekly:           weekly,
	}
}

func TestExpand_NonRecurringReturnsOnlyBase(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)
	drafts := expander.Expand(baseDraft(false))

	if len(drafts) != 1 {
		t.Fatalf("expected only the base draft, got %d", len(drafts))
	}
	if !drafts[0].ScheduledAt.Equal(baseDraft(false).ScheduledAt) {
		t.Fatalf("base draft was mutated: %v", drafts[0].ScheduledAt)
	}
}

func TestExpand_UncappedWeeklyYieldsDefaultFollowOns(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)
	drafts := expander.Expand(baseDraft(true))

	if len(drafts) != 1+DefaultFollowOns {
		t.Fatalf("expected base plus %d follow-ons, got %d drafts", DefaultFollowOns, len(drafts))
	}

	for n, draft := range drafts[1:] {
		if draft.Weekly {
			t.Fatalf("follow-on %d still carries a recurrence rule", n+1)
		}
		want := baseDraft(true).ScheduledAt.AddDate(0, 0, 7*(n+1))
		if !draft.ScheduledAt.Equal(want) {
			t.Fatalf("follow-on %d scheduled at %v, want %v", n+1, draft.ScheduledAt, want)
		}
		if draft.ScheduledAt.Hour() != 9 || draft.ScheduledAt.Minute() != 30 {
			t.Fatalf("follow-on %d lost time-of-day: %v", n+1, draft.ScheduledAt)
		}
	}
}

func TestExpand_OccurrenceCountCountsTheBase(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)

	base := baseDraft(true)
	count := 4
	base.Occurrences = &count

	drafts := expander.Expand(base)
	if len(drafts) != 4 {
		t.Fatalf("expected 4 drafts total, got %d", len(drafts))
	}
}

func TestExpand_ZeroOccurrencesYieldsOnlyBase(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)

	base := baseDraft(true)
	count := 0
	base.Occurrences = &count

	if drafts := expander.Expand(base); len(drafts) != 1 {
		t.Fatalf("expected only the base draft, got %d", len(drafts))
	}
}

func TestExpand_EndDateClipsBeforeOccurrenceCount(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)

	base := baseDraft(true)
	count := 10
	end := base.ScheduledAt.AddDate(0, 0, 15)
	base.Occurrences = &count
	base.EndDate = &end

	// Two follow-on weeks fit inside 15 days.
	drafts := expander.Expand(base)
	if len(drafts) != 3 {
		t.Fatalf("expected base plus 2 follow-ons, got %d", len(drafts))
	}
}

func TestExpand_EndDateBeforeFirstFollowOn(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)

	base := baseDraft(true)
	end := base.ScheduledAt.AddDate(0, 0, 3)
	base.EndDate = &end

	if drafts := expander.Expand(base); len(drafts) != 1 {
		t.Fatalf("expected only the base draft, got %d", len(drafts))
	}
}

func TestExpand_EndDateIsInclusive(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)

	base := baseDraft(true)
	end := base.ScheduledAt.AddDate(0, 0, 7)
	base.EndDate = &end

	drafts := expander.Expand(base)
	if len(drafts) != 2 {
		t.Fatalf("expected the follow-on landing on the end date to be emitted, got %d drafts", len(drafts))
	}
}

func TestExpand_FollowOnsCopyTagsAndDuration(t *testing.T) {
	t.Parallel()

	expander := NewExpander(0, fixedNow)

	base := baseDraft(true)
	drafts := expander.Expand(base)
	if len(drafts) < 2 {
		t.Fatalf("expected follow-ons, got %d drafts", len(drafts))
	}

	follow := drafts[1]
	if follow.EstimatedMinutes == nil || *follow.EstimatedMinutes != 90 {
		t.Fatalf("estimated duration not preserved: %v", follow.EstimatedMinutes)
	}
	if len(follow.Tags) != 2 || follow.Tags[0] != "go" {
		t.Fatalf("tags not preserved: %v", follow.Tags)
	}

	// The copy must be independent of the base slice.
	follow.Tags[0] = "changed"
	if base.Tags[0] != "go" {
		t.Fatal("follow-on shares tag backing array with the base draft")
	}
}
