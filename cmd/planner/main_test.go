package main

import (
	"context"
	"testing"
	"time"

	"github.com/example/session-planner/internal/persistence"
	"github.com/example/session-planner/internal/planner"
	"github.com/example/session-planner/internal/testfixtures"
)

type fakeSessionRepository struct {
	persistence.SessionRepository

	inserted   []persistence.ScheduledSession
	listFilter persistence.SessionFilter
	listResult []persistence.ScheduledSession
}

func (f *fakeSessionRepository) InsertSessions(_ context.Context, sessions []persistence.ScheduledSession) error {
	f.inserted = append(f.inserted, sessions...)
	return nil
}

func (f *fakeSessionRepository) ListSessions(_ context.Context, filter persistence.SessionFilter) ([]persistence.ScheduledSession, error) {
	f.listFilter = filter
	return f.listResult, nil
}

func TestSessionConversionRoundTrip(t *testing.T) {
	endDate := testfixtures.ReferenceTime().AddDate(0, 3, 0)
	occurrences := 12
	session := testfixtures.NewSessionFixture(
		testfixtures.WithSessionTags("go", "focus"),
		testfixtures.WithEstimatedMinutes(90),
		testfixtures.WithWeeklyRule(1, &endDate, &occurrences),
	)
	linked := "track-1"
	session.LinkedSessionID = &linked

	restored := toPlannerSession(toPersistenceSession(session))

	if restored.ID != session.ID || restored.OwnerID != session.OwnerID {
		t.Errorf("Expected identity preserved, got %+v", restored)
	}
	if !restored.ScheduledAt.Equal(session.ScheduledAt) {
		t.Errorf("Expected scheduled time preserved, got %v", restored.ScheduledAt)
	}
	if restored.Recurrence != planner.RecurrenceWeekly || restored.RecurrenceDayOfWeek != 1 {
		t.Errorf("Expected weekly rule preserved, got %+v", restored)
	}
	if restored.RecurrenceCount == nil || *restored.RecurrenceCount != occurrences {
		t.Errorf("Expected occurrence count preserved, got %v", restored.RecurrenceCount)
	}
	if restored.EstimatedMinutes == nil || *restored.EstimatedMinutes != 90 {
		t.Errorf("Expected estimated minutes preserved, got %v", restored.EstimatedMinutes)
	}
	if len(restored.Tags) != 2 {
		t.Errorf("Expected tags preserved, got %v", restored.Tags)
	}
	if restored.LinkedSessionID == nil || *restored.LinkedSessionID != "track-1" {
		t.Errorf("Expected link preserved, got %v", restored.LinkedSessionID)
	}

	// Pointer fields must be independent copies.
	*session.RecurrenceCount = 99
	if *restored.RecurrenceCount == 99 {
		t.Error("Expected converted session to own its pointer fields")
	}
}

func TestSessionStoreAdapter_ConvertsFilter(t *testing.T) {
	repo := &fakeSessionRepository{
		listResult: []persistence.ScheduledSession{
			{ID: "s1", Status: persistence.StatusPending},
		},
	}
	adapter := newSessionStoreAdapter(repo)

	clock := testfixtures.NewClock(time.Time{})
	from := clock.Now()
	to := clock.Advance(48 * time.Hour)
	pending := planner.StatusPending

	sessions, err := adapter.ListSessions(context.Background(), planner.SessionFilter{
		OwnerID: "owner-1",
		From:    &from,
		To:      &to,
		Status:  &pending,
	})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if repo.listFilter.OwnerID != "owner-1" {
		t.Errorf("Expected owner to pass through, got %q", repo.listFilter.OwnerID)
	}
	if repo.listFilter.Status == nil || *repo.listFilter.Status != persistence.StatusPending {
		t.Errorf("Expected status converted, got %v", repo.listFilter.Status)
	}
	if repo.listFilter.From == nil || !repo.listFilter.From.Equal(from) {
		t.Errorf("Expected from bound to pass through, got %v", repo.listFilter.From)
	}

	if len(sessions) != 1 || sessions[0].Status != planner.StatusPending {
		t.Errorf("Expected converted result, got %v", sessions)
	}
}

func TestSessionStoreAdapter_InsertConvertsAll(t *testing.T) {
	repo := &fakeSessionRepository{}
	adapter := newSessionStoreAdapter(repo)

	ids := testfixtures.NewIDGenerator("session")
	batch := []planner.ScheduledSession{
		testfixtures.NewSessionFixture(testfixtures.WithSessionID(ids.Next())),
		testfixtures.NewSessionFixture(testfixtures.WithSessionID(ids.Next())),
	}

	if err := adapter.InsertSessions(context.Background(), batch); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	if len(repo.inserted) != 2 {
		t.Fatalf("Expected 2 converted rows, got %d", len(repo.inserted))
	}
	if repo.inserted[0].ID != "session-1" || repo.inserted[1].ID != "session-2" {
		t.Errorf("Expected generated ids in order, got %s, %s", repo.inserted[0].ID, repo.inserted[1].ID)
	}
	if repo.inserted[0].Status != persistence.StatusPending {
		t.Errorf("Expected pending status converted, got %s", repo.inserted[0].Status)
	}
}
