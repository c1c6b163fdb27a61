package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/session-planner/internal/persistence"
	"github.com/example/session-planner/internal/wallclock"
)

func TestSessionRepository_InsertAndGet(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	minutes := 90
	session := testSession("s1", "owner1", "2024-03-04T09:30:00")
	session.EstimatedMinutes = &minutes
	session.Tags = []string{"go", "focus"}

	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	retrieved, err := repo.GetSession(ctx, "owner1", "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if retrieved.Title != "Refactor parser" {
		t.Errorf("Expected title 'Refactor parser', got '%s'", retrieved.Title)
	}
	if wallclock.Format(retrieved.ScheduledAt) != "2024-03-04T09:30:00" {
		t.Errorf("Expected scheduled_at 2024-03-04T09:30:00, got %s", wallclock.Format(retrieved.ScheduledAt))
	}
	if retrieved.EstimatedMinutes == nil || *retrieved.EstimatedMinutes != 90 {
		t.Errorf("Expected estimated minutes 90, got %v", retrieved.EstimatedMinutes)
	}
	if retrieved.Status != persistence.StatusPending {
		t.Errorf("Expected status pending, got %s", retrieved.Status)
	}
	if len(retrieved.Tags) != 2 || retrieved.Tags[0] != "focus" || retrieved.Tags[1] != "go" {
		t.Errorf("Expected sorted tags [focus go], got %v", retrieved.Tags)
	}
}

func TestSessionRepository_GetSession_WrongOwner(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	session := testSession("s1", "owner1", "2024-03-04T09:30:00")
	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	_, err := repo.GetSession(ctx, "owner2", "s1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for wrong owner, got %v", err)
	}
}

func TestSessionRepository_InsertSessions_Duplicate(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	session := testSession("s1", "owner1", "2024-03-04T09:30:00")
	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate on repeated id, got %v", err)
	}
}

func TestSessionRepository_InsertSessions_AtomicSet(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	valid := testSession("s1", "owner1", "2024-03-04T09:30:00")
	invalid := testSession("s2", "owner1", "2024-03-11T09:30:00")
	invalid.Title = "   " // violates the non-empty title check

	err := repo.InsertSessions(ctx, []persistence.ScheduledSession{valid, invalid})
	if err == nil {
		t.Fatal("Expected insert of invalid set to fail")
	}

	// The whole set rolls back, including the valid row.
	_, err = repo.GetSession(ctx, "owner1", "s1")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected valid row to be rolled back, got %v", err)
	}
}

func TestSessionRepository_ListSessions(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	sessions := []persistence.ScheduledSession{
		testSession("s2", "owner1", "2024-03-11T09:30:00"),
		testSession("s1", "owner1", "2024-03-04T09:30:00"),
		testSession("s3", "owner2", "2024-03-05T09:30:00"),
	}
	if err := repo.InsertSessions(ctx, sessions); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	retrieved, err := repo.ListSessions(ctx, persistence.SessionFilter{OwnerID: "owner1"})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if len(retrieved) != 2 {
		t.Fatalf("Expected 2 sessions for owner1, got %d", len(retrieved))
	}
	if retrieved[0].ID != "s1" || retrieved[1].ID != "s2" {
		t.Errorf("Expected chronological order [s1 s2], got [%s %s]", retrieved[0].ID, retrieved[1].ID)
	}
}

func TestSessionRepository_ListSessions_RangeAndStatus(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	sessions := []persistence.ScheduledSession{
		testSession("s1", "owner1", "2024-03-04T09:30:00"),
		testSession("s2", "owner1", "2024-03-11T09:30:00"),
		testSession("s3", "owner1", "2024-03-18T09:30:00"),
	}
	if err := repo.InsertSessions(ctx, sessions); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}
	if err := repo.CompleteSession(ctx, "owner1", "s2", "track-1", time.Now()); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}

	from := wallclock.MustParse("2024-03-04T00:00:00")
	to := wallclock.MustParse("2024-03-12T00:00:00")
	pending := persistence.StatusPending

	retrieved, err := repo.ListSessions(ctx, persistence.SessionFilter{
		OwnerID: "owner1",
		From:    &from,
		To:      &to,
		Status:  &pending,
	})
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if len(retrieved) != 1 || retrieved[0].ID != "s1" {
		t.Errorf("Expected only pending s1 in range, got %d sessions", len(retrieved))
	}
}

func TestSessionRepository_UpdateSession(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	session := testSession("s1", "owner1", "2024-03-04T09:30:00")
	session.Tags = []string{"go"}
	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	title := "Rework scanner"
	minutes := 45
	newTime := wallclock.MustParse("2024-03-05T14:00:00")
	err := repo.UpdateSession(ctx, "owner1", "s1", persistence.SessionUpdate{
		Title:            &title,
		ScheduledAt:      &newTime,
		EstimatedMinutes: &minutes,
		Tags:             []string{"review", "go"},
		UpdatedAt:        time.Now(),
	})
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	retrieved, err := repo.GetSession(ctx, "owner1", "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved.Title != "Rework scanner" {
		t.Errorf("Expected updated title, got '%s'", retrieved.Title)
	}
	if wallclock.Format(retrieved.ScheduledAt) != "2024-03-05T14:00:00" {
		t.Errorf("Expected rescheduled time, got %s", wallclock.Format(retrieved.ScheduledAt))
	}
	if retrieved.EstimatedMinutes == nil || *retrieved.EstimatedMinutes != 45 {
		t.Errorf("Expected estimated minutes 45, got %v", retrieved.EstimatedMinutes)
	}
	if len(retrieved.Tags) != 2 || retrieved.Tags[0] != "go" || retrieved.Tags[1] != "review" {
		t.Errorf("Expected replaced tags [go review], got %v", retrieved.Tags)
	}
	// Description was not part of the update.
	if retrieved.Description != "deep work block" {
		t.Errorf("Expected untouched description, got '%s'", retrieved.Description)
	}
}

func TestSessionRepository_UpdateSession_NotFound(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	title := "anything"
	err := repo.UpdateSession(context.Background(), "owner1", "missing", persistence.SessionUpdate{
		Title:     &title,
		UpdatedAt: time.Now(),
	})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_CompleteSession_Idempotent(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	session := testSession("s1", "owner1", "2024-03-04T09:30:00")
	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	if err := repo.CompleteSession(ctx, "owner1", "s1", "track-1", time.Now()); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	// Completing again with a different link must succeed and keep the
	// original link.
	if err := repo.CompleteSession(ctx, "owner1", "s1", "track-2", time.Now()); err != nil {
		t.Fatalf("Repeated CompleteSession failed: %v", err)
	}

	retrieved, err := repo.GetSession(ctx, "owner1", "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved.Status != persistence.StatusCompleted {
		t.Errorf("Expected status completed, got %s", retrieved.Status)
	}
	if retrieved.LinkedSessionID == nil || *retrieved.LinkedSessionID != "track-1" {
		t.Errorf("Expected first link to be kept, got %v", retrieved.LinkedSessionID)
	}
}

func TestSessionRepository_MarkNotified(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	session := testSession("s1", "owner1", "2024-03-04T09:30:00")
	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{session}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	at := wallclock.MustParse("2024-03-03T09:30:00")
	if err := repo.MarkNotified(ctx, "owner1", "s1", at); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}

	retrieved, err := repo.GetSession(ctx, "owner1", "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved.LastNotifiedAt == nil || !retrieved.LastNotifiedAt.Equal(at) {
		t.Errorf("Expected last_notified_at %v, got %v", at, retrieved.LastNotifiedAt)
	}
}

func TestSessionRepository_DeleteSession_NonCascading(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	base := testSession("s1", "owner1", "2024-03-04T09:30:00")
	base.Recurrence = persistence.RecurrenceWeekly
	base.RecurrenceDayOfWeek = 1
	base.Tags = []string{"go"}
	instance := testSession("s2", "owner1", "2024-03-11T09:30:00")
	instance.Tags = []string{"go"}

	if err := repo.InsertSessions(ctx, []persistence.ScheduledSession{base, instance}); err != nil {
		t.Fatalf("InsertSessions failed: %v", err)
	}

	if err := repo.DeleteSession(ctx, "owner1", "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	// The materialized instance survives deletion of the base row.
	survivor, err := repo.GetSession(ctx, "owner1", "s2")
	if err != nil {
		t.Fatalf("Expected instance to survive base deletion: %v", err)
	}
	if len(survivor.Tags) != 1 || survivor.Tags[0] != "go" {
		t.Errorf("Expected instance tags intact, got %v", survivor.Tags)
	}

	// The deleted row's tag links are gone.
	var linkCount int
	err = repo.pool.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scheduled_session_tags WHERE session_id = ?", "s1",
	).Scan(&linkCount)
	if err != nil {
		t.Fatalf("Counting tag links failed: %v", err)
	}
	if linkCount != 0 {
		t.Errorf("Expected tag links removed with row, found %d", linkCount)
	}
}

func TestSessionRepository_DeleteSession_NotFound(t *testing.T) {
	repo, cleanup := setupSessionRepositoryTest(t)
	defer cleanup()

	err := repo.DeleteSession(context.Background(), "owner1", "missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testSession(id, ownerID, scheduledAt string) persistence.ScheduledSession {
	now := time.Now().UTC()
	return persistence.ScheduledSession{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "Refactor parser",
		Description: "deep work block",
		ScheduledAt: wallclock.MustParse(scheduledAt),
		Recurrence:  persistence.RecurrenceNone,
		Status:      persistence.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func setupSessionRepositoryTest(t *testing.T) (*SessionRepository, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	pool, err := Open("file:" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test schema: %v", err)
	}

	var counter int
	repo := NewSessionRepository(pool, func() string {
		counter++
		return fmt.Sprintf("tag-%d", counter)
	})

	cleanup := func() {
		pool.Close()
	}

	return repo, cleanup
}
