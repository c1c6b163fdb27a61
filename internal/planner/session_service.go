package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/session-planner/internal/notify"
	"github.com/example/session-planner/internal/persistence"
	"github.com/example/session-planner/internal/recurrence"
	"github.com/example/session-planner/internal/wallclock"
)

// SessionStore captures the persistence interactions needed by the service.
type SessionStore interface {
	InsertSessions(ctx context.Context, sessions []ScheduledSession) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]ScheduledSession, error)
	UpdateSession(ctx context.Context, ownerID, id string, update SessionUpdate) error
	CompleteSession(ctx context.Context, ownerID, id, linkedSessionID string, at time.Time) error
	MarkNotified(ctx context.Context, ownerID, id string, at time.Time) error
	DeleteSession(ctx context.Context, ownerID, id string) error
}

// SessionService orchestrates validation, recurrence expansion and
// persistence for scheduled session operations.
type SessionService struct {
	sessions    SessionStore
	expander    *recurrence.Expander
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionStore, expander *recurrence.Expander, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if expander == nil {
		expander = recurrence.NewExpander(0, now)
	}
	return &SessionService{
		sessions:    sessions,
		expander:    expander,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Create validates the request, expands a weekly rule into independent
// rows and persists the whole set atomically. It returns the stored base
// session.
func (s *SessionService) Create(ctx context.Context, params CreateSessionParams) (ScheduledSession, error) {
	if s == nil || s.sessions == nil {
		return ScheduledSession{}, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "create", "owner_id", params.OwnerID)

	vErr := &ValidationError{}
	validateCreate(params, vErr)
	if vErr.HasErrors() {
		logger.Info("session create rejected", "error_kind", ErrorKind(vErr))
		return ScheduledSession{}, vErr
	}

	drafts := s.expander.Expand(recurrence.Draft{
		Title:            strings.TrimSpace(params.Title),
		Description:      params.Description,
		ScheduledAt:      params.ScheduledAt,
		EstimatedMinutes: params.EstimatedMinutes,
		Tags:             uniqueTags(params.Tags),
		Weekly:           params.Recurrence.Weekly,
		EndDate:          params.Recurrence.EndDate,
		Occurrences:      params.Recurrence.Occurrences,
	})

	createdAt := s.now()
	sessions := make([]ScheduledSession, 0, len(drafts))
	for i, draft := range drafts {
		session := ScheduledSession{
			ID:               s.idGenerator(),
			OwnerID:          params.OwnerID,
			Title:            draft.Title,
			Description:      draft.Description,
			ScheduledAt:      draft.ScheduledAt,
			EstimatedMinutes: draft.EstimatedMinutes,
			Recurrence:       RecurrenceNone,
			Status:           StatusPending,
			Tags:             draft.Tags,
			CreatedAt:        createdAt,
			UpdatedAt:        createdAt,
		}
		// The base row keeps the rule; expanded instances are independent.
		if i == 0 && params.Recurrence.Weekly {
			session.Recurrence = RecurrenceWeekly
			session.RecurrenceDayOfWeek = wallclock.DayOfWeek(draft.ScheduledAt)
			session.RecurrenceEndDate = params.Recurrence.EndDate
			session.RecurrenceCount = params.Recurrence.Occurrences
		}
		sessions = append(sessions, session)
	}

	if err := s.sessions.InsertSessions(ctx, sessions); err != nil {
		mapped := mapStoreError(err)
		logger.Error("session create failed", "error_kind", ErrorKind(mapped), "error", err)
		return ScheduledSession{}, mapped
	}

	logger.Info("sessions created", "count", len(sessions), "recurring", params.Recurrence.Weekly)
	return sessions[0], nil
}

// List enumerates sessions for the owner in chronological order. Store
// failures degrade to an empty result.
func (s *SessionService) List(ctx context.Context, params ListSessionsParams) ([]ScheduledSession, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "list", "owner_id", params.OwnerID)

	vErr := &ValidationError{}
	if params.Status != nil && !isKnownStatus(*params.Status) {
		vErr.add("status", "must be one of pending, completed, cancelled")
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		vErr.add("range", "from must be before to")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	sessions, err := s.sessions.ListSessions(ctx, SessionFilter{
		OwnerID: params.OwnerID,
		From:    params.From,
		To:      params.To,
		Status:  params.Status,
	})
	if err != nil {
		logger.Warn("session list degraded to empty", "error", err)
		return nil, nil
	}

	ordered := make([]ScheduledSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ScheduledAt.Equal(ordered[j].ScheduledAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].ScheduledAt.Before(ordered[j].ScheduledAt)
	})

	return ordered, nil
}

// Update applies a partial edit to one session. The current status is
// never touched. It reports false when the session does not exist.
func (s *SessionService) Update(ctx context.Context, params UpdateSessionParams) (bool, error) {
	if s == nil || s.sessions == nil {
		return false, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "update", "owner_id", params.OwnerID, "session_id", params.SessionID)

	vErr := &ValidationError{}
	if params.Title != nil && strings.TrimSpace(*params.Title) == "" {
		vErr.add("title", "title is required")
	}
	if params.ScheduledAt != nil && params.ScheduledAt.IsZero() {
		vErr.add("scheduled_at", "scheduled time is required")
	}
	if params.EstimatedMinutes != nil && *params.EstimatedMinutes <= 0 {
		vErr.add("estimated_minutes", "must be a positive number of minutes")
	}
	if vErr.HasErrors() {
		return false, vErr
	}

	update := SessionUpdate{
		Title:            params.Title,
		Description:      params.Description,
		ScheduledAt:      params.ScheduledAt,
		EstimatedMinutes: params.EstimatedMinutes,
		UpdatedAt:        s.now(),
	}
	if params.Title != nil {
		trimmed := strings.TrimSpace(*params.Title)
		update.Title = &trimmed
	}
	if params.Tags != nil {
		update.Tags = uniqueTags(params.Tags)
	}

	if err := s.sessions.UpdateSession(ctx, params.OwnerID, params.SessionID, update); err != nil {
		mapped := mapStoreError(err)
		if errors.Is(mapped, ErrNotFound) {
			logger.Info("session update skipped", "error_kind", "not_found")
			return false, nil
		}
		var inner *ValidationError
		if errors.As(mapped, &inner) {
			return false, mapped
		}
		logger.Error("session update failed", "error", err)
		return false, nil
	}

	logger.Info("session updated")
	return true, nil
}

// Delete cancels a session by removing its row. Rows materialized from the
// same recurrence rule are untouched. It reports false when the session
// does not exist.
func (s *SessionService) Delete(ctx context.Context, ownerID, sessionID string) (bool, error) {
	if s == nil || s.sessions == nil {
		return false, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "delete", "owner_id", ownerID, "session_id", sessionID)

	if err := s.sessions.DeleteSession(ctx, ownerID, sessionID); err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			logger.Info("session delete skipped", "error_kind", "not_found")
			return false, nil
		}
		logger.Error("session delete failed", "error", err)
		return false, nil
	}

	logger.Info("session deleted")
	return true, nil
}

// Complete transitions a pending session to completed and links the
// tracking session that was started from it. Repeat calls succeed without
// changing the stored link. It reports false when the session does not
// exist.
func (s *SessionService) Complete(ctx context.Context, ownerID, sessionID, linkedSessionID string) (bool, error) {
	if s == nil || s.sessions == nil {
		return false, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "complete", "owner_id", ownerID, "session_id", sessionID)

	if strings.TrimSpace(linkedSessionID) == "" {
		vErr := &ValidationError{}
		vErr.add("linked_session_id", "tracking session id is required")
		return false, vErr
	}

	if err := s.sessions.CompleteSession(ctx, ownerID, sessionID, linkedSessionID, s.now()); err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			logger.Info("session complete skipped", "error_kind", "not_found")
			return false, nil
		}
		logger.Error("session complete failed", "error", err)
		return false, nil
	}

	logger.Info("session completed", "linked_session_id", linkedSessionID)
	return true, nil
}

// UpcomingNotifications evaluates the notification windows against the
// owner's pending sessions around now. Store failures degrade to no
// notifications.
func (s *SessionService) UpcomingNotifications(ctx context.Context, ownerID string, now time.Time) ([]notify.Event, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "upcoming_notifications", "owner_id", ownerID)

	// The widest window is day_before, so today and tomorrow cover every
	// candidate.
	from := wallclock.StartOfDay(now)
	to := from.AddDate(0, 0, 2)
	pending := StatusPending

	sessions, err := s.sessions.ListSessions(ctx, SessionFilter{
		OwnerID: ownerID,
		From:    &from,
		To:      &to,
		Status:  &pending,
	})
	if err != nil {
		logger.Warn("notification evaluation degraded to empty", "error", err)
		return nil, nil
	}

	candidates := make([]notify.Session, 0, len(sessions))
	for _, session := range sessions {
		minutes := 0
		if session.EstimatedMinutes != nil {
			minutes = *session.EstimatedMinutes
		}
		candidates = append(candidates, notify.Session{
			ID:               session.ID,
			Title:            session.Title,
			ScheduledAt:      session.ScheduledAt,
			EstimatedMinutes: minutes,
			Tags:             session.Tags,
			LastNotifiedAt:   session.LastNotifiedAt,
		})
	}

	return notify.Evaluate(now, candidates), nil
}

// MarkNotificationSent stamps the reminder guard timestamp. It reports
// false when the session does not exist.
func (s *SessionService) MarkNotificationSent(ctx context.Context, ownerID, sessionID string, at time.Time) (bool, error) {
	if s == nil || s.sessions == nil {
		return false, fmt.Errorf("session store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "planner.sessions", "mark_notified", "owner_id", ownerID, "session_id", sessionID)

	if err := s.sessions.MarkNotified(ctx, ownerID, sessionID, at); err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			logger.Info("notification stamp skipped", "error_kind", "not_found")
			return false, nil
		}
		logger.Error("notification stamp failed", "error", err)
		return false, nil
	}

	return true, nil
}

func validateCreate(params CreateSessionParams, vErr *ValidationError) {
	if strings.TrimSpace(params.OwnerID) == "" {
		vErr.add("owner_id", "owner is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		vErr.add("title", "title is required")
	}
	if params.ScheduledAt.IsZero() {
		vErr.add("scheduled_at", "scheduled time is required")
	}
	if params.EstimatedMinutes != nil && *params.EstimatedMinutes <= 0 {
		vErr.add("estimated_minutes", "must be a positive number of minutes")
	}

	if params.Recurrence.Weekly {
		if params.Recurrence.Occurrences != nil && *params.Recurrence.Occurrences < 1 {
			vErr.add("occurrence_count", "must be at least 1")
		}
		if params.Recurrence.EndDate != nil && !params.ScheduledAt.IsZero() {
			endDay := wallclock.StartOfDay(*params.Recurrence.EndDate)
			firstDay := wallclock.StartOfDay(params.ScheduledAt)
			if endDay.Before(firstDay) {
				vErr.add("recurrence_end_date", "must not be before the first session")
			}
		}
	} else {
		if params.Recurrence.EndDate != nil {
			vErr.add("recurrence_end_date", "requires a weekly recurrence")
		}
		if params.Recurrence.Occurrences != nil {
			vErr.add("occurrence_count", "requires a weekly recurrence")
		}
	}
}

func isKnownStatus(status Status) bool {
	switch status {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func uniqueTags(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("session", "rejected by a storage constraint")
		return vErr
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return fmt.Errorf("planner: id collision: %w", err)
	}
	return err
}
