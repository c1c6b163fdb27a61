package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-planner/internal/config"
	httptransport "github.com/example/session-planner/internal/http"
	"github.com/example/session-planner/internal/notify"
	"github.com/example/session-planner/internal/persistence"
	"github.com/example/session-planner/internal/persistence/sqlite"
	"github.com/example/session-planner/internal/planner"
	"github.com/example/session-planner/internal/recurrence"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	repo := sqlite.NewSessionRepository(pool, idGenerator)
	store := newSessionStoreAdapter(repo)
	expander := recurrence.NewExpander(cfg.MaxOccurrences, now)
	sessionService := planner.NewSessionService(store, expander, idGenerator, now, logger)

	driver := notify.NewDriver(
		newDriverSourceAdapter(sessionService, cfg.DefaultOwner),
		newLogDispatcher(logger),
		cfg.PollInterval,
		now,
		logger,
	)
	if err := driver.Start(ctx); err != nil {
		logger.Error("failed to start notification driver", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:      httptransport.NewSessionHandler(sessionService, now, logger),
		Notifications: httptransport.NewNotificationHandler(sessionService, now, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.ResolveOwner(cfg.OwnerHeader, cfg.DefaultOwner),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		driver.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("planner API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// sessionStoreAdapter bridges the service-level store contract onto the
// SQLite repository, converting between the two model vocabularies.
type sessionStoreAdapter struct {
	repo persistence.SessionRepository
}

func newSessionStoreAdapter(repo persistence.SessionRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo}
}

func (a *sessionStoreAdapter) InsertSessions(ctx context.Context, sessions []planner.ScheduledSession) error {
	models := make([]persistence.ScheduledSession, 0, len(sessions))
	for _, session := range sessions {
		models = append(models, toPersistenceSession(session))
	}
	return a.repo.InsertSessions(ctx, models)
}

func (a *sessionStoreAdapter) ListSessions(ctx context.Context, filter planner.SessionFilter) ([]planner.ScheduledSession, error) {
	var status *persistence.SessionStatus
	if filter.Status != nil {
		converted := persistence.SessionStatus(*filter.Status)
		status = &converted
	}

	models, err := a.repo.ListSessions(ctx, persistence.SessionFilter{
		OwnerID: filter.OwnerID,
		From:    filter.From,
		To:      filter.To,
		Status:  status,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}

	sessions := make([]planner.ScheduledSession, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toPlannerSession(model))
	}
	return sessions, nil
}

func (a *sessionStoreAdapter) UpdateSession(ctx context.Context, ownerID, id string, update planner.SessionUpdate) error {
	return a.repo.UpdateSession(ctx, ownerID, id, persistence.SessionUpdate{
		Title:            update.Title,
		Description:      update.Description,
		ScheduledAt:      update.ScheduledAt,
		EstimatedMinutes: update.EstimatedMinutes,
		Tags:             update.Tags,
		UpdatedAt:        update.UpdatedAt,
	})
}

func (a *sessionStoreAdapter) CompleteSession(ctx context.Context, ownerID, id, linkedSessionID string, at time.Time) error {
	return a.repo.CompleteSession(ctx, ownerID, id, linkedSessionID, at)
}

func (a *sessionStoreAdapter) MarkNotified(ctx context.Context, ownerID, id string, at time.Time) error {
	return a.repo.MarkNotified(ctx, ownerID, id, at)
}

func (a *sessionStoreAdapter) DeleteSession(ctx context.Context, ownerID, id string) error {
	return a.repo.DeleteSession(ctx, ownerID, id)
}

func toPersistenceSession(session planner.ScheduledSession) persistence.ScheduledSession {
	return persistence.ScheduledSession{
		ID:                  session.ID,
		OwnerID:             session.OwnerID,
		Title:               session.Title,
		Description:         session.Description,
		ScheduledAt:         session.ScheduledAt,
		EstimatedMinutes:    cloneInt(session.EstimatedMinutes),
		Recurrence:          persistence.RecurrenceType(session.Recurrence),
		RecurrenceDayOfWeek: session.RecurrenceDayOfWeek,
		RecurrenceEndDate:   cloneTime(session.RecurrenceEndDate),
		RecurrenceCount:     cloneInt(session.RecurrenceCount),
		Status:              persistence.SessionStatus(session.Status),
		LastNotifiedAt:      cloneTime(session.LastNotifiedAt),
		LinkedSessionID:     cloneString(session.LinkedSessionID),
		Tags:                append([]string(nil), session.Tags...),
		CreatedAt:           session.CreatedAt,
		UpdatedAt:           session.UpdatedAt,
	}
}

func toPlannerSession(model persistence.ScheduledSession) planner.ScheduledSession {
	return planner.ScheduledSession{
		ID:                  model.ID,
		OwnerID:             model.OwnerID,
		Title:               model.Title,
		Description:         model.Description,
		ScheduledAt:         model.ScheduledAt,
		EstimatedMinutes:    cloneInt(model.EstimatedMinutes),
		Recurrence:          planner.RecurrenceType(model.Recurrence),
		RecurrenceDayOfWeek: model.RecurrenceDayOfWeek,
		RecurrenceEndDate:   cloneTime(model.RecurrenceEndDate),
		RecurrenceCount:     cloneInt(model.RecurrenceCount),
		Status:              planner.Status(model.Status),
		LastNotifiedAt:      cloneTime(model.LastNotifiedAt),
		LinkedSessionID:     cloneString(model.LinkedSessionID),
		Tags:                append([]string(nil), model.Tags...),
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

// driverSourceAdapter scopes the notification loop to the configured owner.
type driverSourceAdapter struct {
	service *planner.SessionService
	ownerID string
}

func newDriverSourceAdapter(service *planner.SessionService, ownerID string) *driverSourceAdapter {
	return &driverSourceAdapter{service: service, ownerID: ownerID}
}

func (a *driverSourceAdapter) UpcomingNotifications(ctx context.Context, now time.Time) ([]notify.Event, error) {
	return a.service.UpcomingNotifications(ctx, a.ownerID, now)
}

func (a *driverSourceAdapter) MarkNotificationSent(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	return a.service.MarkNotificationSent(ctx, a.ownerID, sessionID, at)
}

// logDispatcher surfaces reminders on the process log; the UI layer polls
// GET /notifications/upcoming for presentation.
type logDispatcher struct {
	logger *slog.Logger
}

func newLogDispatcher(logger *slog.Logger) *logDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &logDispatcher{logger: logger.With("service", "notify.dispatcher")}
}

func (d *logDispatcher) Dispatch(ctx context.Context, events []notify.Event) {
	for _, event := range events {
		d.logger.InfoContext(ctx, "session reminder",
			"kind", event.Kind,
			"session_id", event.SessionID,
			"title", event.Title,
			"scheduled_at", event.ScheduledAt,
		)
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
