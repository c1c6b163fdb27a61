package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/session-planner/internal/notify"
	"github.com/example/session-planner/internal/wallclock"
)

type notificationService interface {
	UpcomingNotifications(ctx context.Context, ownerID string, now time.Time) ([]notify.Event, error)
}

// NotificationHandler exposes the notification window evaluation over JSON.
type NotificationHandler struct {
	service   notificationService
	now       func() time.Time
	responder responder
}

// NewNotificationHandler wires the notification endpoints.
func NewNotificationHandler(service notificationService, now func() time.Time, logger *slog.Logger) *NotificationHandler {
	if now == nil {
		now = time.Now
	}
	return &NotificationHandler{service: service, now: now, responder: newResponder(logger)}
}

// Upcoming evaluates the notification windows for the owner. The optional
// `at` query parameter overrides the evaluation time, which makes the
// endpoint previewable.
func (h *NotificationHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	at := h.now()
	if value := strings.TrimSpace(r.URL.Query().Get("at")); value != "" {
		parsed, err := wallclock.Parse(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		at = parsed
	}

	events, err := h.service.UpcomingNotifications(r.Context(), ownerID, at)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, upcomingNotificationsResponse{
		Notifications: toNotificationDTOs(events),
	})
}

type upcomingNotificationsResponse struct {
	Notifications []notificationDTO `json:"notifications"`
}

type notificationDTO struct {
	Kind             string   `json:"kind"`
	SessionID        string   `json:"session_id"`
	Title            string   `json:"title"`
	ScheduledAt      string   `json:"scheduled_at"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

func toNotificationDTOs(events []notify.Event) []notificationDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]notificationDTO, 0, len(events))
	for _, event := range events {
		out = append(out, notificationDTO{
			Kind:             string(event.Kind),
			SessionID:        event.SessionID,
			Title:            event.Title,
			ScheduledAt:      wallclock.Format(event.ScheduledAt),
			EstimatedMinutes: event.EstimatedMinutes,
			Tags:             append([]string(nil), event.Tags...),
		})
	}
	return out
}
