package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/session-planner/internal/planner"
	"github.com/example/session-planner/internal/wallclock"
)

type sessionService interface {
	Create(ctx context.Context, params planner.CreateSessionParams) (planner.ScheduledSession, error)
	List(ctx context.Context, params planner.ListSessionsParams) ([]planner.ScheduledSession, error)
	Update(ctx context.Context, params planner.UpdateSessionParams) (bool, error)
	Delete(ctx context.Context, ownerID, sessionID string) (bool, error)
	Complete(ctx context.Context, ownerID, sessionID, linkedSessionID string) (bool, error)
	MarkNotificationSent(ctx context.Context, ownerID, sessionID string, at time.Time) (bool, error)
}

// SessionHandler exposes the scheduled session operations over JSON.
type SessionHandler struct {
	service   sessionService
	now       func() time.Time
	responder responder
}

// NewSessionHandler wires the session endpoints.
func NewSessionHandler(service sessionService, now func() time.Time, logger *slog.Logger) *SessionHandler {
	if now == nil {
		now = time.Now
	}
	return &SessionHandler{service: service, now: now, responder: newResponder(logger)}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	session, err := h.service.Create(r.Context(), req.toParams(ownerID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	sessions, err := h.service.List(r.Context(), buildListParams(r.URL.Query(), ownerID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	ok, err := h.service.Update(r.Context(), req.toParams(ownerID, sessionID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: errSessionNotFound.Error()})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	ok, err := h.service.Delete(r.Context(), ownerID, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: errSessionNotFound.Error()})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req completeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	ok, err := h.service.Complete(r.Context(), ownerID, sessionID, strings.TrimSpace(req.LinkedSessionID))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: errSessionNotFound.Error()})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) MarkNotified(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	ownerID, _ := OwnerFromContext(r.Context())

	ok, err := h.service.MarkNotificationSent(r.Context(), ownerID, sessionID, h.now())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: errSessionNotFound.Error()})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type recurrenceRequest struct {
	Weekly          bool    `json:"weekly"`
	EndDate         *string `json:"end_date"`
	OccurrenceCount *int    `json:"occurrence_count"`
}

type createSessionRequest struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	ScheduledAt      string            `json:"scheduled_at"`
	EstimatedMinutes *int              `json:"estimated_minutes"`
	Tags             []string          `json:"tags"`
	Recurrence       recurrenceRequest `json:"recurrence"`
}

func (r createSessionRequest) toParams(ownerID string) planner.CreateSessionParams {
	return planner.CreateSessionParams{
		OwnerID:          ownerID,
		Title:            strings.TrimSpace(r.Title),
		Description:      r.Description,
		ScheduledAt:      parseWallclock(r.ScheduledAt),
		EstimatedMinutes: r.EstimatedMinutes,
		Tags:             append([]string(nil), r.Tags...),
		Recurrence: planner.RecurrenceInput{
			Weekly:      r.Recurrence.Weekly,
			EndDate:     parseWallclockPtr(r.Recurrence.EndDate),
			Occurrences: r.Recurrence.OccurrenceCount,
		},
	}
}

type updateSessionRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	ScheduledAt      *string  `json:"scheduled_at"`
	EstimatedMinutes *int     `json:"estimated_minutes"`
	Tags             []string `json:"tags"`
}

func (r updateSessionRequest) toParams(ownerID, sessionID string) planner.UpdateSessionParams {
	return planner.UpdateSessionParams{
		OwnerID:          ownerID,
		SessionID:        sessionID,
		Title:            r.Title,
		Description:      r.Description,
		ScheduledAt:      parseWallclockPtr(r.ScheduledAt),
		EstimatedMinutes: r.EstimatedMinutes,
		Tags:             r.Tags,
	}
}

type completeSessionRequest struct {
	LinkedSessionID string `json:"linked_session_id"`
}

// parseWallclock leaves invalid input as the zero time so the service
// reports the field error.
func parseWallclock(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	ts, err := wallclock.Parse(value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func parseWallclockPtr(value *string) *time.Time {
	if value == nil {
		return nil
	}
	ts := parseWallclock(*value)
	return &ts
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type recurrenceDTO struct {
	Type            string  `json:"type"`
	DayOfWeek       int     `json:"day_of_week,omitempty"`
	EndDate         *string `json:"end_date,omitempty"`
	OccurrenceCount *int    `json:"occurrence_count,omitempty"`
}

type sessionDTO struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	ScheduledAt      string        `json:"scheduled_at"`
	EstimatedMinutes *int          `json:"estimated_minutes,omitempty"`
	Recurrence       recurrenceDTO `json:"recurrence"`
	Status           string        `json:"status"`
	LastNotifiedAt   *string       `json:"last_notified_at,omitempty"`
	LinkedSessionID  *string       `json:"linked_session_id,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
}

func toSessionDTO(session planner.ScheduledSession) sessionDTO {
	dto := sessionDTO{
		ID:               session.ID,
		Title:            session.Title,
		Description:      session.Description,
		ScheduledAt:      wallclock.Format(session.ScheduledAt),
		EstimatedMinutes: session.EstimatedMinutes,
		Recurrence: recurrenceDTO{
			Type:            string(session.Recurrence),
			DayOfWeek:       session.RecurrenceDayOfWeek,
			OccurrenceCount: session.RecurrenceCount,
		},
		Status:          string(session.Status),
		LinkedSessionID: session.LinkedSessionID,
		Tags:            append([]string(nil), session.Tags...),
		CreatedAt:       session.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if session.RecurrenceEndDate != nil {
		endDate := wallclock.FormatDate(*session.RecurrenceEndDate)
		dto.Recurrence.EndDate = &endDate
	}
	if session.LastNotifiedAt != nil {
		notified := wallclock.Format(*session.LastNotifiedAt)
		dto.LastNotifiedAt = &notified
	}
	return dto
}

func toSessionDTOs(sessions []planner.ScheduledSession) []sessionDTO {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

func buildListParams(values url.Values, ownerID string) planner.ListSessionsParams {
	params := planner.ListSessionsParams{OwnerID: ownerID}

	if from := strings.TrimSpace(values.Get("from")); from != "" {
		if ts, err := wallclock.Parse(from); err == nil {
			params.From = &ts
		}
	}
	if to := strings.TrimSpace(values.Get("to")); to != "" {
		if ts, err := wallclock.Parse(to); err == nil {
			params.To = &ts
		}
	}
	if status := strings.TrimSpace(values.Get("status")); status != "" {
		parsed := planner.Status(status)
		params.Status = &parsed
	}

	return params
}
