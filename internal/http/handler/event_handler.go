package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/campushub/campus-events-backend/internal/http/response"
	"github.com/campushub/campus-events-backend/internal/observability"
	"github.com/campushub/campus-events-backend/internal/service"
)

type EventHandler struct {
	events service.EventManager
}

func NewEventHandler(events service.EventManager) *EventHandler {
	return &EventHandler{events: events}
}

type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func (req *eventRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return "starts_at and ends_at are required"
	}
	if !req.EndsAt.After(req.StartsAt) {
		return "ends_at must be after starts_at"
	}
	return ""
}

func (req *eventRequest) input() service.EventInput {
	return service.EventInput{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if msg := req.validate(); msg != "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", msg, nil)
		return
	}
	event, err := h.events.Create(r.Context(), principal, clubID, req.input())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "event_created", "event_id", event.ID, "club_id", clubID, "actor_id", principal.ID)
	response.JSON(w, r, http.StatusCreated, event)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, ok := uintParam(r, "event_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid event id", nil)
		return
	}
	event, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	eventID, ok := uintParam(r, "event_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid event id", nil)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if msg := req.validate(); msg != "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", msg, nil)
		return
	}
	event, err := h.events.Update(r.Context(), principal, eventID, req.input())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "event_updated", "event_id", event.ID, "actor_id", principal.ID)
	response.JSON(w, r, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	eventID, ok := uintParam(r, "event_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid event id", nil)
		return
	}
	if err := h.events.Delete(r.Context(), principal, eventID); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "event_deleted", "event_id", eventID, "actor_id", principal.ID)
	response.JSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *EventHandler) ListByClub(w http.ResponseWriter, r *http.Request) {
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	events, err := h.events.ListByClub(r.Context(), clubID, pageRequest(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, events)
}

type broadcastRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *EventHandler) BroadcastClub(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "subject is required", nil)
		return
	}
	if err := h.events.BroadcastClub(r.Context(), principal, clubID, req.Subject, req.Body); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "club_broadcast", "club_id", clubID, "actor_id", principal.ID)
	response.JSON(w, r, http.StatusAccepted, map[string]bool{"queued": true})
}

func (h *EventHandler) BroadcastCollege(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "subject is required", nil)
		return
	}
	if err := h.events.BroadcastCollege(r.Context(), principal, req.Subject, req.Body); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "college_broadcast", "actor_id", principal.ID)
	response.JSON(w, r, http.StatusAccepted, map[string]bool{"queued": true})
}
