package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/http/middleware"
	"github.com/campushub/campus-events-backend/internal/http/response"
	"github.com/campushub/campus-events-backend/internal/observability"
	"github.com/campushub/campus-events-backend/internal/repository"
	"github.com/campushub/campus-events-backend/internal/service"
)

type ClubHandler struct {
	ledger service.MembershipManager
}

func NewClubHandler(ledger service.MembershipManager) *ClubHandler {
	return &ClubHandler{ledger: ledger}
}

func uintParam(r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func pageRequest(r *http.Request) repository.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return repository.PageRequest{Page: page, PageSize: size}
}

func principalOr401(w http.ResponseWriter, r *http.Request) (*domain.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
		return nil, false
	}
	return principal, true
}

func (h *ClubHandler) List(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.ledger.ListClubs(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"clubs": clubs})
}

type createClubRequest struct {
	Name            string `json:"name"`
	HeadPrincipalID uint   `json:"head_principal_id"`
}

func (h *ClubHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	var req createClubRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.HeadPrincipalID == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "name and head_principal_id are required", nil)
		return
	}
	club := &domain.Club{
		ExternalID:      uuid.NewString(),
		Name:            req.Name,
		HeadPrincipalID: req.HeadPrincipalID,
	}
	if err := h.ledger.CreateClub(r.Context(), principal, club); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "club_created", "club_id", club.ID, "actor_id", principal.ID)
	response.JSON(w, r, http.StatusCreated, club)
}

func (h *ClubHandler) Get(w http.ResponseWriter, r *http.Request) {
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	club, err := h.ledger.ClubByID(r.Context(), clubID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, club)
}

func (h *ClubHandler) Join(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	m, err := h.ledger.RequestJoin(r.Context(), principal, clubID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "membership_requested", "club_id", clubID, "student_id", principal.ID)
	response.JSON(w, r, http.StatusCreated, m)
}

func (h *ClubHandler) Leave(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	if err := h.ledger.Leave(r.Context(), principal, clubID); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"left": true})
}

func (h *ClubHandler) Roster(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	roster, err := h.ledger.Roster(r.Context(), principal, clubID, pageRequest(r))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, roster)
}

func (h *ClubHandler) Pending(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubID, ok := uintParam(r, "club_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid club id", nil)
		return
	}
	pending, err := h.ledger.PendingRequests(r.Context(), principal, clubID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"pending": pending})
}

func (h *ClubHandler) MyClubs(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	clubs, err := h.ledger.ActiveClubs(r.Context(), principal.ID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"clubs": clubs})
}

type decideRequest struct {
	Approve bool `json:"approve"`
}

func (h *ClubHandler) Decide(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}
	membershipID, ok := uintParam(r, "membership_id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid membership id", nil)
		return
	}
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	m, err := h.ledger.Decide(r.Context(), principal, membershipID, req.Approve)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "membership_decided",
		"membership_id", m.ID, "status", string(m.Status), "actor_id", principal.ID)
	response.JSON(w, r, http.StatusOK, m)
}
