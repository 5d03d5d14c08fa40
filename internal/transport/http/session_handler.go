// Copyright 2026 The VeriComply Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vericomply/vericomply/internal/geo"
	"github.com/vericomply/vericomply/internal/identity"
	"github.com/vericomply/vericomply/internal/session"
)

// LocationPayload is the device-reported position attached to check
// requests.
type LocationPayload struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

func (p LocationPayload) toLocation() geo.Location {
	return geo.Location{Lat: p.Lat, Lng: p.Lng, Accuracy: p.Accuracy}
}

// SessionResponse is the wire representation of a session
type SessionResponse struct {
	ID           string     `json:"id"`
	ContactID    string     `json:"contact_id"`
	MeetingID    *string    `json:"meeting_id,omitempty"`
	DestName     string     `json:"dest_name"`
	DestAddress  string     `json:"dest_address"`
	DestLat      float64    `json:"dest_lat"`
	DestLng      float64    `json:"dest_lng"`
	Notes        string     `json:"notes,omitempty"`
	Status       string     `json:"status"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Elapsed      string     `json:"elapsed,omitempty"`
}

func toSessionResponse(s *session.Session, now time.Time) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		ContactID:    s.ContactID,
		MeetingID:    s.MeetingID,
		DestName:     s.DestName,
		DestAddress:  s.DestAddress,
		DestLat:      s.DestLat,
		DestLng:      s.DestLng,
		Notes:        s.Notes,
		Status:       string(s.Status),
		CheckInTime:  s.CheckInTime,
		CheckOutTime: s.CheckOutTime,
		CreatedAt:    s.CreatedAt,
	}
	if s.IsCheckedIn() {
		resp.Elapsed = session.FormatElapsed(session.Elapsed(s, now))
	}
	return resp
}

// CreateSessionRequest starts a new attendance session. MeetingID is
// optional; without it a general session is created.
type CreateSessionRequest struct {
	MeetingID string `json:"meeting_id,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// CreateSession starts a new session for the authenticated contact
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contactID := GetUserID(r.Context())

	var (
		s   *session.Session
		err error
	)
	if req.MeetingID == "" {
		s, err = h.sessionService.CreateGeneralSession(r.Context(), contactID, req.Notes)
	} else {
		s, err = h.sessionService.CreateSession(r.Context(), contactID, req.MeetingID, req.Notes)
	}
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMeetingNotFound):
			respondError(w, http.StatusNotFound, "meeting not found")
		case errors.Is(err, session.ErrMeetingInactive):
			respondError(w, http.StatusConflict, "meeting is not accepting check-ins")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toSessionResponse(s, time.Now()))
}

// GetActiveSession returns the contact's open session
func (h *Handler) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessionService.ActiveSession(r.Context(), GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			respondError(w, http.StatusNotFound, session.ErrNoActiveSession.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get active session")
		return
	}

	respondJSON(w, http.StatusOK, toSessionResponse(s, time.Now()))
}

// ListSessions returns the contact's session history, newest first
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := h.sessionService.History(r.Context(), GetUserID(r.Context()), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	now := time.Now()
	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s, now))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": resp})
}

// GetStatistics summarizes the contact's history
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessionService.Statistics(r.Context(), GetUserID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total_sessions":       stats.TotalSessions,
		"completed_sessions":   stats.CompletedSessions,
		"status_counts":        stats.StatusCounts,
		"average_duration_min": stats.AverageDurationMin,
	})
}

// GetSession returns one of the contact's sessions by ID
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(s, time.Now()))
}

// ListSessionEvents returns the session's event stream
func (h *Handler) ListSessionEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	events, err := h.sessionService.Events(r.Context(), s.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// CheckIn marks arrival at the session's destination
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var loc LocationPayload
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.sessionService.CheckIn(r.Context(), s.ID, loc.toLocation())
	if err != nil {
		respondSessionError(w, err, "failed to check in")
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(updated, time.Now()))
}

// CheckOutRequest carries the check-out location and optional notes
type CheckOutRequest struct {
	LocationPayload
	Notes string `json:"notes,omitempty"`
}

// CheckOut marks departure from the session's destination
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	h.checkOut(w, r, s.ID)
}

// CheckOutActive checks out of the contact's open session without
// naming it.
func (h *Handler) CheckOutActive(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessionService.ActiveSession(r.Context(), GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			respondError(w, http.StatusNotFound, session.ErrNoActiveSession.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get active session")
		return
	}
	h.checkOut(w, r, s.ID)
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.sessionService.CheckOut(r.Context(), sessionID, req.toLocation(), req.Notes)
	if err != nil {
		respondSessionError(w, err, "failed to check out")
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(updated, time.Now()))
}

// LeaveRequest acknowledges leaving without checking out
type LeaveRequest struct {
	Confirm bool `json:"confirm"`
}

// LeaveWithoutCheckout flags the session non-compliant after an explicit
// confirmation. Without confirm the request is rejected so clients must
// surface the warning first.
func (h *Handler) LeaveWithoutCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Confirm {
		respondError(w, http.StatusConflict, "confirmation required: leaving without checking out marks the session non-compliant")
		return
	}

	updated, err := h.sessionService.MarkNonCompliant(r.Context(), s.ID, "user confirmed departure")
	if err != nil {
		respondSessionError(w, err, "failed to flag session")
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(updated, time.Now()))
}

// EndSessionRequest carries the reason for an administrative end
type EndSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// EndSession ends a session administratively without a check-out
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		req.Reason = "ended by administrator"
	}

	if err := h.sessionService.EndSession(r.Context(), chi.URLParam(r, "sessionID"), req.Reason); err != nil {
		respondSessionError(w, err, "failed to end session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// ownedSession loads the routed session and enforces that it belongs to
// the caller. Admins may read any session.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessionService.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "failed to get session")
		return nil, false
	}

	ctx := r.Context()
	if s.ContactID != GetUserID(ctx) && GetRole(ctx) != string(identity.RoleAdmin) {
		respondError(w, http.StatusForbidden, "session belongs to another contact")
		return nil, false
	}
	return s, true
}

func respondSessionError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrNoActiveSession):
		respondError(w, http.StatusNotFound, session.ErrNoActiveSession.Error())
	case errors.Is(err, session.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrInvalidLocation):
		respondError(w, http.StatusUnprocessableEntity, "invalid location data")
	case errors.Is(err, session.ErrOutOfRange):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
