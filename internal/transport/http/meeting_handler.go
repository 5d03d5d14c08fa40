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

	"github.com/vericomply/vericomply/internal/audit"
	"github.com/vericomply/vericomply/internal/meeting"
)

// MeetingResponse is the wire representation of a meeting
type MeetingResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Address      string     `json:"address,omitempty"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	RadiusMeters float64    `json:"radius_meters"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	IsActive     bool       `json:"is_active"`
	QRCode       string     `json:"qr_code,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toMeetingResponse(m *meeting.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Address:      m.Address,
		Lat:          m.Lat,
		Lng:          m.Lng,
		RadiusMeters: m.RadiusMeters,
		StartTime:    m.StartTime,
		EndTime:      m.EndTime,
		IsActive:     m.IsActive,
		QRCode:       m.QRCode,
		CreatedAt:    m.CreatedAt,
	}
}

// CreateMeetingRequest describes a new meeting location
type CreateMeetingRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Address      string     `json:"address,omitempty"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	RadiusMeters float64    `json:"radius_meters,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// CreateMeeting creates a meeting (admin only)
func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.meetingService.Create(r.Context(), &meeting.Meeting{
		Name:         req.Name,
		Description:  req.Description,
		Address:      req.Address,
		Lat:          req.Lat,
		Lng:          req.Lng,
		RadiusMeters: req.RadiusMeters,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		IsActive:     true,
		CreatedBy:    GetUserID(r.Context()),
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeMeetingCreated,
		ActorID:   GetUserID(r.Context()),
		Resource:  m.ID,
		IPAddress: getIPAddress(r),
		Metadata:  map[string]any{"name": m.Name},
	})

	respondJSON(w, http.StatusCreated, toMeetingResponse(m))
}

// GetMeeting returns a meeting by ID
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := h.meetingService.Get(r.Context(), chi.URLParam(r, "meetingID"))
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			respondError(w, http.StatusNotFound, "meeting not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get meeting")
		return
	}
	respondJSON(w, http.StatusOK, toMeetingResponse(m))
}

// ListMeetings returns meetings, active ones by default
func (h *Handler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly := q.Get("all") != "true"
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	meetings, err := h.meetingService.List(r.Context(), activeOnly, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}

	resp := make([]MeetingResponse, 0, len(meetings))
	for _, m := range meetings {
		resp = append(resp, toMeetingResponse(m))
	}
	respondJSON(w, http.StatusOK, map[string]any{"meetings": resp})
}

// NearbyMeetings returns open meetings around a position, closest first
func (h *Handler) NearbyMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		respondError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}

	radiusKm, err := strconv.ParseFloat(q.Get("radius_km"), 64)
	if err != nil || radiusKm <= 0 {
		radiusKm = 10
	}

	nearby, err := h.meetingService.Nearby(r.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to find meetings")
		return
	}

	type nearbyResponse struct {
		MeetingResponse
		DistanceKm float64 `json:"distance_km"`
	}
	resp := make([]nearbyResponse, 0, len(nearby))
	for _, n := range nearby {
		resp = append(resp, nearbyResponse{
			MeetingResponse: toMeetingResponse(n.Meeting),
			DistanceKm:      n.DistanceKm,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"meetings": resp})
}

// ActivateMeeting re-opens a meeting for check-ins (admin only)
func (h *Handler) ActivateMeeting(w http.ResponseWriter, r *http.Request) {
	h.setMeetingActive(w, r, true)
}

// DeactivateMeeting stops a meeting from accepting check-ins (admin only)
func (h *Handler) DeactivateMeeting(w http.ResponseWriter, r *http.Request) {
	h.setMeetingActive(w, r, false)
}

func (h *Handler) setMeetingActive(w http.ResponseWriter, r *http.Request, active bool) {
	meetingID := chi.URLParam(r, "meetingID")

	if err := h.meetingService.SetActive(r.Context(), meetingID, active); err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			respondError(w, http.StatusNotFound, "meeting not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update meeting")
		return
	}

	if !active {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeMeetingDisabled,
			ActorID:   GetUserID(r.Context()),
			Resource:  meetingID,
			IPAddress: getIPAddress(r),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"id": meetingID, "is_active": active})
}
