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

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vericomply/vericomply/internal/audit"
	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/geo"
	"github.com/vericomply/vericomply/internal/id"
	"github.com/vericomply/vericomply/internal/meeting"
)

// Statistics summarizes a contact's session history.
type Statistics struct {
	TotalSessions      int
	StatusCounts       map[Status]int
	CompletedSessions  int
	AverageDurationMin float64
}

// Service provides session lifecycle business logic. It is the
// authoritative side: every transition is validated here, persisted, and
// audited before any caller sees the new state.
type Service struct {
	repo        Repository
	events      EventRepository
	meetings    meeting.Repository
	verifier    *geo.Verifier
	auditLogger audit.Logger
	clock       clock.Clock
}

// NewService creates a new session service
func NewService(
	repo Repository,
	events EventRepository,
	meetings meeting.Repository,
	verifier *geo.Verifier,
	auditLogger audit.Logger,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:        repo,
		events:      events,
		meetings:    meetings,
		verifier:    verifier,
		auditLogger: auditLogger,
		clock:       clk,
	}
}

// CreateSession creates a new attendance session for a contact at a
// meeting. The meeting must exist and be open. If the contact already has
// an active session it is ended first; a contact has at most one active
// session.
func (s *Service) CreateSession(ctx context.Context, contactID, meetingID, notes string) (*Session, error) {
	m, err := s.meetings.Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}

	now := s.clock.Now()
	if !m.IsOpen(now) {
		return nil, ErrMeetingInactive
	}

	if existing, err := s.repo.GetActiveByContact(ctx, contactID); err == nil {
		// The contact abandoned a previous session. End it rather than
		// refusing the new one.
		existing.Status = StatusEnded
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to end previous session: %w", err)
		}
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeSessionEnded,
			ActorID:   contactID,
			SessionID: existing.ID,
			Resource:  "session",
			Metadata:  map[string]any{audit.AttrReason: "superseded"},
		})
	}

	mid := m.ID
	sess := &Session{
		ID:          id.NewUUIDv7(),
		ContactID:   contactID,
		MeetingID:   &mid,
		DestName:    m.Name,
		DestAddress: m.Address,
		DestLat:     m.Lat,
		DestLng:     m.Lng,
		Notes:       notes,
		Status:      StatusActive,
		CreatedAt:   now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeSessionCreated,
		ActorID:   contactID,
		SessionID: sess.ID,
		Resource:  "session",
		Metadata:  map[string]any{audit.AttrMeeting: m.ID},
	})

	return sess, nil
}

// CreateGeneralSession creates a meetingless session used for login
// tracking. If the contact already has an active session it is returned
// as-is.
func (s *Service) CreateGeneralSession(ctx context.Context, contactID, notes string) (*Session, error) {
	if existing, err := s.repo.GetActiveByContact(ctx, contactID); err == nil {
		return existing, nil
	}

	if notes == "" {
		notes = "General session created on login"
	}
	sess := &Session{
		ID:          id.NewUUIDv7(),
		ContactID:   contactID,
		DestName:    "General Session",
		DestAddress: "N/A",
		Notes:       notes,
		Status:      StatusActive,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create general session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeSessionCreated,
		ActorID:   contactID,
		SessionID: sess.ID,
		Resource:  "session",
		Metadata:  map[string]any{audit.AttrReason: "general"},
	})

	return sess, nil
}

// CheckIn records a check-in on a session. The session must be in the
// active state; when the session is bound to a meeting the fix must fall
// inside the meeting geofence. On failure no state is mutated.
func (s *Service) CheckIn(ctx context.Context, sessionID string, loc geo.Location) (*Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Status != StatusActive {
		return nil, fmt.Errorf("%w: check-in requires status %q, session is %q",
			ErrInvalidState, StatusActive, sess.Status)
	}

	if !s.verifier.ValidLocation(loc) {
		return nil, ErrInvalidLocation
	}

	if sess.MeetingID != nil {
		if err := s.verifyGeofence(ctx, sess, loc, EventCheckIn); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.recordEvent(ctx, sess.ID, EventCheckIn, loc, now, ""); err != nil {
		return nil, err
	}

	sess.Status = StatusCheckedIn
	sess.CheckInTime = &now
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeCheckIn,
		ActorID:   sess.ContactID,
		SessionID: sess.ID,
		Resource:  "session",
	})

	return sess, nil
}

// CheckOut records a check-out on a session. The session must be checked
// in; geofence rules match CheckIn. Notes are stored for audit.
func (s *Service) CheckOut(ctx context.Context, sessionID string, loc geo.Location, notes string) (*Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.IsCheckedIn() {
		return nil, fmt.Errorf("%w: check-out requires an open check-in, session is %q",
			ErrInvalidState, sess.Status)
	}

	if !s.verifier.ValidLocation(loc) {
		return nil, ErrInvalidLocation
	}

	if sess.MeetingID != nil {
		if err := s.verifyGeofence(ctx, sess, loc, EventCheckOut); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if err := s.recordEvent(ctx, sess.ID, EventCheckOut, loc, now, notes); err != nil {
		return nil, err
	}

	sess.Status = StatusCompleted
	sess.CheckOutTime = &now
	if notes != "" {
		sess.Notes = appendNote(sess.Notes, notes)
	}
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeCheckOut,
		ActorID:   sess.ContactID,
		SessionID: sess.ID,
		Resource:  "session",
		Metadata:  map[string]any{audit.AttrNotes: notes},
	})

	return sess, nil
}

// MarkNonCompliant flags a checked-in session as departed without
// check-out. The state is terminal: no check-out is possible afterwards.
func (s *Service) MarkNonCompliant(ctx context.Context, sessionID, reason string) (*Session, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.IsCheckedIn() {
		return nil, fmt.Errorf("%w: only a checked-in session can be flagged non-compliant, session is %q",
			ErrInvalidState, sess.Status)
	}

	sess.Status = StatusNonCompliant
	sess.Notes = appendNote(sess.Notes, "Left without checking out: "+reason)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeNonCompliant,
		ActorID:   sess.ContactID,
		SessionID: sess.ID,
		Resource:  "session",
		Metadata:  map[string]any{audit.AttrReason: reason},
	})

	return sess, nil
}

// EndSession ends a session manually without a check-out.
func (s *Service) EndSession(ctx context.Context, sessionID, reason string) error {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status.Terminal() {
		return fmt.Errorf("%w: session already %q", ErrInvalidState, sess.Status)
	}

	sess.Status = StatusEnded
	sess.Notes = appendNote(sess.Notes, "Ended: "+reason)
	if err := s.repo.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeSessionEnded,
		ActorID:   sess.ContactID,
		SessionID: sess.ID,
		Resource:  "session",
		Metadata:  map[string]any{audit.AttrReason: reason},
	})

	return nil
}

// ActiveSession returns the contact's session with an undecided outcome
// (status active or checked_in), or ErrNoActiveSession.
func (s *Service) ActiveSession(ctx context.Context, contactID string) (*Session, error) {
	return s.repo.GetActiveByContact(ctx, contactID)
}

// Get retrieves a session by ID.
func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.repo.Get(ctx, sessionID)
}

// History returns the contact's sessions, newest first.
func (s *Service) History(ctx context.Context, contactID string, limit, offset int) ([]*Session, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByContact(ctx, contactID, limit, offset)
}

// Events returns a session's event stream in server-timestamp order.
func (s *Service) Events(ctx context.Context, sessionID string) ([]*Event, error) {
	return s.events.ListBySession(ctx, sessionID)
}

// Statistics aggregates a contact's history.
func (s *Service) Statistics(ctx context.Context, contactID string) (*Statistics, error) {
	sessions, err := s.repo.ListByContact(ctx, contactID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	stats := &Statistics{StatusCounts: make(map[Status]int)}
	var totalDur time.Duration
	for _, sess := range sessions {
		stats.TotalSessions++
		stats.StatusCounts[sess.Status]++
		if sess.Status == StatusCompleted && sess.CheckInTime != nil && sess.CheckOutTime != nil {
			stats.CompletedSessions++
			totalDur += sess.Duration()
		}
	}
	if stats.CompletedSessions > 0 {
		stats.AverageDurationMin = totalDur.Minutes() / float64(stats.CompletedSessions)
	}
	return stats, nil
}

// SweepStale flags sessions still checked in after maxAge as
// non-compliant. It is the server-side counterpart of the client's
// leave-without-checkout flow, for contacts whose device never came back.
func (s *Service) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	stale, err := s.repo.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	flagged := 0
	for _, sess := range stale {
		if _, err := s.MarkNonCompliant(ctx, sess.ID, "stale check-in sweep"); err != nil {
			continue
		}
		flagged++
	}
	return flagged, nil
}

func (s *Service) verifyGeofence(ctx context.Context, sess *Session, loc geo.Location, ev EventType) error {
	m, err := s.meetings.Get(ctx, *sess.MeetingID)
	if err != nil {
		return fmt.Errorf("failed to load meeting: %w", err)
	}

	res := s.verifier.Verify(loc, geo.Point{Lat: m.Lat, Lng: m.Lng}, m.RadiusMeters)
	if !res.WithinRange {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeGeofenceDenied,
			ActorID:   sess.ContactID,
			SessionID: sess.ID,
			Resource:  string(ev),
			Metadata: map[string]any{
				audit.AttrDistance: res.DistanceMeters,
				audit.AttrMeeting:  m.ID,
			},
		})
		return fmt.Errorf("%w: %.0fm from destination (allowed %.0fm)",
			ErrOutOfRange, res.DistanceMeters, res.RadiusMeters)
	}
	return nil
}

func (s *Service) recordEvent(ctx context.Context, sessionID string, typ EventType, loc geo.Location, now time.Time, notes string) error {
	ev := &Event{
		ID:           id.NewULID(now),
		SessionID:    sessionID,
		Type:         typ,
		TSClient:     now,
		TSServer:     now,
		Lat:          loc.Lat,
		Lng:          loc.Lng,
		Accuracy:     loc.Accuracy,
		LocationFlag: LocationGranted,
		Notes:        notes,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return fmt.Errorf("failed to record %s event: %w", typ, err)
	}
	return nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return strings.TrimSpace(existing + "\n" + note)
}
