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

package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/vericomply/vericomply/internal/geo"
	"github.com/vericomply/vericomply/internal/session"
)

// LocationProvider supplies the device's current GPS fix.
type LocationProvider interface {
	Current(ctx context.Context) (geo.Location, error)
}

// ServiceStore adapts the in-process session service to the manager's
// Store interface, scoped to a single contact. Kiosk and embedded
// deployments compose the manager directly over the service this way.
type ServiceStore struct {
	svc       *session.Service
	contactID string
	location  LocationProvider
}

// NewServiceStore creates a store adapter for one contact.
func NewServiceStore(svc *session.Service, contactID string, location LocationProvider) *ServiceStore {
	return &ServiceStore{svc: svc, contactID: contactID, location: location}
}

// LoadActiveSession returns the contact's active session, or (nil, nil)
// when there is none.
func (s *ServiceStore) LoadActiveSession(ctx context.Context) (*session.Session, error) {
	sess, err := s.svc.ActiveSession(ctx, s.contactID)
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// CheckIn records a check-in at the device's current location.
func (s *ServiceStore) CheckIn(ctx context.Context, sessionID string) (*session.Session, error) {
	loc, err := s.location.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("location unavailable: %w", err)
	}
	return s.svc.CheckIn(ctx, sessionID, loc)
}

// CheckOut records a check-out at the device's current location.
func (s *ServiceStore) CheckOut(ctx context.Context, sessionID, notes string) (*session.Session, error) {
	loc, err := s.location.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("location unavailable: %w", err)
	}
	return s.svc.CheckOut(ctx, sessionID, loc, notes)
}

// MarkNonCompliant flags the session after a confirmed departure.
func (s *ServiceStore) MarkNonCompliant(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.svc.MarkNonCompliant(ctx, sessionID, "user confirmed departure")
}
