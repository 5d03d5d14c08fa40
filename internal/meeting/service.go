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

package meeting

import (
	"context"
	"fmt"
	"sort"

	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/geo"
	"github.com/vericomply/vericomply/internal/id"
)

// NearbyMeeting is a meeting annotated with its distance from a point.
type NearbyMeeting struct {
	Meeting    *Meeting
	DistanceKm float64
}

// Service provides meeting management business logic
type Service struct {
	repo  Repository
	clock clock.Clock
}

// NewService creates a new meeting service
func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

// Create creates a new meeting destination.
func (s *Service) Create(ctx context.Context, m *Meeting) (*Meeting, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("meeting name is required")
	}
	if m.Lat < -90 || m.Lat > 90 || m.Lng < -180 || m.Lng > 180 {
		return nil, fmt.Errorf("invalid meeting coordinates")
	}

	m.ID = id.NewUUIDv7()
	m.IsActive = true
	m.CreatedAt = s.clock.Now()
	if m.RadiusMeters <= 0 {
		m.RadiusMeters = 100
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	return m, nil
}

// Get retrieves a meeting by ID.
func (s *Service) Get(ctx context.Context, meetingID string) (*Meeting, error) {
	return s.repo.Get(ctx, meetingID)
}

// List lists meetings with pagination.
func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Meeting, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}

// SetActive activates or deactivates a meeting.
func (s *Service) SetActive(ctx context.Context, meetingID string, active bool) error {
	m, err := s.repo.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	m.IsActive = active
	return s.repo.Update(ctx, m)
}

// Nearby returns active meetings within radiusKm of the given point,
// closest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyMeeting, error) {
	meetings, err := s.repo.List(ctx, true, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}

	now := s.clock.Now()
	var nearby []NearbyMeeting
	for _, m := range meetings {
		if !m.IsOpen(now) {
			continue
		}
		distKm := geo.Distance(geo.Point{Lat: lat, Lng: lng}, geo.Point{Lat: m.Lat, Lng: m.Lng}) / 1000
		if distKm <= radiusKm {
			nearby = append(nearby, NearbyMeeting{Meeting: m, DistanceKm: distKm})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}
