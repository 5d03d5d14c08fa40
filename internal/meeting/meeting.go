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
	"errors"
	"time"
)

// Domain errors
var (
	ErrNotFound = errors.New("meeting not found")
)

// Meeting is a destination contacts check in to: a named location with a
// geofence and an optional active window.
type Meeting struct {
	ID          string
	Name        string
	Description string

	Address      string
	Lat          float64
	Lng          float64
	RadiusMeters float64

	StartTime *time.Time
	EndTime   *time.Time

	IsActive  bool
	QRCode    string
	CreatedBy string
	CreatedAt time.Time
}

// IsOpen reports whether the meeting accepts check-ins at now: it must be
// active and now must fall inside the configured window, if any.
func (m *Meeting) IsOpen(now time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.StartTime != nil && now.Before(*m.StartTime) {
		return false
	}
	if m.EndTime != nil && now.After(*m.EndTime) {
		return false
	}
	return true
}

// Repository defines the interface for meeting persistence
type Repository interface {
	Create(ctx context.Context, m *Meeting) error
	Get(ctx context.Context, id string) (*Meeting, error)
	Update(ctx context.Context, m *Meeting) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Meeting, error)
}
