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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vericomply/vericomply/internal/meeting"
)

// MeetingRepository implements meeting.Repository
type MeetingRepository struct {
	db *DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingColumns = `id, name, description, address, lat, lng, radius_meters,
	start_time, end_time, is_active, qr_code, COALESCE(created_by::text, ''), created_at`

// Create creates a new meeting
func (r *MeetingRepository) Create(ctx context.Context, m *meeting.Meeting) error {
	var createdBy *string
	if m.CreatedBy != "" {
		createdBy = &m.CreatedBy
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO meetings (id, name, description, address, lat, lng, radius_meters,
			start_time, end_time, is_active, qr_code, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		m.ID, m.Name, m.Description, m.Address, m.Lat, m.Lng, m.RadiusMeters,
		m.StartTime, m.EndTime, m.IsActive, m.QRCode, createdBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// Get retrieves a meeting by ID
func (r *MeetingRepository) Get(ctx context.Context, id string) (*meeting.Meeting, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE id = $1
	`, id)

	m, err := scanMeeting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, meeting.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// Update updates a meeting
func (r *MeetingRepository) Update(ctx context.Context, m *meeting.Meeting) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE meetings
		SET name = $2, description = $3, address = $4, lat = $5, lng = $6,
			radius_meters = $7, start_time = $8, end_time = $9, is_active = $10, qr_code = $11
		WHERE id = $1
	`,
		m.ID, m.Name, m.Description, m.Address, m.Lat, m.Lng,
		m.RadiusMeters, m.StartTime, m.EndTime, m.IsActive, m.QRCode,
	)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	if result.RowsAffected() == 0 {
		return meeting.ErrNotFound
	}
	return nil
}

// List returns meetings, optionally restricted to active ones. A limit
// of zero returns everything.
func (r *MeetingRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*meeting.Meeting, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE ($1 = FALSE OR is_active)
		ORDER BY created_at DESC
		LIMIT NULLIF($2, 0) OFFSET $3
	`, activeOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*meeting.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meetings: %w", err)
	}
	return meetings, nil
}

func scanMeeting(row pgx.Row) (*meeting.Meeting, error) {
	var m meeting.Meeting
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.Address, &m.Lat, &m.Lng, &m.RadiusMeters,
		&m.StartTime, &m.EndTime, &m.IsActive, &m.QRCode, &m.CreatedBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
