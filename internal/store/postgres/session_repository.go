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
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vericomply/vericomply/internal/session"
)

// SessionRepository implements session.Repository
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, contact_id, meeting_id, dest_name, dest_address, dest_lat, dest_lng,
	notes, status, check_in_time, check_out_time, created_at`

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO sessions (id, contact_id, meeting_id, dest_name, dest_address, dest_lat, dest_lng,
			notes, status, check_in_time, check_out_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		s.ID, s.ContactID, s.MeetingID, s.DestName, s.DestAddress, s.DestLat, s.DestLng,
		s.Notes, s.Status, s.CheckInTime, s.CheckOutTime, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1
	`, sessionID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// Update persists status, timestamps and notes for a session
func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE sessions
		SET notes = $2, status = $3, check_in_time = $4, check_out_time = $5
		WHERE id = $1
	`, s.ID, s.Notes, s.Status, s.CheckInTime, s.CheckOutTime)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// GetActiveByContact returns the contact's open session, if any
func (r *SessionRepository) GetActiveByContact(ctx context.Context, contactID string) (*session.Session, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE contact_id = $1 AND status IN ('active', 'checked_in')
		ORDER BY created_at DESC
		LIMIT 1
	`, contactID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNoActiveSession
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// ListByContact returns the contact's sessions, newest first. A limit of
// zero returns everything.
func (r *SessionRepository) ListByContact(ctx context.Context, contactID string, limit, offset int) ([]*session.Session, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE contact_id = $1
		ORDER BY created_at DESC
		LIMIT NULLIF($2, 0) OFFSET $3
	`, contactID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListStale returns checked-in sessions whose check-in is older than cutoff
func (r *SessionRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE status = 'checked_in' AND check_in_time < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var s session.Session
	err := row.Scan(
		&s.ID, &s.ContactID, &s.MeetingID, &s.DestName, &s.DestAddress, &s.DestLat, &s.DestLng,
		&s.Notes, &s.Status, &s.CheckInTime, &s.CheckOutTime, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]*session.Session, error) {
	var sessions []*session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return sessions, nil
}
