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
	"fmt"

	"github.com/vericomply/vericomply/internal/session"
)

// EventRepository implements session.EventRepository
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new session event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an event to a session's stream
func (r *EventRepository) Create(ctx context.Context, e *session.Event) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO session_events (id, session_id, event_type, ts_client, ts_server,
			lat, lng, accuracy, location_flag, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		e.ID, e.SessionID, e.Type, e.TSClient, e.TSServer,
		e.Lat, e.Lng, e.Accuracy, e.LocationFlag, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create session event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events ordered by server timestamp
func (r *EventRepository) ListBySession(ctx context.Context, sessionID string) ([]*session.Event, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, session_id, event_type, ts_client, ts_server,
			lat, lng, accuracy, location_flag, notes
		FROM session_events
		WHERE session_id = $1
		ORDER BY ts_server
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session events: %w", err)
	}
	defer rows.Close()

	var events []*session.Event
	for rows.Next() {
		var e session.Event
		err := rows.Scan(
			&e.ID, &e.SessionID, &e.Type, &e.TSClient, &e.TSServer,
			&e.Lat, &e.Lng, &e.Accuracy, &e.LocationFlag, &e.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session events: %w", err)
	}
	return events, nil
}
