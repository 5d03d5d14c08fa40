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
	"time"
)

// Repository defines the interface for session persistence
type Repository interface {
	// Create creates a new session
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Update persists status, timestamps and notes for a session
	Update(ctx context.Context, s *Session) error

	// GetActiveByContact returns the contact's session with status
	// active or checked_in, or ErrNoActiveSession
	GetActiveByContact(ctx context.Context, contactID string) (*Session, error)

	// ListByContact returns the contact's sessions, newest first
	ListByContact(ctx context.Context, contactID string, limit, offset int) ([]*Session, error)

	// ListStale returns sessions still checked in whose check-in is older
	// than cutoff
	ListStale(ctx context.Context, cutoff time.Time) ([]*Session, error)
}

// EventRepository defines the interface for session event persistence
type EventRepository interface {
	// Create appends an event to a session's stream
	Create(ctx context.Context, e *Event) error

	// ListBySession returns a session's events ordered by server timestamp
	ListBySession(ctx context.Context, sessionID string) ([]*Event, error)
}
