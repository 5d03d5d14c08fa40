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

// Package lifecycle holds the client-facing session lifecycle manager: a
// small state machine over one contact's active session that mediates
// check-in, check-out and the leave-without-checkout confirmation. It is
// UI-framework agnostic; front ends render snapshots and forward intents.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/session"
)

// Manager errors
var (
	// ErrOperationInFlight is returned when a store call is already
	// pending on this manager. Operations are rejected, not queued.
	ErrOperationInFlight = errors.New("another operation is in flight")
	// ErrClosed is returned after Close; late store results are discarded.
	ErrClosed = errors.New("lifecycle manager closed")
)

// State is the manager's view of the active session.
type State string

const (
	StateNoSession       State = "no_session"
	StateAwaitingCheckIn State = "awaiting_check_in"
	StateCheckedIn       State = "checked_in"
	StateCheckedOut      State = "checked_out"
	StateNonCompliant    State = "non_compliant"
)

// Navigation is the post-action navigation the manager requests. It is an
// outcome value; the surrounding UI performs the actual navigation.
type Navigation int

const (
	NavigateNone Navigation = iota
	NavigateDashboard
)

// Decision is the user's answer to a confirmation prompt. A dismissed
// dialog counts as a negative answer.
type Decision int

const (
	DecisionDismissed Decision = iota
	DecisionStay
	DecisionLeave
)

// Confirmation is the prompt content shown before flagging non-compliance.
type Confirmation struct {
	Title string
	Body  string
}

// Prompt text shown before leaving a checked-in session.
const (
	leaveTitle = "Leave Without Checking Out?"
	leaveBody  = "You are still checked in. Leaving now will mark this session " +
		"as non-compliant and it cannot be undone. Are you sure you want to leave?"
)

// ConfirmationPrompt presents a binary dialog to the user.
type ConfirmationPrompt interface {
	Confirm(ctx context.Context, c Confirmation) (Decision, error)
}

// Store is the authoritative session store the manager talks to. All
// calls may fail with transport or validation errors.
type Store interface {
	// LoadActiveSession returns the contact's current session, or
	// (nil, nil) when none is active.
	LoadActiveSession(ctx context.Context) (*session.Session, error)
	// CheckIn records a check-in and returns the updated session.
	CheckIn(ctx context.Context, sessionID string) (*session.Session, error)
	// CheckOut records a check-out and returns the updated session.
	CheckOut(ctx context.Context, sessionID, notes string) (*session.Session, error)
	// MarkNonCompliant flags the session as departed without check-out.
	MarkNonCompliant(ctx context.Context, sessionID string) (*session.Session, error)
}

// Snapshot is an immutable view handed to listeners on every state change.
type Snapshot struct {
	State     State
	Session   *session.Session
	LastError string
}

// Listener receives state-change notifications. Listeners run on the
// calling goroutine and must not call back into the manager.
type Listener func(Snapshot)

// Manager owns one contact's cached active session. It is created by
// whichever component composes it and passed by reference; there is no
// ambient singleton. All methods are safe for concurrent use, but only
// one store call may be in flight at a time.
type Manager struct {
	store  Store
	prompt ConfirmationPrompt
	clock  clock.Clock

	mu        sync.Mutex
	active    *session.Session
	lastErr   string
	inFlight  bool
	closed    bool
	listeners []Listener
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store Store, prompt ConfirmationPrompt, clk clock.Clock) *Manager {
	return &Manager{store: store, prompt: prompt, clock: clk}
}

// Subscribe registers a listener for state changes.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State derives the current state from the cached session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deriveState(m.active)
}

// Active returns the cached active session, if any.
func (m *Manager) Active() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastError returns the current user-facing error message. It is cleared
// by the next successful operation.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Elapsed returns the time spent checked in as of now. It is read-only:
// the periodic UI tick calls it without mutating any state.
func (m *Manager) Elapsed(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return session.Elapsed(m.active, now)
}

// ElapsedString formats Elapsed against the manager's clock as HH:MM:SS.
func (m *Manager) ElapsedString() string {
	return session.FormatElapsed(m.Elapsed(m.clock.Now()))
}

// LoadActiveSession fetches the current session from the store and
// replaces the cached one. It performs no other mutation.
func (m *Manager) LoadActiveSession(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}

	sess, err := m.store.LoadActiveSession(ctx)

	return m.finish(func() error {
		if err != nil {
			m.lastErr = err.Error()
			return err
		}
		m.active = sess
		m.lastErr = ""
		return nil
	})
}

// CheckIn checks in to the referenced session. It fails with
// ErrInvalidState if the session is already checked in or checked out;
// store failures leave the cached state unchanged.
func (m *Manager) CheckIn(ctx context.Context, sessionID string) error {
	if err := m.begin(); err != nil {
		return err
	}

	// Local validation first, before any remote call.
	m.mu.Lock()
	if m.active != nil && m.active.ID == sessionID &&
		(m.active.IsCheckedIn() || m.active.IsCheckedOut()) {
		m.mu.Unlock()
		return m.finish(func() error {
			m.lastErr = session.ErrInvalidState.Error()
			return session.ErrInvalidState
		})
	}
	m.mu.Unlock()

	sess, err := m.store.CheckIn(ctx, sessionID)

	return m.finish(func() error {
		if err != nil {
			m.lastErr = err.Error()
			return err
		}
		m.active = sess
		m.lastErr = ""
		return nil
	})
}

// CheckOut checks out of the referenced session. An empty sessionID falls
// back to the cached active session, provided it is checked in and not
// checked out; otherwise the call fails with ErrNoActiveSession. Notes
// are stored for audit.
func (m *Manager) CheckOut(ctx context.Context, sessionID, notes string) error {
	if err := m.begin(); err != nil {
		return err
	}

	m.mu.Lock()
	if sessionID == "" {
		if m.active == nil || !m.active.IsCheckedIn() {
			m.mu.Unlock()
			return m.finish(func() error {
				m.lastErr = session.ErrNoActiveSession.Error()
				return session.ErrNoActiveSession
			})
		}
		sessionID = m.active.ID
	}
	m.mu.Unlock()

	sess, err := m.store.CheckOut(ctx, sessionID, notes)

	return m.finish(func() error {
		if err != nil {
			m.lastErr = err.Error()
			return err
		}
		m.active = sess
		m.lastErr = ""
		return nil
	})
}

// ConfirmLeaveWithoutCheckout runs the two-step departure protocol: the
// user is shown an explicit warning, and only an explicit affirmative
// response flags the session non-compliant and permits navigation away.
// A negative or dismissed response leaves all state unchanged and the
// caller remains blocked from exiting.
func (m *Manager) ConfirmLeaveWithoutCheckout(ctx context.Context) (Navigation, error) {
	if err := m.begin(); err != nil {
		return NavigateNone, err
	}

	m.mu.Lock()
	if m.active == nil || !m.active.IsCheckedIn() {
		m.mu.Unlock()
		return NavigateNone, m.finish(func() error {
			m.lastErr = session.ErrNoActiveSession.Error()
			return session.ErrNoActiveSession
		})
	}
	sessionID := m.active.ID
	m.mu.Unlock()

	decision, err := m.prompt.Confirm(ctx, Confirmation{Title: leaveTitle, Body: leaveBody})
	if err != nil || decision != DecisionLeave {
		// Dismissal and errors are treated as "stay": no state change and
		// no listener notification.
		return NavigateNone, m.release()
	}

	sess, err := m.store.MarkNonCompliant(ctx, sessionID)

	nav := NavigateNone
	ferr := m.finish(func() error {
		if err != nil {
			m.lastErr = err.Error()
			return err
		}
		m.active = sess
		m.lastErr = ""
		nav = NavigateDashboard
		return nil
	})
	return nav, ferr
}

// Close marks the manager disposed. Any store call still pending has its
// result discarded: no state mutation and no listener notification.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = nil
}

// begin claims the single in-flight slot.
func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.inFlight {
		return ErrOperationInFlight
	}
	m.inFlight = true
	return nil
}

// finish applies a result under the lock, releases the in-flight slot and
// notifies listeners. If the manager was closed while the store call was
// pending, the result is discarded and ErrClosed is returned.
func (m *Manager) finish(apply func() error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.inFlight = false
	err := apply()
	snap := Snapshot{State: deriveState(m.active), Session: m.active, LastError: m.lastErr}
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return err
}

// release frees the in-flight slot without touching state or notifying
// listeners; used when the user declined and nothing changed.
func (m *Manager) release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.inFlight = false
	return nil
}

func deriveState(s *session.Session) State {
	switch {
	case s == nil:
		return StateNoSession
	case s.Status == session.StatusActive:
		return StateAwaitingCheckIn
	case s.Status == session.StatusCheckedIn:
		return StateCheckedIn
	case s.Status == session.StatusNonCompliant:
		return StateNonCompliant
	default:
		return StateCheckedOut
	}
}
