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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/session"
)

// mockStore is an in-memory Store with optional call gating so tests can
// hold a call open while poking the manager from another goroutine.
type mockStore struct {
	mu sync.Mutex

	active *session.Session

	checkInCalls         int
	checkOutCalls        int
	markNonCompliantCall int

	// When non-nil, store calls block until the channel is closed.
	gate chan struct{}

	err error
}

func (m *mockStore) wait() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (m *mockStore) LoadActiveSession(ctx context.Context) (*session.Session, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.active, nil
}

func (m *mockStore) CheckIn(ctx context.Context, sessionID string) (*session.Session, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkInCalls++
	if m.err != nil {
		return nil, m.err
	}
	now := time.Now()
	s := *m.active
	s.Status = session.StatusCheckedIn
	s.CheckInTime = &now
	m.active = &s
	return &s, nil
}

func (m *mockStore) CheckOut(ctx context.Context, sessionID, notes string) (*session.Session, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOutCalls++
	if m.err != nil {
		return nil, m.err
	}
	now := time.Now()
	s := *m.active
	s.Status = session.StatusCompleted
	s.CheckOutTime = &now
	m.active = &s
	return &s, nil
}

func (m *mockStore) MarkNonCompliant(ctx context.Context, sessionID string) (*session.Session, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markNonCompliantCall++
	if m.err != nil {
		return nil, m.err
	}
	s := *m.active
	s.Status = session.StatusNonCompliant
	m.active = &s
	return &s, nil
}

// mockPrompt returns a fixed decision.
type mockPrompt struct {
	decision Decision
	err      error
	calls    int
}

func (p *mockPrompt) Confirm(ctx context.Context, c Confirmation) (Decision, error) {
	p.calls++
	return p.decision, p.err
}

func checkedInSession(id string, checkIn time.Time) *session.Session {
	return &session.Session{
		ID:          id,
		ContactID:   "contact-1",
		Status:      session.StatusCheckedIn,
		CheckInTime: &checkIn,
		CreatedAt:   checkIn,
	}
}

// TestPurpose: Validates elapsed-time reads: derived purely from the check-in
// timestamp, formatted HH:MM:SS, monotonic under an advancing clock, and free
// of side effects on manager state.
// Scope: Unit Test
// Expected: 1h1m1s reads as "01:01:01" and repeated reads never decrease.
// Test Case ID: LCM-01
func TestManager_Elapsed(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	store := &mockStore{active: checkedInSession("s1", start)}
	m := NewManager(store, &mockPrompt{}, clk)

	require.NoError(t, m.LoadActiveSession(context.Background()))
	require.Equal(t, StateCheckedIn, m.State())

	clk.Advance(3661 * time.Second)
	assert.Equal(t, "01:01:01", m.ElapsedString())

	prev := m.Elapsed(clk.Now())
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		cur := m.Elapsed(clk.Now())
		assert.Greater(t, cur, prev, "elapsed must be monotonic")
		prev = cur
	}

	// Reading elapsed must not change state.
	assert.Equal(t, StateCheckedIn, m.State())
}

// TestPurpose: Validates elapsed time is zero when nothing is checked in.
// Scope: Unit Test
// Expected: "00:00:00" with no session and with a session awaiting check-in.
// Test Case ID: LCM-02
func TestManager_Elapsed_NoCheckIn(t *testing.T) {
	clk := clock.NewFake(time.Now())
	m := NewManager(&mockStore{}, &mockPrompt{}, clk)

	assert.Equal(t, "00:00:00", m.ElapsedString())

	store := &mockStore{active: &session.Session{ID: "s1", Status: session.StatusActive}}
	m = NewManager(store, &mockPrompt{}, clk)
	require.NoError(t, m.LoadActiveSession(context.Background()))
	assert.Equal(t, StateAwaitingCheckIn, m.State())
	assert.Equal(t, "00:00:00", m.ElapsedString())
}

// TestPurpose: Validates check-out with no session reference and no active
// session fails with the canonical no-active-session message and changes
// nothing.
// Scope: Unit Test
// Expected: error text "No active session found", state stays no_session.
// Test Case ID: LCM-03
func TestManager_CheckOut_NoActiveSession(t *testing.T) {
	store := &mockStore{}
	m := NewManager(store, &mockPrompt{}, clock.New())

	err := m.CheckOut(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, "No active session found", err.Error())
	assert.Equal(t, StateNoSession, m.State())
	assert.Equal(t, 0, store.checkOutCalls, "store must not be called")
	assert.Equal(t, "No active session found", m.LastError())
}

// TestPurpose: Validates that an empty session reference falls back to the
// cached checked-in session.
// Scope: Unit Test
// Expected: check-out succeeds against the cached session's ID.
// Test Case ID: LCM-04
func TestManager_CheckOut_FallsBackToActive(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := &mockStore{active: checkedInSession("s1", start)}
	m := NewManager(store, &mockPrompt{}, clock.New())

	require.NoError(t, m.LoadActiveSession(context.Background()))
	require.NoError(t, m.CheckOut(context.Background(), "", "done"))

	assert.Equal(t, StateCheckedOut, m.State())
	assert.Equal(t, 1, store.checkOutCalls)
	assert.Empty(t, m.LastError())
}

// TestPurpose: Validates check-in is rejected locally when the cached
// session is already checked in or checked out, without a store round trip.
// Scope: Unit Test
// Expected: ErrInvalidState, zero store calls, cached state unchanged.
// Test Case ID: LCM-05
func TestManager_CheckIn_InvalidState(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := &mockStore{active: checkedInSession("s1", start)}
	m := NewManager(store, &mockPrompt{}, clock.New())
	require.NoError(t, m.LoadActiveSession(context.Background()))

	err := m.CheckIn(context.Background(), "s1")
	require.ErrorIs(t, err, session.ErrInvalidState)
	assert.Equal(t, 0, store.checkInCalls, "invalid transitions must not reach the store")
	assert.Equal(t, StateCheckedIn, m.State())

	// Same for a checked-out session.
	out := time.Now()
	store.active.Status = session.StatusCompleted
	store.active.CheckOutTime = &out
	require.NoError(t, m.LoadActiveSession(context.Background()))

	err = m.CheckIn(context.Background(), "s1")
	require.ErrorIs(t, err, session.ErrInvalidState)
	assert.Equal(t, 0, store.checkInCalls)
	assert.Equal(t, StateCheckedOut, m.State())
}

// TestPurpose: Validates the two-step departure protocol when the user
// declines or dismisses the warning.
// Scope: Unit Test
// Expected: no navigation, no store call, no listener notification, session
// still checked in.
// Test Case ID: LCM-06
func TestManager_ConfirmLeave_Declined(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := &mockStore{active: checkedInSession("s1", start)}
	prompt := &mockPrompt{decision: DecisionStay}
	m := NewManager(store, prompt, clock.New())
	require.NoError(t, m.LoadActiveSession(context.Background()))

	var notifications int
	m.Subscribe(func(Snapshot) { notifications++ })

	for _, d := range []Decision{DecisionStay, DecisionDismissed} {
		prompt.decision = d
		nav, err := m.ConfirmLeaveWithoutCheckout(context.Background())
		require.NoError(t, err)
		assert.Equal(t, NavigateNone, nav)
	}

	assert.Equal(t, 2, prompt.calls)
	assert.Equal(t, 0, store.markNonCompliantCall)
	assert.Equal(t, 0, notifications, "declining must not notify listeners")
	assert.Equal(t, StateCheckedIn, m.State())

	// The manager must accept further operations afterwards.
	require.NoError(t, m.CheckOut(context.Background(), "", ""))
}

// TestPurpose: Validates the two-step departure protocol when the user
// confirms leaving.
// Scope: Unit Test
// Expected: session flagged non-compliant, dashboard navigation, listeners
// notified once.
// Test Case ID: LCM-07
func TestManager_ConfirmLeave_Confirmed(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := &mockStore{active: checkedInSession("s1", start)}
	prompt := &mockPrompt{decision: DecisionLeave}
	m := NewManager(store, prompt, clock.New())
	require.NoError(t, m.LoadActiveSession(context.Background()))

	var snaps []Snapshot
	m.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	nav, err := m.ConfirmLeaveWithoutCheckout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NavigateDashboard, nav)
	assert.Equal(t, 1, store.markNonCompliantCall)
	assert.Equal(t, StateNonCompliant, m.State())

	require.Len(t, snaps, 1)
	assert.Equal(t, StateNonCompliant, snaps[0].State)
}

// TestPurpose: Validates confirming departure with nothing checked in.
// Scope: Unit Test
// Expected: no prompt shown, no navigation, no-active-session error.
// Test Case ID: LCM-08
func TestManager_ConfirmLeave_NoSession(t *testing.T) {
	store := &mockStore{}
	prompt := &mockPrompt{decision: DecisionLeave}
	m := NewManager(store, prompt, clock.New())

	nav, err := m.ConfirmLeaveWithoutCheckout(context.Background())
	require.ErrorIs(t, err, session.ErrNoActiveSession)
	assert.Equal(t, NavigateNone, nav)
	assert.Equal(t, 0, prompt.calls)
}

// TestPurpose: Validates that a result arriving after Close is discarded:
// no state mutation and no listener notification.
// Scope: Unit Test
// Expected: pending operation returns ErrClosed once the gate opens.
// Test Case ID: LCM-09
func TestManager_Close_DiscardsPendingResult(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	gate := make(chan struct{})
	store := &mockStore{active: checkedInSession("s1", start), gate: gate}
	m := NewManager(store, &mockPrompt{}, clock.New())

	var notifications int
	m.Subscribe(func(Snapshot) { notifications++ })

	done := make(chan error, 1)
	go func() {
		done <- m.LoadActiveSession(context.Background())
	}()

	// Let the goroutine claim the in-flight slot, then dispose.
	require.Eventually(t, func() bool {
		return errors.Is(m.CheckIn(context.Background(), "s1"), ErrOperationInFlight)
	}, time.Second, time.Millisecond)

	m.Close()
	close(gate)

	require.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, 0, notifications, "discarded results must not notify listeners")
	assert.Nil(t, m.Active())
}

// TestPurpose: Validates that only one store call may be in flight and that
// later operations are rejected rather than queued.
// Scope: Unit Test
// Expected: ErrOperationInFlight while a call is pending, success after.
// Test Case ID: LCM-10
func TestManager_RejectsConcurrentOperations(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	gate := make(chan struct{})
	store := &mockStore{active: checkedInSession("s1", start), gate: gate}
	m := NewManager(store, &mockPrompt{}, clock.New())

	done := make(chan error, 1)
	go func() {
		done <- m.LoadActiveSession(context.Background())
	}()

	require.Eventually(t, func() bool {
		return errors.Is(m.CheckOut(context.Background(), "s1", ""), ErrOperationInFlight)
	}, time.Second, time.Millisecond)

	close(gate)
	require.NoError(t, <-done)

	// Slot is free again.
	require.NoError(t, m.CheckOut(context.Background(), "s1", ""))
}

// TestPurpose: Validates that store failures surface through LastError and
// leave the cached session untouched.
// Scope: Unit Test
// Expected: cached state survives a failing check-out; next success clears
// the error.
// Test Case ID: LCM-11
func TestManager_StoreFailureKeepsState(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := &mockStore{active: checkedInSession("s1", start)}
	m := NewManager(store, &mockPrompt{}, clock.New())
	require.NoError(t, m.LoadActiveSession(context.Background()))

	store.err = errors.New("network unreachable")
	err := m.CheckOut(context.Background(), "s1", "")
	require.Error(t, err)
	assert.Equal(t, StateCheckedIn, m.State())
	assert.Equal(t, "network unreachable", m.LastError())

	store.err = nil
	require.NoError(t, m.CheckOut(context.Background(), "s1", ""))
	assert.Equal(t, StateCheckedOut, m.State())
	assert.Empty(t, m.LastError())
}

// TestPurpose: Validates operations after Close fail fast.
// Scope: Unit Test
// Expected: ErrClosed from every entry point.
// Test Case ID: LCM-12
func TestManager_OperationsAfterClose(t *testing.T) {
	m := NewManager(&mockStore{}, &mockPrompt{}, clock.New())
	m.Close()

	assert.ErrorIs(t, m.LoadActiveSession(context.Background()), ErrClosed)
	assert.ErrorIs(t, m.CheckIn(context.Background(), "s1"), ErrClosed)
	assert.ErrorIs(t, m.CheckOut(context.Background(), "s1", ""), ErrClosed)
	_, err := m.ConfirmLeaveWithoutCheckout(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
