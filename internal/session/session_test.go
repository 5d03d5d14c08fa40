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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates elapsed-time derivation from the check-in
// timestamp, including sessions with no check-in and clock skew.
// Scope: Unit Test
// Expected: zero for nil/unchecked sessions, clamped to zero on skew,
// exact difference otherwise.
// Test Case ID: SES-01
func TestElapsed(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	checkIn := now.Add(-90 * time.Minute)

	assert.Zero(t, Elapsed(nil, now))
	assert.Zero(t, Elapsed(&Session{Status: StatusActive}, now))

	s := &Session{Status: StatusCheckedIn, CheckInTime: &checkIn}
	assert.Equal(t, 90*time.Minute, Elapsed(s, now))

	// A completed session no longer accrues elapsed time.
	out := now
	done := &Session{Status: StatusCompleted, CheckInTime: &checkIn, CheckOutTime: &out}
	assert.Zero(t, Elapsed(done, now))

	// Client clock behind the check-in timestamp: clamp, never negative.
	skewed := &Session{Status: StatusCheckedIn, CheckInTime: &now}
	assert.Zero(t, Elapsed(skewed, now.Add(-time.Minute)))
}

// TestPurpose: Validates HH:MM:SS formatting with zero padding and
// hour overflow.
// Scope: Unit Test
// Expected: 3661s formats as "01:01:01"; fields pad to two digits.
// Test Case ID: SES-02
func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{60 * time.Second, "00:01:00"},
		{3661 * time.Second, "01:01:01"},
		{25*time.Hour + 5*time.Minute + 9*time.Second, "25:05:09"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatElapsed(c.d), "duration %v", c.d)
	}
}

// TestPurpose: Validates the status predicates used by the state machine.
// Scope: Unit Test
// Expected: checked-in requires a check-in time and no check-out; terminal
// covers completed, ended and non_compliant.
// Test Case ID: SES-03
func TestSessionStatus(t *testing.T) {
	now := time.Now()

	s := &Session{Status: StatusActive}
	assert.False(t, s.IsCheckedIn())
	assert.False(t, s.IsCheckedOut())

	s.Status = StatusCheckedIn
	s.CheckInTime = &now
	assert.True(t, s.IsCheckedIn())

	s.Status = StatusCompleted
	s.CheckOutTime = &now
	assert.False(t, s.IsCheckedIn())
	assert.True(t, s.IsCheckedOut())

	assert.False(t, StatusActive.Terminal())
	assert.False(t, StatusCheckedIn.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusEnded.Terminal())
	assert.True(t, StatusNonCompliant.Terminal())
}

// TestPurpose: Validates completed-session duration computation.
// Scope: Unit Test
// Expected: check-out minus check-in; zero when either side is missing.
// Test Case ID: SES-04
func TestSessionDuration(t *testing.T) {
	in := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(2 * time.Hour)

	s := &Session{Status: StatusCompleted, CheckInTime: &in, CheckOutTime: &out}
	assert.Equal(t, 2*time.Hour, s.Duration())

	assert.Zero(t, (&Session{CheckInTime: &in}).Duration())
	assert.Zero(t, (&Session{}).Duration())
}
