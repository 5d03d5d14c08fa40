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
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoActiveSession = errors.New("No active session found")
	ErrInvalidState    = errors.New("operation not valid for session state")
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrMeetingInactive = errors.New("meeting is not active")
	ErrOutOfRange      = errors.New("location outside meeting geofence")
	ErrInvalidLocation = errors.New("invalid location data")
)

// Status is the lifecycle state of an attendance session.
type Status string

const (
	// StatusActive means the session exists but the contact has not
	// checked in yet.
	StatusActive Status = "active"
	// StatusCheckedIn means a check-in event has been recorded and no
	// check-out has happened.
	StatusCheckedIn Status = "checked_in"
	// StatusCompleted is the terminal state after a successful check-out.
	StatusCompleted Status = "completed"
	// StatusEnded is the terminal state for manually or automatically
	// ended sessions that never completed.
	StatusEnded Status = "ended"
	// StatusNonCompliant is the terminal state recorded when the contact
	// left a checked-in session without checking out.
	StatusNonCompliant Status = "non_compliant"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEnded || s == StatusNonCompliant
}

// Session is one check-in/check-out attendance interval at a destination.
// CheckOutTime, once set, is never cleared; completed and non_compliant
// are mutually exclusive terminal states.
type Session struct {
	ID        string
	ContactID string
	MeetingID *string

	// Destination snapshot copied from the meeting at creation time, so
	// the record stays meaningful if the meeting is later edited.
	DestName    string
	DestAddress string
	DestLat     float64
	DestLng     float64

	Notes        string
	Status       Status
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	CreatedAt    time.Time
}

// IsCheckedIn reports whether the session has an open check-in interval.
func (s *Session) IsCheckedIn() bool {
	return s != nil && s.CheckInTime != nil && s.CheckOutTime == nil && s.Status == StatusCheckedIn
}

// IsCheckedOut reports whether the session has a recorded check-out.
func (s *Session) IsCheckedOut() bool {
	return s != nil && s.CheckOutTime != nil
}

// IsNonCompliant reports whether the contact departed without checking out.
func (s *Session) IsNonCompliant() bool {
	return s != nil && s.Status == StatusNonCompliant
}

// Duration returns the completed interval length, or zero if the session
// never completed.
func (s *Session) Duration() time.Duration {
	if s == nil || s.CheckInTime == nil || s.CheckOutTime == nil {
		return 0
	}
	return s.CheckOutTime.Sub(*s.CheckInTime)
}

// Elapsed returns the time spent checked in as of now. It is a pure
// function of its inputs: zero for a nil session, a session without a
// check-in, or a session that is no longer checked in; monotonic
// non-decreasing in now while checked in.
func Elapsed(s *Session, now time.Time) time.Duration {
	if s == nil || s.CheckInTime == nil || !s.IsCheckedIn() {
		return 0
	}
	d := now.Sub(*s.CheckInTime)
	if d < 0 {
		return 0
	}
	return d
}

// FormatElapsed renders a duration as HH:MM:SS for the dashboard timer.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
