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

import "time"

// EventType classifies session events.
type EventType string

const (
	EventCheckIn        EventType = "check_in"
	EventCheckOut       EventType = "check_out"
	EventLocationUpdate EventType = "location_update"
	EventStatusChange   EventType = "status_change"
)

// LocationFlag records the location permission outcome on the client.
type LocationFlag string

const (
	LocationGranted LocationFlag = "granted"
	LocationDenied  LocationFlag = "denied"
	LocationTimeout LocationFlag = "timeout"
)

// Event is an audit record of a single session transition or location
// sample. Event IDs are ULIDs so the stream sorts by creation time.
type Event struct {
	ID        string
	SessionID string
	Type      EventType

	// TSClient is the timestamp the device reported; TSServer is when the
	// server recorded the event. They can differ on flaky connections.
	TSClient time.Time
	TSServer time.Time

	Lat      float64
	Lng      float64
	Accuracy *float64

	LocationFlag LocationFlag
	Notes        string
}

// IsCheckIn reports whether this is a check-in event.
func (e *Event) IsCheckIn() bool { return e.Type == EventCheckIn }

// IsCheckOut reports whether this is a check-out event.
func (e *Event) IsCheckOut() bool { return e.Type == EventCheckOut }

// LocationVerified reports whether the event carries a usable GPS fix.
func (e *Event) LocationVerified() bool {
	return e.LocationFlag == LocationGranted &&
		e.Lat >= -90 && e.Lat <= 90 &&
		e.Lng >= -180 && e.Lng <= 180
}
