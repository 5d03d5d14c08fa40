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

package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates great-circle distance against known landmarks.
// Scope: Unit Test
// Expected: NYC to LA within 1% of 3936km; identical points are 0m.
// Test Case ID: GEO-01
func TestDistance(t *testing.T) {
	nyc := Point{Lat: 40.7128, Lng: -74.0060}
	la := Point{Lat: 34.0522, Lng: -118.2437}

	assert.InEpsilon(t, 3936000, Distance(nyc, la), 0.01)
	assert.Zero(t, Distance(nyc, nyc))

	// ~111m per 0.001 degree of latitude.
	near := Point{Lat: nyc.Lat + 0.001, Lng: nyc.Lng}
	assert.InDelta(t, 111, Distance(nyc, near), 1)
}

// TestPurpose: Validates the radius policy: default for unset, capped up
// to the maximum, and pass-through beyond it.
// Scope: Unit Test
// Expected: radius 0 → 100m default; 500 kept; 5000 kept uncapped.
// Test Case ID: GEO-02
func TestVerifier_RadiusPolicy(t *testing.T) {
	v := NewVerifier(100, 1000, 1000)
	center := Point{Lat: 40.7128, Lng: -74.0060}
	at := Location{Lat: center.Lat, Lng: center.Lng}

	assert.Equal(t, 100.0, v.Verify(at, center, 0).RadiusMeters)
	assert.Equal(t, 500.0, v.Verify(at, center, 500).RadiusMeters)

	// Wide-radius meetings keep their configured radius.
	assert.Equal(t, 5000.0, v.Verify(at, center, 5000).RadiusMeters)
}

// TestPurpose: Validates in/out-of-range decisions and the confidence
// gradient.
// Scope: Unit Test
// Expected: fixes inside the fence pass with higher confidence than fixes
// near the edge; fixes outside fail.
// Test Case ID: GEO-03
func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(100, 1000, 1000)
	center := Point{Lat: 40.7128, Lng: -74.0060}

	at := v.Verify(Location{Lat: center.Lat, Lng: center.Lng}, center, 100)
	assert.True(t, at.WithinRange)

	// ~55m north: inside, but less confident than dead center.
	edge := v.Verify(Location{Lat: center.Lat + 0.0005, Lng: center.Lng}, center, 100)
	assert.True(t, edge.WithinRange)
	assert.Less(t, edge.Confidence, at.Confidence)

	// ~550m north: outside.
	out := v.Verify(Location{Lat: center.Lat + 0.005, Lng: center.Lng}, center, 100)
	assert.False(t, out.WithinRange)
	assert.Greater(t, out.DistanceMeters, 100.0)
}

// TestPurpose: Validates location plausibility checks.
// Scope: Unit Test
// Expected: out-of-bounds coordinates and coarse accuracy rejected.
// Test Case ID: GEO-04
func TestVerifier_ValidLocation(t *testing.T) {
	v := NewVerifier(100, 1000, 1000)

	assert.True(t, v.ValidLocation(Location{Lat: 40.7, Lng: -74.0}))
	assert.False(t, v.ValidLocation(Location{Lat: 91, Lng: 0}))
	assert.False(t, v.ValidLocation(Location{Lat: 0, Lng: -181}))

	fine := 50.0
	coarse := 2000.0
	assert.True(t, v.ValidLocation(Location{Lat: 40.7, Lng: -74.0, Accuracy: &fine}))
	assert.False(t, v.ValidLocation(Location{Lat: 40.7, Lng: -74.0, Accuracy: &coarse}))
}
