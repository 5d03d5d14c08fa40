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

// Package geo verifies GPS fixes against meeting geofences.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Location is a GPS fix reported by a device.
type Location struct {
	Lat      float64
	Lng      float64
	Accuracy *float64 // meters, nil when the device did not report it
	Altitude *float64
	Speed    *float64
	Heading  *float64
}

// ProximityResult is the outcome of a geofence check.
type ProximityResult struct {
	WithinRange    bool
	DistanceMeters float64
	RadiusMeters   float64
	Confidence     float64 // 0..1, lower when far from center or fix is coarse
}

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Verifier checks device locations against destination geofences.
type Verifier struct {
	defaultRadiusMeters float64
	maxRadiusMeters     float64
	maxAccuracyMeters   float64
}

// NewVerifier creates a verifier with the deployment's radius policy.
// defaultRadius applies when a meeting has no radius configured; radii up
// to maxRadius are capped, but a meeting configured with a radius beyond
// the cap keeps it (wide-radius meetings are used for field testing).
func NewVerifier(defaultRadius, maxRadius, maxAccuracy float64) *Verifier {
	return &Verifier{
		defaultRadiusMeters: defaultRadius,
		maxRadiusMeters:     maxRadius,
		maxAccuracyMeters:   maxAccuracy,
	}
}

// ValidLocation reports whether the fix has plausible coordinates and an
// acceptable accuracy.
func (v *Verifier) ValidLocation(loc Location) bool {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return false
	}
	if loc.Accuracy != nil && *loc.Accuracy > v.maxAccuracyMeters {
		return false
	}
	return true
}

// Verify checks whether the fix falls inside the geofence around center.
func (v *Verifier) Verify(loc Location, center Point, radiusMeters float64) ProximityResult {
	radius := radiusMeters
	if radius <= 0 {
		radius = v.defaultRadiusMeters
	} else if radius <= v.maxRadiusMeters {
		radius = math.Min(radius, v.maxRadiusMeters)
	}
	// radius > maxRadiusMeters passes through uncapped

	dist := Distance(Point{Lat: loc.Lat, Lng: loc.Lng}, center)

	return ProximityResult{
		WithinRange:    dist <= radius,
		DistanceMeters: dist,
		RadiusMeters:   radius,
		Confidence:     v.confidence(dist, radius, loc.Accuracy),
	}
}

func (v *Verifier) confidence(dist, radius float64, accuracy *float64) float64 {
	ratio := math.Min(dist/radius, 1.0)
	c := 1.0 - ratio
	if accuracy != nil {
		c *= math.Max(0, 1.0-*accuracy/v.maxAccuracyMeters)
	}
	return math.Max(0, math.Min(1, c))
}
