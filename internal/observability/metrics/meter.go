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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps the OpenTelemetry meter together with the attendance
// instruments the service records on.
type Meter struct {
	meter metric.Meter

	SessionsCreated metric.Int64Counter
	CheckIns        metric.Int64Counter
	CheckOuts       metric.Int64Counter
	GeofenceDenials metric.Int64Counter
	StaleSessions   metric.Int64Counter
	SessionDuration metric.Float64Histogram
}

// New creates a new meter instance and registers the attendance instruments.
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	name := serviceName
	if !cfg.Enabled {
		name = "noop"
	}
	m := &Meter{meter: otel.Meter(name)}

	var err error
	if m.SessionsCreated, err = m.counter("vericomply.sessions.created", "Sessions created"); err != nil {
		return nil, err
	}
	if m.CheckIns, err = m.counter("vericomply.sessions.check_ins", "Successful check-ins"); err != nil {
		return nil, err
	}
	if m.CheckOuts, err = m.counter("vericomply.sessions.check_outs", "Successful check-outs"); err != nil {
		return nil, err
	}
	if m.GeofenceDenials, err = m.counter("vericomply.geofence.denials", "Check attempts rejected by geofence"); err != nil {
		return nil, err
	}
	if m.StaleSessions, err = m.counter("vericomply.sessions.swept_stale", "Sessions flagged non-compliant by the sweeper"); err != nil {
		return nil, err
	}
	m.SessionDuration, err = m.meter.Float64Histogram(
		"vericomply.sessions.duration",
		metric.WithDescription("Completed session duration"),
		metric.WithUnit("min"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	return m, nil
}

func (m *Meter) counter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}
