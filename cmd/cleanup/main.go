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

// One-shot compliance sweep: flags sessions still checked in past the
// configured age as non_compliant. Intended for cron when the server's
// background sweeper is disabled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vericomply/vericomply/internal/audit"
	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/config"
	"github.com/vericomply/vericomply/internal/geo"
	"github.com/vericomply/vericomply/internal/observability/logger"
	"github.com/vericomply/vericomply/internal/session"
	"github.com/vericomply/vericomply/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName + "-cleanup",
	})

	ctx := context.Background()

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	sessionService := session.NewService(
		postgres.NewSessionRepository(db),
		postgres.NewEventRepository(db),
		postgres.NewMeetingRepository(db),
		geo.NewVerifier(
			cfg.Geofence.DefaultRadiusMeters,
			cfg.Geofence.MaxRadiusMeters,
			cfg.Geofence.MaxAccuracyMeters,
		),
		audit.NewSlogLogger(),
		clock.Real{},
	)

	flagged, err := sessionService.SweepStale(ctx, cfg.Compliance.StaleAfter)
	if err != nil {
		slog.Error("sweep failed", logger.Error(err))
		os.Exit(1)
	}

	slog.Info("sweep complete", logger.Int("flagged", flagged))
}
