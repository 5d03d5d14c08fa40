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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vericomply/vericomply/internal/audit"
	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/config"
	"github.com/vericomply/vericomply/internal/geo"
	"github.com/vericomply/vericomply/internal/identity"
	"github.com/vericomply/vericomply/internal/meeting"
	"github.com/vericomply/vericomply/internal/observability/logger"
	"github.com/vericomply/vericomply/internal/observability/metrics"
	"github.com/vericomply/vericomply/internal/observability/tracing"
	"github.com/vericomply/vericomply/internal/session"
	"github.com/vericomply/vericomply/internal/store/postgres"
	redisstore "github.com/vericomply/vericomply/internal/store/redis"
	"github.com/vericomply/vericomply/internal/token"
	transportHTTP "github.com/vericomply/vericomply/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting vericomply attendance service")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
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
	slog.Info("connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	var sessionRepo session.Repository = postgres.NewSessionRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	meetingRepo := postgres.NewMeetingRepository(db)

	// Optional Redis cache in front of the session repository
	if cfg.Redis.Addr != "" {
		cache, err := redisstore.NewSessionCache(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			TTL:      cfg.Redis.TTL,
		}, sessionRepo)
		if err != nil {
			slog.Error("failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		defer cache.Close()
		sessionRepo = cache
		slog.Info("session cache enabled", logger.Component("redis"))
	}

	// Initialize helpers
	clk := clock.Real{}
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Auth.Argon2Memory,
		cfg.Auth.Argon2Iterations,
		cfg.Auth.Argon2Parallelism,
		cfg.Auth.Argon2SaltLength,
		cfg.Auth.Argon2KeyLength,
	)
	tokens, err := token.NewManager(cfg.Auth.TokenSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		slog.Error("failed to initialize token manager", logger.Error(err))
		os.Exit(1)
	}
	verifier := geo.NewVerifier(
		cfg.Geofence.DefaultRadiusMeters,
		cfg.Geofence.MaxRadiusMeters,
		cfg.Geofence.MaxAccuracyMeters,
	)

	// Initialize services
	identityService := identity.NewService(
		userRepo,
		passwordHasher,
		tokens,
		auditLogger,
		clk,
		cfg.Auth.LockoutMaxAttempts,
		cfg.Auth.LockoutDuration,
	)
	sessionService := session.NewService(sessionRepo, eventRepo, meetingRepo, verifier, auditLogger, clk)
	meetingService := meeting.NewService(meetingRepo, clk)

	// Rate limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		sessionService,
		meetingService,
		identityService,
		tokens,
		auditLogger,
	)

	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Flag abandoned sessions non-compliant in the background
	go func() {
		ticker := time.NewTicker(cfg.Compliance.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			flagged, err := sessionService.SweepStale(ctx, cfg.Compliance.StaleAfter)
			if err != nil {
				slog.ErrorContext(ctx, "failed to sweep stale sessions", logger.Error(err))
				continue
			}
			if flagged > 0 {
				meter.StaleSessions.Add(ctx, int64(flagged))
				slog.InfoContext(ctx, "flagged stale sessions",
					logger.Component("sweeper"), logger.Int("count", flagged))
			}
		}
	}()

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
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
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	slog.Info("migration complete")
	return nil
}
