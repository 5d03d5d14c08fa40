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

// Package redis caches the active-session lookup, the hottest read in the
// system: every elapsed-time poll and every dashboard load asks for it.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vericomply/vericomply/internal/observability/logger"
	"github.com/vericomply/vericomply/internal/session"
)

const activeNamespace = "active_session"

// Sentinel cached for contacts with no open session, so repeated polls
// don't fall through to Postgres.
const noneMarker = "__none__"

// Config holds cache configuration
type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// SessionCache wraps a session.Repository and serves GetActiveByContact
// from Redis. All writes go straight through and invalidate the contact's
// cache entry.
type SessionCache struct {
	next   session.Repository
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionCache creates a caching layer in front of next.
func NewSessionCache(ctx context.Context, cfg Config, next session.Repository) (*SessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &SessionCache{next: next, client: client, ttl: ttl}, nil
}

// Close releases the redis connection.
func (c *SessionCache) Close() error {
	return c.client.Close()
}

// Create creates a session and invalidates the contact's cache entry
func (c *SessionCache) Create(ctx context.Context, s *session.Session) error {
	if err := c.next.Create(ctx, s); err != nil {
		return err
	}
	c.invalidate(ctx, s.ContactID)
	return nil
}

// Get passes through to the underlying repository
func (c *SessionCache) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return c.next.Get(ctx, sessionID)
}

// Update updates a session and invalidates the contact's cache entry
func (c *SessionCache) Update(ctx context.Context, s *session.Session) error {
	if err := c.next.Update(ctx, s); err != nil {
		return err
	}
	c.invalidate(ctx, s.ContactID)
	return nil
}

// GetActiveByContact serves the contact's open session from cache when
// possible. Cache failures degrade to the underlying repository.
func (c *SessionCache) GetActiveByContact(ctx context.Context, contactID string) (*session.Session, error) {
	key := activeNamespace + ":" + contactID

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == noneMarker {
			return nil, session.ErrNoActiveSession
		}
		var s session.Session
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return &s, nil
		}
		// Corrupt entry, drop it and fall through
		c.invalidate(ctx, contactID)
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "session cache read failed",
			logger.Component("redis"), logger.Error(err))
	}

	s, err := c.next.GetActiveByContact(ctx, contactID)
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			c.set(ctx, key, noneMarker)
		}
		return nil, err
	}

	if encoded, merr := json.Marshal(s); merr == nil {
		c.set(ctx, key, string(encoded))
	}
	return s, nil
}

// ListByContact passes through to the underlying repository
func (c *SessionCache) ListByContact(ctx context.Context, contactID string, limit, offset int) ([]*session.Session, error) {
	return c.next.ListByContact(ctx, contactID, limit, offset)
}

// ListStale passes through to the underlying repository
func (c *SessionCache) ListStale(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	return c.next.ListStale(ctx, cutoff)
}

func (c *SessionCache) set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "session cache write failed",
			logger.Component("redis"), logger.Error(err))
	}
}

func (c *SessionCache) invalidate(ctx context.Context, contactID string) {
	if err := c.client.Del(ctx, activeNamespace+":"+contactID).Err(); err != nil {
		slog.WarnContext(ctx, "session cache invalidation failed",
			logger.Component("redis"), logger.Error(err))
	}
}
