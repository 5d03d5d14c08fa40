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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Role distinguishes admin operators from field contacts.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleContact Role = "contact"
)

// User is an authenticated principal: an admin operator or a field
// contact checking in to meetings.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string

	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
}

// Repository defines the interface for user persistence
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateLockout(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error
}
