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
	"testing"
	"time"

	"github.com/vericomply/vericomply/internal/audit"
	"github.com/vericomply/vericomply/internal/clock"
	"github.com/vericomply/vericomply/internal/token"
)

// MockRepository is a simple in-memory implementation of Repository
type MockRepository struct {
	users map[string]*User
}

func NewMockRepository() *MockRepository {
	return &MockRepository{users: make(map[string]*User)}
}

func (m *MockRepository) Create(ctx context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *MockRepository) UpdateLockout(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedLoginAttempts = attempts
	u.LockedUntil = lockedUntil
	return nil
}

func newTestService(t *testing.T) (*Service, *MockRepository) {
	t.Helper()
	repo := NewMockRepository()
	hasher := NewPasswordHasher(8192, 1, 1, 16, 32) // cheap parameters for tests
	tokens, err := token.NewManager("test-secret-key", "vericomply", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	s := NewService(repo, hasher, tokens, audit.NewSlogLogger(), clock.New(), 3, 5*time.Minute)
	return s, repo
}

// TestPurpose: Validates the user authentication flow, including success,
// failure, and account lockout after repeated failed attempts.
// Scope: Unit Test
// Security: Authentication and brute-force protection (lockout)
// Expected: token issued for correct credentials, ErrInvalidCredentials for
// wrong ones, ErrAccountLocked once the threshold is hit.
// Test Case ID: IDN-01
func TestIdentity_Service_Authenticate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	email := "test@example.com"
	password := "SecurePassword123"

	user, err := s.Provision(ctx, email, "Test User", password, RoleContact)
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	authUser, tok, err := s.Authenticate(ctx, email, password)
	if err != nil {
		t.Fatalf("expected success, got err: %v", err)
	}
	if authUser.ID != user.ID {
		t.Errorf("expected user ID %s, got %s", user.ID, authUser.ID)
	}
	if tok == "" {
		t.Error("expected a signed access token")
	}

	_, _, err = s.Authenticate(ctx, email, "WrongPassword")
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	s.Authenticate(ctx, email, "WrongPassword")                // failed: 2
	_, _, err = s.Authenticate(ctx, email, "WrongPassword")    // failed: 3 (threshold)
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for 3rd failed attempt, got %v", err)
	}

	// 4th attempt, even with the right password, is locked out.
	_, _, err = s.Authenticate(ctx, email, password)
	if err != ErrAccountLocked {
		t.Errorf("expected ErrAccountLocked, got %v", err)
	}
}

// TestPurpose: Validates provisioning rejects duplicate emails, malformed
// emails and weak passwords, and normalizes the email address.
// Scope: Unit Test
// Security: Input validation and unique constraint enforcement
// Expected: ErrUserAlreadyExists / ErrInvalidEmail / ErrWeakPassword; email
// stored lowercased.
// Test Case ID: IDN-02
func TestIdentity_Service_Provision_Validation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	user, err := s.Provision(ctx, "  Mixed@Example.COM ", "Mixed", "SecurePassword123", RoleContact)
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}
	if user.Email != "mixed@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}

	if _, err := s.Provision(ctx, "mixed@example.com", "Dup", "SecurePassword123", RoleContact); err != ErrUserAlreadyExists {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := s.Provision(ctx, "not-an-email", "Bad", "SecurePassword123", RoleContact); err != ErrInvalidEmail {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := s.Provision(ctx, "short@example.com", "Short", "tiny", RoleContact); err != ErrWeakPassword {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}

// TestPurpose: Validates password rotation requires the current password
// and a strong replacement.
// Scope: Unit Test
// Security: Credential rotation
// Expected: old password stops working, new one authenticates.
// Test Case ID: IDN-03
func TestIdentity_Service_ChangePassword(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	email := "rotate@example.com"

	user, err := s.Provision(ctx, email, "Rotate", "OriginalPass1", RoleContact)
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	if err := s.ChangePassword(ctx, user.ID, "WrongPass", "ReplacementPass1"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, user.ID, "OriginalPass1", "weak"); err != ErrWeakPassword {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
	if err := s.ChangePassword(ctx, user.ID, "OriginalPass1", "ReplacementPass1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if _, _, err := s.Authenticate(ctx, email, "OriginalPass1"); err != ErrInvalidCredentials {
		t.Errorf("old password must stop working, got %v", err)
	}
	if _, _, err := s.Authenticate(ctx, email, "ReplacementPass1"); err != nil {
		t.Errorf("new password must authenticate, got %v", err)
	}
}
