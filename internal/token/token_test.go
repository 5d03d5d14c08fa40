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

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates token issue/verify round trip with subject and
// role claims intact.
// Scope: Unit Test
// Security: Token integrity
// Expected: verified claims match what was issued.
// Test Case ID: TOK-01
func TestManager_IssueAndVerify(t *testing.T) {
	m, err := NewManager("test-secret-key", "vericomply", time.Hour)
	require.NoError(t, err)

	tok, err := m.Issue("user-1", "contact")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "contact", claims.Role)
	assert.Equal(t, "vericomply", claims.Issuer)
}

// TestPurpose: Validates rejection of expired tokens.
// Scope: Unit Test
// Security: Token lifetime enforcement
// Expected: ErrExpiredToken for a token past its TTL.
// Test Case ID: TOK-02
func TestManager_ExpiredToken(t *testing.T) {
	m, err := NewManager("test-secret-key", "vericomply", -time.Minute)
	require.NoError(t, err)

	tok, err := m.Issue("user-1", "contact")
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// TestPurpose: Validates rejection of tokens signed with a different key
// or issued by a different issuer.
// Scope: Unit Test
// Security: Signature and issuer verification
// Expected: ErrInvalidToken in both cases.
// Test Case ID: TOK-03
func TestManager_RejectsForeignTokens(t *testing.T) {
	m, err := NewManager("test-secret-key", "vericomply", time.Hour)
	require.NoError(t, err)

	other, err := NewManager("other-secret-key", "vericomply", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue("user-1", "admin")
	require.NoError(t, err)
	_, err = m.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewManager("test-secret-key", "someone-else", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := foreign.Issue("user-1", "contact")
	require.NoError(t, err)
	_, err = m.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// TestPurpose: Validates that a manager cannot be built without a secret.
// Scope: Unit Test
// Security: Misconfiguration guard
// Expected: constructor error on empty secret.
// Test Case ID: TOK-04
func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("", "vericomply", time.Hour)
	assert.Error(t, err)
}
