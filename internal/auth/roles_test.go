package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_OwnerRole(t *testing.T) {
	r := NewRegistry("admin", zap.NewNop())

	assert.NoError(t, r.Require("admin", RoleOwner))
	assert.ErrorIs(t, r.Require("someone-else", RoleOwner), ErrUnauthorized)
	assert.ErrorIs(t, r.Require("", RoleOwner), ErrUnauthorized)
}

func TestRegistry_GrantRevoke(t *testing.T) {
	r := NewRegistry("admin", zap.NewNop())

	// Not granted yet.
	assert.ErrorIs(t, r.Require("bot-1", RoleAssessor), ErrUnauthorized)

	require.NoError(t, r.Grant("admin", "bot-1", RoleAssessor))
	assert.NoError(t, r.Require("bot-1", RoleAssessor))
	assert.True(t, r.IsAuthorized("bot-1", RoleAssessor))

	// Assessor grant does not leak into the oracle role.
	assert.ErrorIs(t, r.Require("bot-1", RoleOracle), ErrUnauthorized)

	require.NoError(t, r.Revoke("admin", "bot-1", RoleAssessor))
	assert.ErrorIs(t, r.Require("bot-1", RoleAssessor), ErrUnauthorized)
}

func TestRegistry_OnlyOwnerGrants(t *testing.T) {
	r := NewRegistry("admin", zap.NewNop())

	require.NoError(t, r.Grant("admin", "bot-1", RoleAssessor))

	// An assessor cannot grant roles to others.
	assert.ErrorIs(t, r.Grant("bot-1", "bot-2", RoleAssessor), ErrUnauthorized)
	assert.ErrorIs(t, r.Revoke("bot-1", "bot-1", RoleAssessor), ErrUnauthorized)

	// The owner role itself is not grantable.
	assert.ErrorIs(t, r.Grant("admin", "bot-1", RoleOwner), ErrUnauthorized)
}

func TestRegistry_OwnerIsNotAssessor(t *testing.T) {
	r := NewRegistry("admin", zap.NewNop())

	// No hierarchy: the owner must grant itself the assessor role explicitly.
	assert.ErrorIs(t, r.Require("admin", RoleAssessor), ErrUnauthorized)
	require.NoError(t, r.Grant("admin", "admin", RoleAssessor))
	assert.NoError(t, r.Require("admin", RoleAssessor))
}
