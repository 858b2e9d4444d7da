// Package auth implements the capability model for the risk engine: a flat
// allowlist per role, granted and revoked by the owner.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Role identifies a capability required by an engine operation.
type Role string

const (
	// RoleOwner may register tokens, grant and revoke the other roles and
	// change engine configuration.
	RoleOwner Role = "owner"
	// RoleAssessor may write asset risk and position risk state.
	RoleAssessor Role = "risk_assessor"
	// RoleOracle may push price updates into the oracle.
	RoleOracle Role = "price_oracle"
)

// ErrUnauthorized is returned when the acting identity lacks the required role.
var ErrUnauthorized = errors.New("unauthorized")

// Checker verifies that an actor holds a role. Operations receive the actor
// explicitly; there is no ambient caller identity.
type Checker interface {
	Require(actor string, role Role) error
}

// Registry is the map-backed Checker. The owner is fixed at construction;
// assessor and oracle grants are mutable at runtime.
type Registry struct {
	mu     sync.RWMutex
	owner  string
	grants map[Role]map[string]bool
	logger *zap.Logger
}

// NewRegistry creates a registry with the given owner identity.
func NewRegistry(owner string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		owner: owner,
		grants: map[Role]map[string]bool{
			RoleAssessor: make(map[string]bool),
			RoleOracle:   make(map[string]bool),
		},
		logger: logger,
	}
}

// Require returns ErrUnauthorized unless actor holds role. Owner capability
// belongs to the owner identity only; it does not imply the other roles.
func (r *Registry) Require(actor string, role Role) error {
	if actor == "" {
		return fmt.Errorf("%w: empty actor", ErrUnauthorized)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if role == RoleOwner {
		if actor != r.owner {
			return fmt.Errorf("%w: %s requires owner", ErrUnauthorized, actor)
		}
		return nil
	}

	if !r.grants[role][actor] {
		return fmt.Errorf("%w: %s requires role %s", ErrUnauthorized, actor, role)
	}
	return nil
}

// Grant gives target the role. Only the owner may grant.
func (r *Registry) Grant(actor, target string, role Role) error {
	if err := r.Require(actor, RoleOwner); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("%w: empty grant target", ErrUnauthorized)
	}
	if role == RoleOwner {
		return fmt.Errorf("%w: owner role is not grantable", ErrUnauthorized)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.grants[role][target] = true
	r.logger.Info("role granted",
		zap.String("target", target),
		zap.String("role", string(role)))
	return nil
}

// Revoke removes the role from target. Only the owner may revoke.
func (r *Registry) Revoke(actor, target string, role Role) error {
	if err := r.Require(actor, RoleOwner); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.grants[role], target)
	r.logger.Info("role revoked",
		zap.String("target", target),
		zap.String("role", string(role)))
	return nil
}

// IsAuthorized reports whether target currently holds role.
func (r *Registry) IsAuthorized(target string, role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if role == RoleOwner {
		return target == r.owner
	}
	return r.grants[role][target]
}
