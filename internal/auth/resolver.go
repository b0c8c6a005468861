package auth

import (
	"context"
	"fmt"

	"github.com/avicola/eggcoop-core/internal/infrastructure/logging"
)

// Resolver answers "who is signed in and what are they allowed to act as"
// by combining the stored session with the local role-override map.
//
// An override for the signed-in user completely replaces the server-granted
// labels; without one the server labels pass through untouched. Override
// lookup failures are logged and ignored so a damaged override map can never
// lock a user out of their server-granted access.
type Resolver struct {
	store  CredentialStore
	logger *logging.Logger
}

// NewResolver creates a resolver over a credential store.
// A nil logger discards log output.
func NewResolver(store CredentialStore, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{store: store, logger: logger}
}

// EffectiveRoleLabels returns the role labels authorisation decisions must
// use. With no session it returns an empty slice. The error is non-nil only
// when the session itself cannot be read.
func (r *Resolver) EffectiveRoleLabels(ctx context.Context) ([]string, error) {
	sess, err := r.store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving effective roles: %w", err)
	}
	if sess == nil {
		return []string{}, nil
	}

	if role, ok := r.overrideFor(ctx, sess.User.ID); ok {
		return []string{role.Label()}, nil
	}

	if len(sess.RolesRaw) > 0 {
		return append([]string(nil), sess.RolesRaw...), nil
	}
	if IsValidRole(sess.User.Role) {
		return []string{sess.User.Role.Label()}, nil
	}
	return []string{}, nil
}

// EffectiveUser returns the signed-in user's profile with any local role
// override applied. Returns (nil, nil) when no session exists.
func (r *Resolver) EffectiveUser(ctx context.Context) (*UserProfile, error) {
	sess, err := r.store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving effective user: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	user := sess.User
	user.Roles = append([]string(nil), sess.User.Roles...)
	if role, ok := r.overrideFor(ctx, user.ID); ok {
		user.Role = role
		user.Roles = []string{role.Label()}
	}
	return &user, nil
}

// IsAuthenticated reports whether a session with a bearer token is stored.
// Storage failures count as not authenticated.
func (r *Resolver) IsAuthenticated(ctx context.Context) bool {
	sess, err := r.store.LoadSession(ctx)
	if err != nil {
		r.logger.Warn("session check failed, treating as signed out", "error", err)
		return false
	}
	return sess.Authenticated()
}

// overrideFor looks up the local role override for a user. Lookup failure is
// logged and reported as no override.
func (r *Resolver) overrideFor(ctx context.Context, userID string) (Role, bool) {
	if userID == "" {
		return "", false
	}
	overrides, err := r.store.Overrides(ctx)
	if err != nil {
		r.logger.Warn("override lookup failed, using server roles", "user_id", userID, "error", err)
		return "", false
	}
	role, ok := overrides[userID]
	return role, ok
}
