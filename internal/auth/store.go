package auth

import "context"

// CredentialStore persists the session and the local role-override map.
//
// Both live the full application lifecycle: a saved session survives restarts
// until it is explicitly cleared, and overrides survive independently of the
// session. Implementations must make each write atomic against the latest
// stored value, and must treat unreadable stored data as absent rather than
// failing reads.
type CredentialStore interface {
	// SaveSession derives the canonical session record from the sign-in
	// response and persists it, replacing any previous session.
	SaveSession(ctx context.Context, token string, rolesRaw, permissions []string, user UserProfile) (*Session, error)

	// LoadSession returns the stored session, or (nil, nil) when none
	// exists or the stored record is unreadable.
	LoadSession(ctx context.Context) (*Session, error)

	// ClearSession removes the stored session. Clearing an absent session
	// is not an error.
	ClearSession(ctx context.Context) error

	// UpdateSessionUser merges a partial profile update into the stored
	// session and returns the updated session. Returns (nil, nil) when no
	// session exists.
	UpdateSessionUser(ctx context.Context, update UserUpdate) (*Session, error)

	// Overrides returns the local role-override map keyed by user ID.
	// Absent or unreadable state yields an empty map, never an error.
	Overrides(ctx context.Context) (map[string]Role, error)

	// SetOverride records a local role override for a user.
	SetOverride(ctx context.Context, userID string, role Role) error

	// ClearOverrides removes all local role overrides.
	ClearOverrides(ctx context.Context) error
}

// buildSession derives the canonical session record from raw sign-in data.
//
// The canonical role comes from the server's role labels; when the server
// returned none, a role already present on the profile is trusted, and
// failing that the least-privileged default applies. RolesRaw is backfilled
// so it is never empty, and the profile is rewritten to agree with it.
func buildSession(token string, rolesRaw, permissions []string, user UserProfile) *Session {
	labels := rolesRaw
	if len(labels) == 0 {
		labels = user.Roles
	}

	role := DefaultRole
	switch {
	case len(labels) > 0:
		role = ResolveRole(labels)
	case IsValidRole(user.Role):
		role = user.Role
	}

	if len(labels) == 0 {
		labels = []string{role.Label()}
	}

	user.Role = role
	user.Roles = append([]string(nil), labels...)

	return &Session{
		Token:       token,
		RolesRaw:    append([]string(nil), labels...),
		Permissions: append([]string(nil), permissions...),
		User:        user,
	}
}
