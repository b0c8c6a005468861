package auth

import "errors"

// ErrInvalidRole is returned when a caller supplies a role outside the
// canonical set.
var ErrInvalidRole = errors.New("invalid role")

// UserProfile is the locally cached profile of the signed-in user, or of a
// user fetched from the backend directory.
type UserProfile struct {
	ID       string   `json:"id"`
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Address  string   `json:"address,omitempty"`
	PhotoURL string   `json:"photo_url,omitempty"`
	Role     Role     `json:"role"`
	Roles    []string `json:"roles,omitempty"`
}

// Session is the persisted authentication state: the bearer token issued at
// sign-in plus the role labels, permission strings, and profile the server
// returned alongside it.
//
// Invariants maintained by the store:
//   - RolesRaw is never empty; when the server returns no labels it holds
//     the single label of the derived canonical role.
//   - User.Role always equals ResolveRole applied to RolesRaw.
type Session struct {
	Token       string      `json:"token"`
	RolesRaw    []string    `json:"roles"`
	Permissions []string    `json:"permissions,omitempty"`
	User        UserProfile `json:"user"`
}

// Authenticated reports whether the session carries a usable bearer token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// UserUpdate carries a partial profile update. Nil pointer fields are left
// unchanged; a non-nil Roles slice replaces the stored role labels and
// triggers re-derivation of the canonical role.
type UserUpdate struct {
	Email    *string
	Name     *string
	Phone    *string
	Address  *string
	PhotoURL *string
	Roles    []string
}

// apply merges the update into a profile in place.
func (u UserUpdate) apply(p *UserProfile) {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.PhotoURL != nil {
		p.PhotoURL = *u.PhotoURL
	}
}
