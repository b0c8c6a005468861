package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/avicola/eggcoop-core/internal/auth"
)

// Login signs in with email and password. On success the session is
// persisted before returning, so a crash immediately after sign-in still
// leaves the user signed in. A rejected password returns
// ErrInvalidCredentials without touching any previously stored session.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp, false)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("POST /login: response carried no token")
	}

	sess, err := c.store.SaveSession(ctx, resp.Token, resp.Roles, resp.Permissions, resp.User.profile())
	if err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	c.logger.Info("signed in", "user_id", sess.User.ID, "role", sess.User.Role)
	return sess, nil
}

// Logout clears the stored session. It is purely local; the bearer token is
// simply forgotten.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	c.logger.Info("signed out")
	return nil
}

// ValidateToken asks the backend whether the stored bearer is still
// accepted. A rejected bearer clears the session through the normal expiry
// path; callers typically run this once at startup.
func (c *Client) ValidateToken(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/validate-token", nil, nil, true)
}

// Profile fetches the signed-in user's profile and refreshes the cached
// copy in the session.
func (c *Client) Profile(ctx context.Context) (*auth.UserProfile, error) {
	var resp struct {
		User apiUser `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/user/profile", nil, &resp, true); err != nil {
		return nil, err
	}

	profile := resp.User.profile()
	if err := c.cacheProfile(ctx, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile sends a partial profile update and merges the accepted
// fields into the stored session. Role labels cannot be changed here.
func (c *Client) UpdateProfile(ctx context.Context, update auth.UserUpdate) (*auth.UserProfile, error) {
	update.Roles = nil

	var resp struct {
		User apiUser `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/user/profile", profileUpdateBody(update), &resp, true); err != nil {
		return nil, err
	}

	if _, err := c.store.UpdateSessionUser(ctx, update); err != nil {
		return nil, fmt.Errorf("caching profile update: %w", err)
	}
	profile := resp.User.profile()
	return &profile, nil
}

// UploadPhoto uploads a profile photo and records the returned photo URL in
// the stored session. filename is advisory; the backend derives the stored
// name itself.
func (c *Client) UploadPhoto(ctx context.Context, filename string, photo io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return "", fmt.Errorf("reading photo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	var resp struct {
		PhotoURL string `json:"photo_url"`
	}
	if err := c.doMultipart(ctx, "/user/photo", mw.FormDataContentType(), &buf, &resp); err != nil {
		return "", err
	}

	if resp.PhotoURL != "" {
		if _, err := c.store.UpdateSessionUser(ctx, auth.UserUpdate{PhotoURL: &resp.PhotoURL}); err != nil {
			return "", fmt.Errorf("caching photo url: %w", err)
		}
	}
	return resp.PhotoURL, nil
}

// ChangePassword changes the signed-in user's password. The current session
// stays valid; the backend does not rotate the token on password change.
func (c *Client) ChangePassword(ctx context.Context, current, updated string) error {
	return c.doJSON(ctx, http.MethodPost, "/user/change-password", map[string]string{
		"current_password": current,
		"new_password":     updated,
	}, nil, true)
}

// User fetches a member's profile by ID. A local role override for that
// member, when present, replaces the server-reported role in the result.
func (c *Client) User(ctx context.Context, id string) (*auth.UserProfile, error) {
	var resp struct {
		User apiUser `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &resp, true); err != nil {
		return nil, err
	}

	profile := resp.User.profile()
	overrides, err := c.store.Overrides(ctx)
	if err != nil {
		c.logger.Warn("override lookup failed, using server role", "user_id", profile.ID, "error", err)
		return &profile, nil
	}
	if role, ok := overrides[profile.ID]; ok {
		profile.Role = role
		profile.Roles = []string{role.Label()}
	}
	return &profile, nil
}

// CreateUser registers a new cooperative member. Requires an administrative
// role; the backend enforces this and answers 403 otherwise.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*auth.UserProfile, error) {
	var resp struct {
		User apiUser `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/users", req, &resp, true); err != nil {
		return nil, err
	}
	profile := resp.User.profile()
	return &profile, nil
}

// Roles lists the roles the backend knows about.
func (c *Client) Roles(ctx context.Context) ([]RoleInfo, error) {
	var resp struct {
		Roles []RoleInfo `json:"roles"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/roles", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Roles, nil
}

// EggTypes lists the egg types the cooperative trades in.
func (c *Client) EggTypes(ctx context.Context) ([]EggType, error) {
	var resp struct {
		EggTypes []EggType `json:"egg_types"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/egg-types", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.EggTypes, nil
}

// EggTypeUnits lists the sale units available for an egg type.
func (c *Client) EggTypeUnits(ctx context.Context, eggTypeID string) ([]Unit, error) {
	var resp struct {
		Units []Unit `json:"units"`
	}
	path := "/egg-types/" + url.PathEscape(eggTypeID) + "/units"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Units, nil
}

// cacheProfile refreshes the profile stored with the session.
func (c *Client) cacheProfile(ctx context.Context, p auth.UserProfile) error {
	update := auth.UserUpdate{
		Email:    &p.Email,
		Name:     &p.Name,
		Phone:    &p.Phone,
		Address:  &p.Address,
		PhotoURL: &p.PhotoURL,
	}
	if len(p.Roles) > 0 {
		update.Roles = p.Roles
	}
	if _, err := c.store.UpdateSessionUser(ctx, update); err != nil {
		return fmt.Errorf("caching profile: %w", err)
	}
	return nil
}
