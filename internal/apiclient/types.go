package apiclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avicola/eggcoop-core/internal/auth"
)

// flexID accepts an identifier serialised as either a JSON number or a JSON
// string. The backend is inconsistent here; everything downstream of this
// package sees a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("parsing id: %w", err)
		}
		*f = flexID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parsing id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// apiUser is the backend's user shape.
type apiUser struct {
	ID       flexID   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Address  string   `json:"address"`
	PhotoURL string   `json:"photo_url"`
	Role     string   `json:"role"`
	Roles    []string `json:"roles"`
}

// profile converts the backend user into the local profile shape, deriving
// the canonical role from the server's labels.
func (u apiUser) profile() auth.UserProfile {
	labels := u.Roles
	if len(labels) == 0 && u.Role != "" {
		labels = []string{u.Role}
	}
	return auth.UserProfile{
		ID:       u.ID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Phone:    u.Phone,
		Address:  u.Address,
		PhotoURL: u.PhotoURL,
		Role:     auth.ResolveRole(labels),
		Roles:    labels,
	}
}

// loginResponse is the backend's sign-in payload.
type loginResponse struct {
	Token       string   `json:"token"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	User        apiUser  `json:"user"`
}

// RoleInfo is a role as listed by the backend directory.
type RoleInfo struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

// EggType is a product category the cooperative trades in.
type EggType struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Unit is a sale unit available for an egg type.
type Unit struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

// CreateUserRequest carries the fields for registering a cooperative member.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role,omitempty"`
}

// profileUpdateBody builds the wire body for a partial profile update.
// Only set fields are sent.
func profileUpdateBody(update auth.UserUpdate) map[string]any {
	body := map[string]any{}
	if update.Email != nil {
		body["email"] = *update.Email
	}
	if update.Name != nil {
		body["name"] = *update.Name
	}
	if update.Phone != nil {
		body["phone"] = *update.Phone
	}
	if update.Address != nil {
		body["address"] = *update.Address
	}
	return body
}
