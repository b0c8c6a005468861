package auth

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory CredentialStore for tests and ephemeral use.
// It implements the same derivation and merge rules as SQLiteStore.
type MemoryStore struct {
	mu        sync.Mutex
	session   *Session
	overrides map[string]Role
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{overrides: map[string]Role{}}
}

func (m *MemoryStore) SaveSession(_ context.Context, token string, rolesRaw, permissions []string, user UserProfile) (*Session, error) {
	sess := buildSession(token, rolesRaw, permissions, user)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = sess
	return cloneSession(sess), nil
}

func (m *MemoryStore) LoadSession(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSession(m.session), nil
}

func (m *MemoryStore) ClearSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *MemoryStore) UpdateSessionUser(_ context.Context, update UserUpdate) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, nil
	}

	sess := cloneSession(m.session)
	update.apply(&sess.User)
	if update.Roles != nil {
		sess = buildSession(sess.Token, update.Roles, sess.Permissions, sess.User)
	}
	m.session = sess
	return cloneSession(sess), nil
}

func (m *MemoryStore) Overrides(_ context.Context) (map[string]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Role, len(m.overrides))
	for id, role := range m.overrides {
		out[id] = role
	}
	return out, nil
}

func (m *MemoryStore) SetOverride(_ context.Context, userID string, role Role) error {
	if !IsValidRole(role) {
		return ErrInvalidRole
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[userID] = role
	return nil
}

func (m *MemoryStore) ClearOverrides(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = map[string]Role{}
	return nil
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.RolesRaw = append([]string(nil), s.RolesRaw...)
	out.Permissions = append([]string(nil), s.Permissions...)
	out.User.Roles = append([]string(nil), s.User.Roles...)
	return &out
}
