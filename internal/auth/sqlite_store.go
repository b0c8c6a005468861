package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avicola/eggcoop-core/internal/infrastructure/logging"
)

// Blob keys in credential_blobs. Each key holds one JSON document.
const (
	keySession   = "session"
	keyOverrides = "role_overrides"
)

// SQLiteStore is the production CredentialStore backed by the local
// credential_blobs table. Each public method is one transaction, so
// concurrent writers always operate on the latest stored value.
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewSQLiteStore creates a credential store on an open database.
// A nil logger discards log output.
func NewSQLiteStore(db *sql.DB, logger *logging.Logger) *SQLiteStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SQLiteStore{db: db, logger: logger}
}

// SaveSession derives the canonical session record and persists it,
// replacing any previous session in a single statement.
func (s *SQLiteStore) SaveSession(ctx context.Context, token string, rolesRaw, permissions []string, user UserProfile) (*Session, error) {
	sess := buildSession(token, rolesRaw, permissions, user)

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	if err := s.putBlob(ctx, keySession, data); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

// LoadSession returns the stored session. A missing row or an unreadable
// blob both yield (nil, nil): corruption is logged and treated as a
// signed-out state, never surfaced to callers.
func (s *SQLiteStore) LoadSession(ctx context.Context) (*Session, error) {
	data, ok, err := s.getBlob(ctx, keySession)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("stored session unreadable, treating as signed out", "error", err)
		return nil, nil
	}
	return &sess, nil
}

// ClearSession deletes the stored session. Idempotent.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential_blobs WHERE key = ?`, keySession); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// UpdateSessionUser merges a partial profile update into the stored session
// inside one transaction, re-deriving the canonical role when the update
// replaces the role labels. Returns (nil, nil) when no session is stored.
func (s *SQLiteStore) UpdateSessionUser(ctx context.Context, update UserUpdate) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM credential_blobs WHERE key = ?`, keySession).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.logger.Warn("stored session unreadable, treating as signed out", "error", err)
		return nil, nil
	}

	update.apply(&sess.User)
	if update.Roles != nil {
		updated := buildSession(sess.Token, update.Roles, sess.Permissions, sess.User)
		sess = *updated
	}

	data, err := json.Marshal(&sess)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := putBlobTx(ctx, tx, keySession, data); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &sess, nil
}

// Overrides returns the local role-override map. Missing or unreadable
// state yields an empty map; entries with unrecognised roles are dropped.
func (s *SQLiteStore) Overrides(ctx context.Context) (map[string]Role, error) {
	data, ok, err := s.getBlob(ctx, keyOverrides)
	if err != nil {
		return nil, fmt.Errorf("loading role overrides: %w", err)
	}
	if !ok {
		return map[string]Role{}, nil
	}
	return decodeOverrides(data, s.logger), nil
}

// SetOverride records a role override for a user, reading the latest stored
// map and writing it back within one transaction.
func (s *SQLiteStore) SetOverride(ctx context.Context, userID string, role Role) error {
	if !IsValidRole(role) {
		return fmt.Errorf("setting override for user %q: %w: %q", userID, ErrInvalidRole, role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	overrides := map[string]Role{}
	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT value FROM credential_blobs WHERE key = ?`, keyOverrides).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("loading role overrides: %w", err)
	default:
		overrides = decodeOverrides(raw, s.logger)
	}

	overrides[userID] = role

	data, err := json.Marshal(overridesToLabels(overrides))
	if err != nil {
		return fmt.Errorf("encoding role overrides: %w", err)
	}
	if err := putBlobTx(ctx, tx, keyOverrides, data); err != nil {
		return fmt.Errorf("saving role overrides: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ClearOverrides deletes the override map. Idempotent.
func (s *SQLiteStore) ClearOverrides(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential_blobs WHERE key = ?`, keyOverrides); err != nil {
		return fmt.Errorf("clearing role overrides: %w", err)
	}
	return nil
}

func (s *SQLiteStore) getBlob(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credential_blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) putBlob(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential_blobs (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(value))
	return err
}

func putBlobTx(ctx context.Context, tx *sql.Tx, key string, value []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credential_blobs (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, string(value))
	return err
}

// decodeOverrides parses the stored override document. The document maps
// user ID to a role string, which may be a canonical identifier or a label.
// Unreadable documents and unrecognised roles degrade to absence.
func decodeOverrides(data []byte, logger *logging.Logger) map[string]Role {
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warn("stored role overrides unreadable, treating as empty", "error", err)
		return map[string]Role{}
	}

	overrides := make(map[string]Role, len(stored))
	for userID, value := range stored {
		role, ok := ParseRole(value)
		if !ok {
			logger.Warn("dropping override with unrecognised role", "user_id", userID, "role", value)
			continue
		}
		overrides[userID] = role
	}
	return overrides
}

func overridesToLabels(overrides map[string]Role) map[string]string {
	out := make(map[string]string, len(overrides))
	for userID, role := range overrides {
		out[userID] = string(role)
	}
	return out
}
