package auth

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the credential schema
// applied. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE credential_blobs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying credential migration: %v", err)
	}

	return db
}

// testStore creates a SQLite credential store on a fresh test database.
func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return NewSQLiteStore(testDB(t), nil)
}

// testProfile returns a minimal signed-in profile for store tests.
func testProfile(id string) UserProfile {
	return UserProfile{
		ID:    id,
		Email: id + "@coop.test",
		Name:  "Test User " + id,
	}
}

// putRawBlob writes an arbitrary value under a blob key, bypassing the
// store, for corruption tests.
func putRawBlob(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO credential_blobs (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		t.Fatalf("writing raw blob %s: %v", key, err)
	}
}
