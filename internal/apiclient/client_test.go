package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avicola/eggcoop-core/internal/auth"
)

// testEnv wires a client against a fake backend.
type testEnv struct {
	mux       *chi.Mux
	store     *auth.MemoryStore
	client    *Client
	navigated int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		mux:   chi.NewRouter(),
		store: auth.NewMemoryStore(),
	}

	srv := httptest.NewServer(env.mux)
	t.Cleanup(srv.Close)

	env.client = New(
		Config{BaseURL: srv.URL, Timeout: 5 * time.Second},
		env.store,
		func() { env.navigated++ },
		nil,
	)
	return env
}

// signIn stores a session directly, bypassing the login endpoint.
func (env *testEnv) signIn(t *testing.T, userID string, labels []string) *auth.Session {
	t.Helper()

	sess, err := env.store.SaveSession(context.Background(), "tok-"+userID, labels, nil, auth.UserProfile{
		ID:    userID,
		Email: userID + "@coop.test",
	})
	if err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	return sess
}

func (env *testEnv) storedSession(t *testing.T) *auth.Session {
	t.Helper()

	sess, err := env.store.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body)) //nolint:errcheck
}

func TestClient_AttachesBearerAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "u1", []string{"Seller"})

	var gotAuth, gotRequestID string
	env.mux.Get("/validate-token", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, `{}`)
	})

	if err := env.client.ValidateToken(context.Background()); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotAuth != "Bearer tok-u1" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if _, err := uuid.Parse(gotRequestID); err != nil {
		t.Errorf("X-Request-ID = %q, want a UUID", gotRequestID)
	}
}

func TestClient_NoBearerWhenSignedOut(t *testing.T) {
	env := newTestEnv(t)

	var gotAuth string
	env.mux.Get("/roles", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"roles":[]}`)
	})

	if _, err := env.client.Roles(context.Background()); err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty when signed out", gotAuth)
	}
}

func TestClient_Connectivity(t *testing.T) {
	// A server that is immediately closed guarantees a refused connection.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := New(Config{BaseURL: srv.URL, Timeout: time.Second}, auth.NewMemoryStore(), nil, nil)

	err := client.ValidateToken(context.Background())
	if !errors.Is(err, ErrConnectivity) {
		t.Errorf("err = %v, want ErrConnectivity", err)
	}
}

func TestClient_SessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "u1", []string{"Admin"})

	env.mux.Get("/user/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
	})

	_, err := env.client.Profile(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}

	// The session is gone and the redirect fired before the error returned.
	if sess := env.storedSession(t); sess != nil {
		t.Errorf("session still stored after expiry: %+v", sess)
	}
	if env.navigated != 1 {
		t.Errorf("navigated %d times, want 1", env.navigated)
	}
}

func TestClient_UnauthenticatedRejectionIsNotExpiry(t *testing.T) {
	env := newTestEnv(t)

	env.mux.Get("/user/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
	})

	_, err := env.client.Profile(context.Background())
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if env.navigated != 0 {
		t.Errorf("navigated %d times, want 0 without a stored session", env.navigated)
	}
}

func TestClient_PermissionDenied(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "u1", []string{"Seller"})

	env.mux.Post("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"message":"Forbidden."}`)
	})

	_, err := env.client.CreateUser(context.Background(), CreateUserRequest{Email: "x@coop.test"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}

	// Unlike expiry, a denial leaves the session alone.
	if sess := env.storedSession(t); !sess.Authenticated() {
		t.Error("session cleared on permission denial")
	}
	if env.navigated != 0 {
		t.Errorf("navigated %d times, want 0", env.navigated)
	}
}

func TestClient_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "u1", []string{"Admin"})

	env.mux.Post("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity,
			`{"message":"The given data was invalid.","errors":{"name":["Name is required."],"email":["Email is taken."]}}`)
	})

	_, err := env.client.CreateUser(context.Background(), CreateUserRequest{})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", ve.Status)
	}
	// Fields are ordered by name, so "email" wins over "name".
	if ve.Message != "Email is taken." {
		t.Errorf("message = %q, want first field error", ve.Message)
	}
	if len(ve.Body) == 0 {
		t.Error("body not preserved")
	}
}

func TestClient_ValidationUnstructuredBody(t *testing.T) {
	env := newTestEnv(t)

	env.mux.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `not json`)
	})

	_, err := env.client.Login(context.Background(), "x@coop.test", "pw")

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Message != "invalid input" {
		t.Errorf("message = %q, want generic fallback", ve.Message)
	}
}

func TestClient_ServerError(t *testing.T) {
	env := newTestEnv(t)

	env.mux.Get("/roles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{"message":"upstream down"}`)
	})

	_, err := env.client.Roles(context.Background())
	if !errors.Is(err, ErrServer) {
		t.Errorf("err = %v, want ErrServer", err)
	}
}
