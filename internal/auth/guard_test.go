package auth

import (
	"context"
	"testing"
)

func TestGuard_Check(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		labels   []string
		override *Role
		allowed  []string
		want     GuardState
	}{
		{
			name:    "matching role grants",
			userID:  "u1",
			labels:  []string{"Producer"},
			allowed: []string{"Producer", "Admin"},
			want:    StateGranted,
		},
		{
			name:    "non-matching role denies",
			userID:  "u1",
			labels:  []string{"Seller"},
			allowed: []string{"Admin"},
			want:    StateDenied,
		},
		{
			name:    "label comparison ignores case and spacing",
			userID:  "u1",
			labels:  []string{"Super Admin"},
			allowed: []string{"superadmin"},
			want:    StateGranted,
		},
		{
			name:    "any of several labels suffices",
			userID:  "u1",
			labels:  []string{"Producer", "Seller"},
			allowed: []string{"Seller"},
			want:    StateGranted,
		},
		{
			name:    "empty allowed list denies everything",
			userID:  "u1",
			labels:  []string{"Super Admin"},
			allowed: nil,
			want:    StateDenied,
		},
		{
			name:     "override can grant a gated route",
			userID:   "u1",
			labels:   []string{"Seller"},
			override: rolePtr(RoleAdmin),
			allowed:  []string{"Admin"},
			want:     StateGranted,
		},
		{
			name:     "override can revoke a gated route",
			userID:   "u1",
			labels:   []string{"Admin"},
			override: rolePtr(RoleSeller),
			allowed:  []string{"Admin"},
			want:     StateDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			signIn(t, store, tt.userID, tt.labels)
			if tt.override != nil {
				if err := store.SetOverride(context.Background(), tt.userID, *tt.override); err != nil {
					t.Fatalf("SetOverride: %v", err)
				}
			}

			var navigated bool
			guard := NewGuard(NewResolver(store, nil), func() { navigated = true }, nil)

			got := guard.Check(context.Background(), tt.allowed)
			if got != tt.want {
				t.Errorf("Check = %v, want %v", got, tt.want)
			}
			if navigated != (tt.want == StateDenied) {
				t.Errorf("navigated = %v, want %v", navigated, tt.want == StateDenied)
			}
		})
	}
}

func TestGuard_CheckSignedOut(t *testing.T) {
	var navigated bool
	guard := NewGuard(NewResolver(NewMemoryStore(), nil), func() { navigated = true }, nil)

	if got := guard.Check(context.Background(), []string{"Seller"}); got != StateDenied {
		t.Errorf("Check with no session = %v, want %v", got, StateDenied)
	}
	if !navigated {
		t.Error("denial did not navigate")
	}
}

func TestGuard_CheckFailsClosed(t *testing.T) {
	faulty := &faultyStore{CredentialStore: NewMemoryStore(), failSession: true}

	var navigated bool
	guard := NewGuard(NewResolver(faulty, nil), func() { navigated = true }, nil)

	if got := guard.Check(context.Background(), []string{"Seller"}); got != StateDenied {
		t.Errorf("Check on failing store = %v, want %v", got, StateDenied)
	}
	if !navigated {
		t.Error("denial did not navigate")
	}
}

func TestGuard_NilNavigate(t *testing.T) {
	guard := NewGuard(NewResolver(NewMemoryStore(), nil), nil, nil)

	// Must not panic without a navigation callback.
	if got := guard.Check(context.Background(), []string{"Seller"}); got != StateDenied {
		t.Errorf("Check = %v, want %v", got, StateDenied)
	}
}

func TestGuardState_String(t *testing.T) {
	tests := []struct {
		state GuardState
		want  string
	}{
		{StateChecking, "checking"},
		{StateGranted, "granted"},
		{StateDenied, "denied"},
		{GuardState(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func rolePtr(r Role) *Role { return &r }
