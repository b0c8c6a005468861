package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the expiry claim out of a bearer token without
// verifying its signature. The backend remains the authority on token
// validity; this is advisory only, used to surface "session expires at"
// information in the UI and logs. Returns false for opaque or claim-less
// tokens.
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// SessionExpiresAt returns the advisory expiry of the stored session's
// token. Returns false when no session is stored or the token carries no
// readable expiry.
func (r *Resolver) SessionExpiresAt(ctx context.Context) (time.Time, bool) {
	sess, err := r.store.LoadSession(ctx)
	if err != nil || !sess.Authenticated() {
		return time.Time{}, false
	}
	return TokenExpiry(sess.Token)
}
