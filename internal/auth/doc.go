// Package auth implements the credential and authorisation core of the
// cooperative client: persistent session storage, canonical role
// resolution, local role overrides, and route guarding.
//
// # Sessions
//
// A sign-in produces a bearer token plus the server's role labels,
// permission strings, and user profile. CredentialStore persists this as a
// single session record that survives restarts until sign-out or until the
// backend rejects the token. The store normalises what it saves: the
// canonical Role is derived from the server labels at save time, and the
// label list is backfilled so it is never empty.
//
// # Roles
//
// The server speaks in display labels; this module speaks in the closed
// Role set (superAdmin, admin, producer, seller). NormalizeLabel defines the
// only label-equality rule, and unrecognised labels always resolve to the
// least-privileged DefaultRole.
//
// # Overrides
//
// Administrators can locally reassign a user's role. Overrides live in
// their own stored map, keyed by user ID, independent of the session. The
// Resolver applies an override for the signed-in user by replacing the
// server labels entirely; override read failures fall back to the server
// labels so a damaged map cannot lock anyone out.
//
// # Guarding
//
// Guard gates protected routes: it resolves effective roles, intersects
// them with the route's allowed labels, and fails closed on any error,
// invoking the configured navigation callback on denial.
//
// Permission strings are persisted verbatim with the session but take no
// part in any authorisation decision; role labels are the sole input.
package auth
