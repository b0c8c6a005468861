// Package apiclient is the HTTP client for the cooperative backend.
//
// All requests share one pipeline: the stored bearer token is attached when
// present, every request carries an X-Request-ID, and every response passes
// through a single translation point that maps HTTP status onto the package
// error taxonomy (ErrConnectivity, ErrSessionExpired, ErrInvalidCredentials,
// ErrPermissionDenied, ErrServer, *ValidationError).
//
// Session expiry is handled inside the pipeline: when the backend rejects a
// bearer with 401, the client clears the stored session and fires the
// configured callback before ErrSessionExpired reaches the caller, so no
// caller can observe a rejected token alongside a still-stored session.
// Permission denials (403) and validation rejections (422) leave the
// session untouched.
package apiclient
