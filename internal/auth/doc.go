// Package auth verifies bearer tokens for the climate API.
//
// Tokens are HS256 JWTs issued by the site's identity service and shared
// with this service through security.jwt.secret. The climate service keeps
// no user store: the subject and role in the token are all it needs. The
// subject becomes set_by on manual overrides.
//
// Three roles exist:
//   - viewer reads status and decision history
//   - operator also issues overrides, readings and system-mode changes
//   - admin also prunes the decision log
//
// Role permissions are a static table; no database lookup is involved.
package auth
