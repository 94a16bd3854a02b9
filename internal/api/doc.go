// Package api implements the HTTP REST API and WebSocket server for the
// climate service.
//
// This package provides:
//   - REST endpoints for engine status, decision history, overrides,
//     system mode and manual readings
//   - WebSocket hub broadcasting climate.decision and climate.status events
//   - Bearer JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Security
//
// Every route except /health and /ws requires an Authorization: Bearer
// token signed with security.jwt.secret. Routes then check a permission
// from the token's role (see package auth). WebSocket connections use
// single-use tickets so the JWT never appears in a URL.
//
// The token subject is recorded as set_by on manual overrides.
package api
