// Package middleware exposes HTTP middleware adapters for access-token
// enforcement built on top of goSession.Engine validation.
//
// [Guard] reads the Authorization header, calls Engine.ValidateAccess, and
// injects the validated result into the request context. Client IP and
// user-agent are propagated into the engine context so device soft checks and
// audit events see the real caller.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement validation logic itself — all decisions are delegated to
// Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the credential store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.ValidateAccess.
package middleware
