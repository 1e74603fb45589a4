// Package goSession provides a refresh-token lifecycle engine with JWT access
// tokens, single-use rotating refresh tokens, reuse detection with family
// cascade revocation, and concurrent-session capping.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (SessionResult, AuthResult, MetricsSnapshot, etc.). All
// internal coordination — flow orchestration, token encoding, rate limiting,
// audit dispatch — lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, credential stores, or encoding details in its
//     public API beyond the store interfaces callers implement.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path. It is stateless unless block-status checks
// are enabled, in which case it is allowed one cache round-trip per call.
// IssueSession and Rotate are allowed one store round-trip plus one cache
// round-trip per call.
package goSession
