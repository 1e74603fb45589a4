// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for token lifecycle workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - gr:  — rotation per-family
//   - gi:  — issue per-user
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the engine).
//   - Be imported outside the goSession module.
package rate
