// Package flows contains dependency-injected lifecycle flow implementations.
// Each flow receives its collaborators through a Deps struct so the root
// engine stays a thin mapping layer and flows stay testable without Redis,
// Postgres, or JWT wiring.
package flows
