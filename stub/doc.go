// Package stub provides interfaces and no-op stub implementations.
//
// Protocol engines depend on these interfaces instead of a concrete metrics
// backend, so callers who don't want a Prometheus dependency can leave the
// stubs in place and get no-op behavior.
//
// Stubs are provided for: metrics (prometheus).
package stub
