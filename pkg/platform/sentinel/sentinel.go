package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into fallback decisions
// or structured results instead of branching on driver error types.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: row or local record does not exist
// - ErrConflict: unique-constraint violation; benign for idempotent inserts
// - ErrUnauthenticated: no valid session, remote path must not be attempted
// - ErrUnavailable: remote store unreachable after retries are exhausted
// - ErrExpired: cached value or session past its TTL
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("unavailable")
	ErrExpired         = errors.New("expired")
)
