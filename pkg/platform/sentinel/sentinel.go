package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Ledger, content and index adapters
// return these (optionally wrapped) so services can translate them into domain
// errors without knowing which backend is wired.
//
// - ErrNotFound: the backend has no entry for the key
// - ErrUnavailable: the backend could not be reached or failed to answer
// - ErrTimeout: the backend accepted the request but did not confirm in time;
//   the write may still land
// - ErrCorrupt: the backend answered with data that fails integrity checks
// - ErrConflict: the write collides with existing state
// - ErrInvalidState: entity in wrong state for requested operation
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("confirmation timeout")
	ErrCorrupt      = errors.New("integrity check failed")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
