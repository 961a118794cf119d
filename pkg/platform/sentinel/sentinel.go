package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, network sources and
// backchannel backends return these (optionally wrapped) and services translate
// them into domain errors:
//   - ErrNotFound: network, flow or request record does not exist
//   - ErrConflict: a record with the same identity already exists
//   - ErrExpired: flow state or request outlived its TTL
//   - ErrAlreadyUsed: single-use flow state already consumed
//   - ErrInvalidState: record in the wrong state for the requested operation
//   - ErrUnavailable: backend temporarily unavailable (lock contention, I/O)
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
