package service

import "errors"

// Error taxonomy surfaced to clients. Anything not matching one of these
// sentinels is treated as a storage failure.
var (
	// ErrValidation malformed request (missing room key, user id, payload)
	ErrValidation = errors.New("invalid request")
	// ErrNotFound unknown project, user, or document; deliberately
	// indistinguishable from a cross-tenant lookup
	ErrNotFound = errors.New("not found")
	// ErrForbidden the request references a resource in another organization
	ErrForbidden = errors.New("forbidden")
)
