package models

import "errors"

// Common errors returned by repositories and services. Handlers map these
// to HTTP status codes; everything else is treated as an internal error.
var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersionNotFound is returned when a tool version number does not
	// exist in the tool's history
	ErrVersionNotFound = errors.New("version not found")

	// ErrAlreadyCurrent is returned when a rollback targets the version
	// that is already active
	ErrAlreadyCurrent = errors.New("version is already current")

	// ErrValidation is returned when input fails schema validation
	ErrValidation = errors.New("validation failed")

	// ErrTenantRequired is returned when an operation is attempted without
	// a tenant scope
	ErrTenantRequired = errors.New("tenant_id required")
)
