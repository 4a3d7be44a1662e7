package edmx

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .edmx.yaml is found.
	ErrConfigNotFound = errors.New("edmx: no .edmx.yaml found")

	// ErrNoSchemaResource is returned when a connection string's metadata
	// property does not name a conceptual schema resource.
	ErrNoSchemaResource = errors.New("edmx: no conceptual schema resource in connection metadata")

	// ErrResourceNotFound is returned when the named conceptual schema
	// resource is not present in the context's resources.
	ErrResourceNotFound = errors.New("edmx: conceptual schema resource not found")

	// ErrInvalidContext is returned when a value cannot act as a data context.
	ErrInvalidContext = errors.New("edmx: invalid data context")

	// ErrUnknownConnection is returned when a named connection is not configured.
	ErrUnknownConnection = errors.New("edmx: unknown connection")
)
