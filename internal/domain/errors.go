package domain

import "errors"

var (
	// ErrInvalidInput signals a malformed caller-supplied query or parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedCatalog signals a catalog record violating the schema.
	ErrMalformedCatalog = errors.New("malformed catalog record")
	// ErrUpstreamUnavailable signals a failed or timed-out call to the
	// embedding provider, the vector index, or the generative model.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
