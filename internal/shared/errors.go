package shared

import "fmt"

var (
	// Input validation errors
	ErrBadInput        = fmt.Errorf("bad input")
	ErrMissingArgument = fmt.Errorf("missing required argument")

	// Credential errors
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Upstream provider errors
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrUpstreamMalformed   = fmt.Errorf("upstream response malformed")

	// Storage errors
	ErrStorageFailure = fmt.Errorf("storage failure")
	ErrNotFound       = fmt.Errorf("not found")
)
