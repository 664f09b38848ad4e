package cmn

import "errors"

// Sentinel errors returned by the store and surfaced by the REST handlers as
// the corresponding HTTP status. The REST handlers match these by unwrapping
// the error chain rather than inspecting strings.
var (
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
	ErrForbidden     = errors.New("forbidden")
	ErrIdentityField = errors.New("request body would change identity field")
)
