package clique

import "errors"

// Error taxonomy surfaced by the clique core. Handlers map these onto
// HTTP statuses; anything unwrapped is treated as an internal error.
var (
	// ErrNotFound indicates the target entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller lacks the required role or
	// membership for the target clique.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a duplicate active membership.
	ErrConflict = errors.New("already a member")
	// ErrValidation indicates malformed input shape.
	ErrValidation = errors.New("invalid input")
)
