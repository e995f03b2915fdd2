// Package ident supplies collision-free identifiers. The domain core only
// consumes the Generator interface; it never mints ids itself.
package ident

import "github.com/google/uuid"

// Generator returns a new unique identifier on every call.
type Generator interface {
	NewID() string
}

// UUID generates random (version 4) UUID strings.
type UUID struct{}

// NewID returns a new UUID string.
func (UUID) NewID() string {
	return uuid.NewString()
}

// Func adapts a plain function to the Generator interface.
type Func func() string

// NewID calls the wrapped function.
func (f Func) NewID() string { return f() }
