// Package repository defines error types that are reused across the
// repository and the handlers.  These sentinel values let higher layers
// choose a response status without inspecting messages.
package repository

import "errors"

// ErrMovieNotFound is returned when no movie matches the requested id.
// Lookups report it instead of panicking and never change state.
var ErrMovieNotFound = errors.New("movie not found")
