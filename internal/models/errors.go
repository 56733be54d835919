package models

import "errors"

// Domain error kinds. Every mutation entry point validates its inputs and
// fails with one of these before touching the store; storage faults are
// wrapped separately so callers can tell "bad request" from "broken disk".
var (
	// ErrInvalidReference reports a movie or showtime index that is out of
	// range for the current catalog.
	ErrInvalidReference = errors.New("movie or showtime reference out of range")

	// ErrNotFound reports a missing booking entry, user or movie.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser reports registration with an already-taken email.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrUnauthorized reports a role violation, e.g. a regular user calling
	// an admin mutation or an admin trying to book seats.
	ErrUnauthorized = errors.New("not allowed for this role")
)
