package repository

import "errors"

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller does not own the row it tried to mutate.
	ErrForbidden = errors.New("forbidden")

	// ErrEmptyMessage: a message must carry text or at least one attachment.
	ErrEmptyMessage = errors.New("message must contain text or at least one attachment")
)
