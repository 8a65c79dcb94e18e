// Package domain holds the error values shared by every layer. Entity and
// notification types live in the subpackages.
package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrConstraint = errors.New("constraint violation")
	ErrInvalid    = errors.New("invalid argument")
)
