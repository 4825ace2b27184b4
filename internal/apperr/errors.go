// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownField  = errors.New("unknown mark field")
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidIndex  = errors.New("no mark at index")
	ErrIndexDisabled = errors.New("search index disabled")
	ErrReservedID    = errors.New("reserved waystation id")
)
