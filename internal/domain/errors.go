package domain

import "errors"

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrDuplicate         = errors.New("duplicate transaction")
	ErrMalformedEncoding = errors.New("malformed encoding")
	ErrTreeFull          = errors.New("withdrawal tree full")
	ErrLockHeld          = errors.New("lock already held")
	ErrNotFound          = errors.New("not found")
)
