package persistence

import "errors"

var (
	ErrNotFound   = errors.New("document not found")
	ErrEmptyKey   = errors.New("key must not be empty")
	ErrInvalidKey = errors.New("invalid key")
	ErrDecode     = errors.New("decode document")
	ErrEncode     = errors.New("encode document")
	ErrWrite      = errors.New("write failed")
)
