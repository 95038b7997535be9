package node

import "errors"

var (
	ErrNotFound     = errors.New("node not found")
	ErrExists       = errors.New("node already registered")
	ErrInvalidAuth  = errors.New("invalid api key")
	ErrInvalidInput = errors.New("invalid input")
)
