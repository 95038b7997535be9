package record

import (
	"errors"
)

var (
	ErrUnknownKind  = errors.New("unknown record kind")
	ErrInvalidData  = errors.New("invalid record data")
	ErrKindMismatch = errors.New("payload does not match record kind")
	ErrNotFound     = errors.New("record not found")
)
