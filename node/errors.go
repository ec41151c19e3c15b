package node

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyCancelled is returned by Key operations once the key has been cancelled.
	ErrKeyCancelled  = errors.New("node: key cancelled")
	ErrPollClosed    = errors.New("node: poll closed")
	ErrInvalidRange  = errors.New("node: buffer range out of bounds")
	ErrSignalStopped = errors.New("node: signal stopped")
)

// SizeLimitError reports a gathered send whose total payload cannot fit in one buffer.
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("node: source data is too large (%d bytes, limit %d)", e.Size, e.Limit)
}

// UnsupportedOptionError is returned for every channel option lookup or update.
type UnsupportedOptionError struct {
	Name string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("node: no options supported (%q)", e.Name)
}

func (e *UnsupportedOptionError) Unwrap() error {
	return errors.ErrUnsupported
}
