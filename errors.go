package findergo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/findergo/model"
	"github.com/hupe1980/findergo/segment"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("index is closed")

	// ErrCorruptState indicates persisted state that cannot be read back.
	// The underlying cause is available via errors.Unwrap.
	ErrCorruptState = errors.New("corrupt index state")
)

// ErrInvalidMeta indicates a file record that failed validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidMeta struct {
	Path  string
	cause error
}

func (e *ErrInvalidMeta) Error() string {
	return fmt.Sprintf("invalid file meta %q: %v", e.Path, e.cause)
}

func (e *ErrInvalidMeta) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, model.ErrEmptyPath) {
		return &ErrInvalidMeta{cause: err}
	}
	if errors.Is(err, segment.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorruptState, err)
	}

	return err
}
