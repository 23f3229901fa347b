// Package errs defines the failure kinds core operations recover from and
// small helpers for wrapping with context.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: a referenced product, check or label id does not exist.
	// Surfaces to API callers as a 404.
	ErrNotFound = errors.New("not found")

	// ErrRenderFailure: image synthesis failed. Label creation degrades to
	// a textual payload without an image.
	ErrRenderFailure = errors.New("label rendering failed")
)

// Wrap adds context and preserves the error chain (errors.Is/As works)
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context and preserves the error chain
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	args = append(args, err)
	return fmt.Errorf(format+": %w", args...)
}
