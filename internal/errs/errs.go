// Package errs defines the error values returned by a conversion.
package errs

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when a converter receives no bytes.
var ErrEmptyInput = errors.New("input is empty")

// ErrTooLarge is returned when an input exceeds the configured size limit.
var ErrTooLarge = errors.New("input exceeds maximum size")

// ContainerError reports a failure to open an archive or read one of its entries.
type ContainerError struct {
	Op    string // "open", "read", "missing"
	Entry string
	Err   error
}

func (e *ContainerError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("container %s %s: %v", e.Op, e.Entry, e.Err)
	}
	return fmt.Sprintf("container %s: %v", e.Op, e.Err)
}

func (e *ContainerError) Unwrap() error { return e.Err }

// DocumentParseError reports a malformed word-processing document tree.
type DocumentParseError struct {
	Part string
	Err  error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("document parse %s: %v", e.Part, e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// SlideParseError reports a malformed slide. Slide is the 1-based position
// of the slide in processing order.
type SlideParseError struct {
	Slide int
	Entry string
	Err   error
}

func (e *SlideParseError) Error() string {
	return fmt.Sprintf("slide %d (%s): %v", e.Slide, e.Entry, e.Err)
}

func (e *SlideParseError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure while saving an image.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned by the dispatcher when no route matches
// the resolved MIME type.
type UnsupportedFormatError struct {
	MIME   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported format %q: %s", e.MIME, e.Reason)
	}
	return fmt.Sprintf("unsupported format %q", e.MIME)
}

// NamingError reports a failed image-naming call. It never escapes the
// image package; callers fall back to a timestamp name.
type NamingError struct {
	Err error
}

func (e *NamingError) Error() string {
	return fmt.Sprintf("image naming: %v", e.Err)
}

func (e *NamingError) Unwrap() error { return e.Err }
