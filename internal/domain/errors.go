package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Common domain errors
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidURL    = errors.New("invalid url")
	ErrCancelled     = errors.New("download cancelled")
	ErrRecordMissing = errors.New("history record not found")
)

// NewInvalidURLError wraps ErrInvalidURL with the offending value
func NewInvalidURLError(rawURL string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, cause)
	}
	return fmt.Errorf("%w %q", ErrInvalidURL, rawURL)
}

// HTTPError is returned for any non-2xx response other than 416.
type HTTPError struct {
	StatusCode int
	Status     string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("unexpected http status %d (%s)", e.StatusCode, status)
}

// NewHTTPError creates a new HTTP status error
func NewHTTPError(code int, status string) *HTTPError {
	return &HTTPError{StatusCode: code, Status: status}
}

// IsHTTPError returns true if err carries an HTTP status failure
func IsHTTPError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// HTTPStatus returns the status code carried by err, or 0
func HTTPStatus(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IOError represents a local file or stream fault.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error returns the error message
func (e *IOError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if msg == "" {
		return "i/o failure"
	}
	return msg
}

// Unwrap returns the underlying error
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// IsIOError returns true if err is an I/O failure
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// RangeMismatchError is returned when the server resumes past the end of the
// local partial file. Writing there would leave a gap, so nothing is written.
type RangeMismatchError struct {
	Expected int64 // local file length
	Got      int64 // start offset announced by Content-Range
}

// Error returns the error message
func (e *RangeMismatchError) Error() string {
	return fmt.Sprintf("server resumed at byte %d but local file holds %d bytes", e.Got, e.Expected)
}

// IsRangeMismatch returns true if err is a RangeMismatchError
func IsRangeMismatch(err error) bool {
	var re *RangeMismatchError
	return errors.As(err, &re)
}

// NewCancelledError wraps ErrCancelled together with the context cause
func NewCancelledError(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// IsCancelled returns true if the download was aborted by its context
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
