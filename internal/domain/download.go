package domain

import (
	"net/url"
	"strings"
)

// DownloadTarget describes one download. It is immutable for the duration of a call.
type DownloadTarget struct {
	RemoteURL       string
	DestinationPath string
}

// NewDownloadTarget validates rawURL and returns a target for it
func NewDownloadTarget(rawURL, destinationPath string) (DownloadTarget, error) {
	t := DownloadTarget{RemoteURL: rawURL, DestinationPath: destinationPath}
	if err := t.Validate(); err != nil {
		return DownloadTarget{}, err
	}
	return t, nil
}

// Validate checks that RemoteURL is an absolute http(s) URL and that a
// destination path is set
func (t DownloadTarget) Validate() error {
	if _, err := ParseRemoteURL(t.RemoteURL); err != nil {
		return err
	}
	if strings.TrimSpace(t.DestinationPath) == "" {
		return NewIOError("validate", "", ErrInvalidInput)
	}
	return nil
}

// ParseRemoteURL parses rawURL and rejects anything that is not an absolute
// http or https URL with a host
func ParseRemoteURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, NewInvalidURLError(rawURL, nil)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewInvalidURLError(rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, NewInvalidURLError(rawURL, nil)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, NewInvalidURLError(rawURL, nil)
	}
	return u, nil
}

// ProgressEvent carries a completion percentage in [0, 100]
type ProgressEvent struct {
	Percent int
}

// DownloadResult represents the outcome of a successful download call
type DownloadResult struct {
	// Path is the destination file
	Path string

	// BytesWritten is the number of bytes written during this call
	BytesWritten int64

	// ResumedFrom is the offset writing started at
	ResumedFrom int64

	// TotalLength is Content-Length plus ResumedFrom, or -1 when unknown
	TotalLength int64

	// StatusCode is the HTTP status of the response
	StatusCode int

	// Resumed is true when the server honoured the range request
	Resumed bool

	// RangeIgnored is true when a partial file existed but the server sent the
	// full body, so the file was restarted from zero
	RangeIgnored bool

	// AlreadyComplete is true when the server answered 416
	AlreadyComplete bool

	// LastPercent is the last percentage delivered to observers, -1 if none
	LastPercent int
}

// Download record status constants
const (
	StatusInProgress      = "in_progress"
	StatusCompleted       = "completed"
	StatusAlreadyComplete = "already_complete"
	StatusFailed          = "failed"
	StatusCancelled       = "cancelled"
)
