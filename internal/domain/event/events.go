package event

import (
	"time"
)

// Event names
const (
	NameDownloadStarted         = "download.started"
	NameDownloadRangeIgnored    = "download.range_ignored"
	NameDownloadAlreadyComplete = "download.already_complete"
	NameDownloadCompleted       = "download.completed"
	NameDownloadFailed          = "download.failed"

	// NameAll subscribes a handler to every event
	NameAll = "*"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all download events
type BaseEvent struct {
	Timestamp  time.Time
	DownloadID string
	URL        string
	Path       string
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func newBase(id, url, path string) BaseEvent {
	return BaseEvent{Timestamp: time.Now(), DownloadID: id, URL: url, Path: path}
}

// DownloadStarted is raised before the request is sent
type DownloadStarted struct {
	BaseEvent
	ResumeFrom int64
}

// EventName returns the event name
func (e DownloadStarted) EventName() string {
	return NameDownloadStarted
}

// NewDownloadStarted creates a new DownloadStarted event
func NewDownloadStarted(id, url, path string, resumeFrom int64) DownloadStarted {
	return DownloadStarted{
		BaseEvent:  newBase(id, url, path),
		ResumeFrom: resumeFrom,
	}
}

// DownloadRangeIgnored is raised when a partial file is discarded because the
// server answered a range request with the full body
type DownloadRangeIgnored struct {
	BaseEvent
	DiscardedBytes int64
}

// EventName returns the event name
func (e DownloadRangeIgnored) EventName() string {
	return NameDownloadRangeIgnored
}

// NewDownloadRangeIgnored creates a new DownloadRangeIgnored event
func NewDownloadRangeIgnored(id, url, path string, discarded int64) DownloadRangeIgnored {
	return DownloadRangeIgnored{
		BaseEvent:      newBase(id, url, path),
		DiscardedBytes: discarded,
	}
}

// DownloadAlreadyComplete is raised when the server answers 416
type DownloadAlreadyComplete struct {
	BaseEvent
	Size int64
}

// EventName returns the event name
func (e DownloadAlreadyComplete) EventName() string {
	return NameDownloadAlreadyComplete
}

// NewDownloadAlreadyComplete creates a new DownloadAlreadyComplete event
func NewDownloadAlreadyComplete(id, url, path string, size int64) DownloadAlreadyComplete {
	return DownloadAlreadyComplete{
		BaseEvent: newBase(id, url, path),
		Size:      size,
	}
}

// DownloadCompleted is raised when the body has been streamed to disk
type DownloadCompleted struct {
	BaseEvent
	BytesWritten int64
	ResumedFrom  int64
	TotalLength  int64
	Resumed      bool
	Duration     time.Duration
}

// EventName returns the event name
func (e DownloadCompleted) EventName() string {
	return NameDownloadCompleted
}

// NewDownloadCompleted creates a new DownloadCompleted event
func NewDownloadCompleted(id, url, path string, written, resumedFrom, total int64, resumed bool, duration time.Duration) DownloadCompleted {
	return DownloadCompleted{
		BaseEvent:    newBase(id, url, path),
		BytesWritten: written,
		ResumedFrom:  resumedFrom,
		TotalLength:  total,
		Resumed:      resumed,
		Duration:     duration,
	}
}

// DownloadFailed is raised when a download call returns an error
type DownloadFailed struct {
	BaseEvent
	Error        string
	StatusCode   int
	BytesWritten int64
	Cancelled    bool
}

// EventName returns the event name
func (e DownloadFailed) EventName() string {
	return NameDownloadFailed
}

// NewDownloadFailed creates a new DownloadFailed event
func NewDownloadFailed(id, url, path, errMsg string, statusCode int, written int64, cancelled bool) DownloadFailed {
	return DownloadFailed{
		BaseEvent:    newBase(id, url, path),
		Error:        errMsg,
		StatusCode:   statusCode,
		BytesWritten: written,
		Cancelled:    cancelled,
	}
}
