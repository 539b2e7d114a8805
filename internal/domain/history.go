package domain

import "time"

// DownloadRecord is one row of the download history. It is an audit log and
// is never used to decide where a download resumes.
type DownloadRecord struct {
	ID           string
	URL          string
	Path         string
	Status       string
	ResumedFrom  int64
	BytesWritten int64
	TotalLength  int64
	HTTPStatus   int
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// MarkFinished sets the terminal status of the record
func (r *DownloadRecord) MarkFinished(status string, errMsg string) {
	now := time.Now()
	r.Status = status
	r.Error = errMsg
	r.FinishedAt = &now
}

// Duration returns how long the download ran, or zero while in progress
func (r *DownloadRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HistoryStats summarises the download history
type HistoryStats struct {
	Total        int
	Completed    int
	Failed       int
	Cancelled    int
	InProgress   int
	BytesWritten int64
}
