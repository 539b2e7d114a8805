// Package progress turns downloader percentage events into throttled log lines.
package progress

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumefetch/internal/domain"
)

// LogReporter logs download progress at most once per interval.
// The first event and 100% are always logged.
type LogReporter struct {
	logger  *zap.Logger
	limiter *limiter
	label   string

	mu       sync.Mutex
	size     int64
	last     int
	started  time.Time
	finished bool
}

// Option configures a LogReporter
type Option func(*LogReporter)

// WithSize sets the expected total size so log lines can show bytes
func WithSize(size int64) Option {
	return func(r *LogReporter) { r.size = size }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(r *LogReporter) { r.limiter.now = now }
}

// NewLogReporter creates a reporter that logs under label
func NewLogReporter(logger *zap.Logger, interval time.Duration, label string, opts ...Option) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &LogReporter{
		logger:  logger,
		limiter: newLimiter(interval, nil),
		label:   label,
		size:    -1,
		last:    -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.limiter.now()
	return r
}

// OnProgress implements the downloader's ProgressObserver
func (r *LogReporter) OnProgress(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}

	first := r.last < 0
	r.last = e.Percent

	switch {
	case e.Percent >= 100:
		r.finished = true
		r.limiter.mark()
	case first:
		r.limiter.mark()
	case !r.limiter.allow():
		return
	}

	fields := []zap.Field{
		zap.String("file", r.label),
		zap.Int("percent", e.Percent),
	}
	if r.size > 0 {
		done := r.size * int64(e.Percent) / 100
		fields = append(fields,
			zap.String("received", humanize.IBytes(uint64(done))),
			zap.String("total", humanize.IBytes(uint64(r.size))))
	}
	if r.finished {
		fields = append(fields, zap.Duration("elapsed", r.limiter.now().Sub(r.started)))
	}
	r.logger.Info("download progress", fields...)
}

// LastPercent returns the last percentage received, or -1
func (r *LogReporter) LastPercent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
