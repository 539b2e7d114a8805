package event

import (
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumefetch/internal/domain"
	"github.com/vertextoedge/resumefetch/internal/domain/repository"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadStarted:
		h.logger.Debug("download started",
			zap.String("download_id", e.DownloadID),
			zap.String("url", e.URL),
			zap.String("path", e.Path),
			zap.Int64("resume_from", e.ResumeFrom),
		)
	case DownloadRangeIgnored:
		h.logger.Warn("server ignored range request, partial file discarded",
			zap.String("download_id", e.DownloadID),
			zap.String("path", e.Path),
			zap.String("discarded", humanize.IBytes(uint64(e.DiscardedBytes))),
		)
	case DownloadAlreadyComplete:
		h.logger.Info("download already complete",
			zap.String("download_id", e.DownloadID),
			zap.String("path", e.Path),
			zap.String("size", humanize.IBytes(uint64(e.Size))),
		)
	case DownloadCompleted:
		h.logger.Info("download completed",
			zap.String("download_id", e.DownloadID),
			zap.String("url", e.URL),
			zap.String("path", e.Path),
			zap.String("written", humanize.IBytes(uint64(e.BytesWritten))),
			zap.Int64("resumed_from", e.ResumedFrom),
			zap.Bool("resumed", e.Resumed),
			zap.Duration("duration", e.Duration),
		)
	case DownloadFailed:
		h.logger.Error("download failed",
			zap.String("download_id", e.DownloadID),
			zap.String("url", e.URL),
			zap.String("path", e.Path),
			zap.String("error", e.Error),
			zap.Int("status_code", e.StatusCode),
			zap.Bool("cancelled", e.Cancelled),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{NameAll}
}

// MetricsHandler collects counters from events
type MetricsHandler struct {
	started         atomic.Int64
	completed       atomic.Int64
	alreadyComplete atomic.Int64
	failed          atomic.Int64
	cancelled       atomic.Int64
	rangeIgnored    atomic.Int64
	bytesWritten    atomic.Int64
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadStarted:
		h.started.Add(1)
	case DownloadCompleted:
		h.completed.Add(1)
		h.bytesWritten.Add(e.BytesWritten)
	case DownloadAlreadyComplete:
		h.alreadyComplete.Add(1)
	case DownloadRangeIgnored:
		h.rangeIgnored.Add(1)
	case DownloadFailed:
		if e.Cancelled {
			h.cancelled.Add(1)
		} else {
			h.failed.Add(1)
		}
		h.bytesWritten.Add(e.BytesWritten)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		NameDownloadStarted,
		NameDownloadCompleted,
		NameDownloadAlreadyComplete,
		NameDownloadRangeIgnored,
		NameDownloadFailed,
	}
}

// GetMetrics returns current metrics
func (h *MetricsHandler) GetMetrics() map[string]int64 {
	return map[string]int64{
		"downloads_started":          h.started.Load(),
		"downloads_completed":        h.completed.Load(),
		"downloads_already_complete": h.alreadyComplete.Load(),
		"downloads_failed":           h.failed.Load(),
		"downloads_cancelled":        h.cancelled.Load(),
		"range_ignored":              h.rangeIgnored.Load(),
		"bytes_written":              h.bytesWritten.Load(),
	}
}

// HistoryHandler writes download lifecycle events to the history repository
type HistoryHandler struct {
	repo repository.HistoryRepository

	mu       sync.Mutex
	inFlight map[string]*domain.DownloadRecord
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(repo repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{
		repo:     repo,
		inFlight: make(map[string]*domain.DownloadRecord),
	}
}

// Handle records the event
func (h *HistoryHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadStarted:
		rec := &domain.DownloadRecord{
			ID:          e.DownloadID,
			URL:         e.URL,
			Path:        e.Path,
			Status:      domain.StatusInProgress,
			ResumedFrom: e.ResumeFrom,
			TotalLength: -1,
			StartedAt:   e.Timestamp,
		}
		if err := h.repo.CreateRecord(rec); err != nil {
			return err
		}
		h.mu.Lock()
		h.inFlight[rec.ID] = rec
		h.mu.Unlock()
		return nil

	case DownloadRangeIgnored:
		if rec := h.lookup(e.DownloadID, false); rec != nil {
			rec.ResumedFrom = 0
		}
		return nil

	case DownloadAlreadyComplete:
		rec := h.lookup(e.DownloadID, true)
		if rec == nil {
			return nil
		}
		rec.TotalLength = e.Size
		rec.HTTPStatus = 416
		rec.MarkFinished(domain.StatusAlreadyComplete, "")
		return h.repo.FinishRecord(rec)

	case DownloadCompleted:
		rec := h.lookup(e.DownloadID, true)
		if rec == nil {
			return nil
		}
		rec.BytesWritten = e.BytesWritten
		rec.ResumedFrom = e.ResumedFrom
		rec.TotalLength = e.TotalLength
		rec.MarkFinished(domain.StatusCompleted, "")
		return h.repo.FinishRecord(rec)

	case DownloadFailed:
		rec := h.lookup(e.DownloadID, true)
		if rec == nil {
			return nil
		}
		rec.BytesWritten = e.BytesWritten
		rec.HTTPStatus = e.StatusCode
		status := domain.StatusFailed
		if e.Cancelled {
			status = domain.StatusCancelled
		}
		rec.MarkFinished(status, e.Error)
		return h.repo.FinishRecord(rec)
	}
	return nil
}

// lookup returns the in-flight record for id, removing it when remove is set
func (h *HistoryHandler) lookup(id string, remove bool) *domain.DownloadRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.inFlight[id]
	if remove {
		delete(h.inFlight, id)
	}
	return rec
}

// HandledEvents returns the events this handler handles
func (h *HistoryHandler) HandledEvents() []string {
	return []string{
		NameDownloadStarted,
		NameDownloadRangeIgnored,
		NameDownloadAlreadyComplete,
		NameDownloadCompleted,
		NameDownloadFailed,
	}
}
