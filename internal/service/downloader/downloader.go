package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumefetch/internal/domain"
	"github.com/vertextoedge/resumefetch/internal/domain/event"
	"github.com/vertextoedge/resumefetch/internal/port"
)

// DefaultBufferSize is the chunk size used when Config.BufferSize is unset
const DefaultBufferSize = 32 * 1024

// Config contains downloader configuration
type Config struct {
	// BufferSize is the number of bytes read and written per chunk
	BufferSize int
}

// ProgressObserver receives percentage updates during a download
type ProgressObserver interface {
	OnProgress(event domain.ProgressEvent)
}

// ProgressFunc adapts a function to ProgressObserver
type ProgressFunc func(event domain.ProgressEvent)

// OnProgress calls f(event)
func (f ProgressFunc) OnProgress(event domain.ProgressEvent) {
	f(event)
}

// ObserverID identifies a registered observer
type ObserverID uint64

type observerEntry struct {
	id       ObserverID
	observer ProgressObserver
}

// Downloader handles resumable single-stream downloads
type Downloader struct {
	fetcher    port.Fetcher
	fs         port.FileSystem
	events     event.EventDispatcher
	logger     *zap.Logger
	bufferSize int

	mu        sync.RWMutex
	observers []observerEntry
	nextID    ObserverID
}

// New creates a new Downloader
func New(
	cfg *Config,
	fetcher port.Fetcher,
	fs port.FileSystem,
	events event.EventDispatcher,
	logger *zap.Logger,
) *Downloader {
	bufferSize := DefaultBufferSize
	if cfg != nil && cfg.BufferSize > 0 {
		bufferSize = cfg.BufferSize
	}
	if events == nil {
		events = event.NewNullDispatcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		fetcher:    fetcher,
		fs:         fs,
		events:     events,
		logger:     logger,
		bufferSize: bufferSize,
	}
}

// AddObserver registers an observer and returns its ID
func (d *Downloader) AddObserver(o ProgressObserver) ObserverID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.observers = append(d.observers, observerEntry{id: d.nextID, observer: o})
	return d.nextID
}

// RemoveObserver unregisters an observer. It reports whether id was registered.
func (d *Downloader) RemoveObserver(id ObserverID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, entry := range d.observers {
		if entry.id == id {
			kept := make([]observerEntry, 0, len(d.observers)-1)
			kept = append(kept, d.observers[:i]...)
			d.observers = append(kept, d.observers[i+1:]...)
			return true
		}
	}
	return false
}

// ObserverCount returns the number of registered observers
func (d *Downloader) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

func (d *Downloader) notify(percent int) {
	d.mu.RLock()
	snapshot := make([]observerEntry, len(d.observers))
	copy(snapshot, d.observers)
	d.mu.RUnlock()

	ev := domain.ProgressEvent{Percent: percent}
	for _, entry := range snapshot {
		entry.observer.OnProgress(ev)
	}
}

// GetDownloadSize returns the Content-Length reported by a HEAD request,
// or -1 if the server does not report one
func (d *Downloader) GetDownloadSize(ctx context.Context, rawURL string) (int64, error) {
	if _, err := domain.ParseRemoteURL(rawURL); err != nil {
		return -1, err
	}
	return d.fetcher.ContentLength(ctx, rawURL)
}

// transfer holds the per-call download state
type transfer struct {
	id       string
	target   domain.DownloadTarget
	existing int64 // local file length before the call
	exists   bool
	written  int64
}

// Download fetches target.RemoteURL into target.DestinationPath, resuming
// from the existing file when the server allows it. It blocks until the
// transfer ends, ctx is cancelled, or a fault occurs.
func (d *Downloader) Download(ctx context.Context, target domain.DownloadTarget) (*domain.DownloadResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	existing, exists, err := d.fs.FileSize(target.DestinationPath)
	if err != nil {
		return nil, asIOError("stat", target.DestinationPath, err)
	}

	t := &transfer{
		id:       uuid.NewString(),
		target:   target,
		existing: existing,
		exists:   exists,
	}

	d.events.Dispatch(event.NewDownloadStarted(t.id, target.RemoteURL, target.DestinationPath, existing))
	started := time.Now()

	result, err := d.download(ctx, t)
	if err != nil {
		d.events.Dispatch(event.NewDownloadFailed(
			t.id, target.RemoteURL, target.DestinationPath,
			err.Error(), domain.HTTPStatus(err), t.written, domain.IsCancelled(err),
		))
		return nil, err
	}

	if result.AlreadyComplete {
		d.events.Dispatch(event.NewDownloadAlreadyComplete(t.id, target.RemoteURL, target.DestinationPath, existing))
	} else {
		d.events.Dispatch(event.NewDownloadCompleted(
			t.id, target.RemoteURL, target.DestinationPath,
			result.BytesWritten, result.ResumedFrom, result.TotalLength,
			result.Resumed, time.Since(started),
		))
	}
	return result, nil
}

func (d *Downloader) download(ctx context.Context, t *transfer) (*domain.DownloadResult, error) {
	path := t.target.DestinationPath
	rawURL := t.target.RemoteURL

	if err := ctx.Err(); err != nil {
		return nil, domain.NewCancelledError(err)
	}

	rangeStart := int64(-1)
	if t.exists && t.existing > 0 {
		rangeStart = t.existing
	}

	d.logger.Debug("requesting",
		zap.String("download_id", t.id),
		zap.String("url", rawURL),
		zap.Int64("range_start", rangeStart))

	resp, err := d.fetcher.Get(ctx, rawURL, rangeStart)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.NewCancelledError(ctxErr)
		}
		if errors.Is(err, domain.ErrInvalidURL) {
			return nil, err
		}
		return nil, domain.NewIOError("request", rawURL, err)
	}
	defer resp.Body.Close()

	d.logger.Debug("response received",
		zap.String("download_id", t.id),
		zap.Int("status_code", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
		zap.String("content_range", resp.Header.Get("Content-Range")))

	// 416: the resume point is at or past the end of the resource
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		d.notify(100)
		return &domain.DownloadResult{
			Path:            path,
			ResumedFrom:     t.existing,
			TotalLength:     t.existing,
			StatusCode:      resp.StatusCode,
			AlreadyComplete: true,
			LastPercent:     100,
		}, nil
	}

	if resp.StatusCode/100 != 2 {
		return nil, domain.NewHTTPError(resp.StatusCode, resp.Status)
	}

	result := &domain.DownloadResult{
		Path:        path,
		StatusCode:  resp.StatusCode,
		TotalLength: -1,
		LastPercent: -1,
	}

	var offset int64
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		start, err := ParseContentRangeStart(cr)
		if err != nil {
			return nil, domain.NewIOError("parse content-range", rawURL, err)
		}
		if start > t.existing {
			return nil, &domain.RangeMismatchError{Expected: t.existing, Got: start}
		}
		offset = start
		result.Resumed = start > 0
		if start > 0 {
			d.logger.Info("resuming download",
				zap.String("download_id", t.id),
				zap.String("path", path),
				zap.Int64("from_byte", start))
		}
	} else if t.exists && t.existing > 0 {
		if err := d.fs.DeleteFile(path); err != nil {
			return nil, asIOError("delete", path, err)
		}
		result.RangeIgnored = true
		d.events.Dispatch(event.NewDownloadRangeIgnored(t.id, rawURL, path, t.existing))
	}

	result.ResumedFrom = offset
	if resp.ContentLength >= 0 {
		result.TotalLength = resp.ContentLength + offset
	}

	w, err := d.fs.OpenAt(path, offset)
	if err != nil {
		return nil, asIOError("open", path, err)
	}

	streamErr := d.stream(ctx, t, resp.Body, w, offset, result)
	closeErr := w.Close()
	if streamErr != nil {
		return nil, streamErr
	}
	if closeErr != nil {
		return nil, asIOError("close", path, closeErr)
	}

	result.BytesWritten = t.written
	return result, nil
}

// stream copies body into w chunk by chunk, notifying observers whenever the
// integer percentage changes. It stops at end of data or at 100%.
func (d *Downloader) stream(ctx context.Context, t *transfer, body io.Reader, w io.Writer, offset int64, result *domain.DownloadResult) error {
	buf := make([]byte, d.bufferSize)
	downloaded := offset
	total := result.TotalLength

	for {
		if err := ctx.Err(); err != nil {
			return domain.NewCancelledError(err)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			written, err := w.Write(buf[:n])
			t.written += int64(written)
			downloaded += int64(written)
			if err != nil {
				return asIOError("write", t.target.DestinationPath, err)
			}

			if total > 0 {
				if p := percent(downloaded, total); p != result.LastPercent {
					result.LastPercent = p
					d.notify(p)
				}
				if result.LastPercent >= 100 {
					return nil
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.NewCancelledError(ctxErr)
			}
			return domain.NewIOError("read", t.target.RemoteURL, readErr)
		}
	}

	// Unknown or zero length: progress is indeterminate until the stream ends
	if total <= 0 && result.LastPercent != 100 {
		result.LastPercent = 100
		d.notify(100)
	}
	return nil
}

// percent returns floor(done*100/total) clamped to [0, 100]
func percent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	p := done * 100 / total
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// ParseContentRangeStart returns the first byte position of a Content-Range
// value. Both the RFC form "bytes 100-199/200" and the legacy
// "bytes=100-199/200" are accepted.
func ParseContentRangeStart(header string) (int64, error) {
	v := strings.TrimSpace(header)
	if len(v) < len("bytes") || !strings.EqualFold(v[:len("bytes")], "bytes") {
		return 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	v = strings.TrimLeft(v[len("bytes"):], "= ")

	dash := strings.IndexByte(v, '-')
	if dash <= 0 {
		return 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	start, err := strconv.ParseInt(strings.TrimSpace(v[:dash]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if start < 0 {
		return 0, fmt.Errorf("invalid start byte: %d", start)
	}
	return start, nil
}

// asIOError wraps err as a domain I/O error unless it already is one
func asIOError(op, path string, err error) error {
	if domain.IsIOError(err) {
		return err
	}
	return domain.NewIOError(op, path, err)
}
