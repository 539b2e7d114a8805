package port

import (
	"context"
	"net/http"
)

// Fetcher defines the HTTP operations the downloader needs
type Fetcher interface {
	// Get issues a GET for url. When rangeStart >= 0 a "Range: bytes=<start>-"
	// header is sent. The caller must close the response body.
	Get(ctx context.Context, url string, rangeStart int64) (*http.Response, error)

	// ContentLength performs a HEAD request and returns Content-Length,
	// or -1 when the server does not report one
	ContentLength(ctx context.Context, url string) (int64, error)
}
