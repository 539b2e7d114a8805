package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/resumefetch/internal/domain"
	"github.com/vertextoedge/resumefetch/internal/port"
)

// Timeout policy for every connection made by the client.
const (
	ConnectTimeout = 14 * time.Second
	ReadTimeout    = 20 * time.Second
)

// ErrReadTimeout is returned by a response body when no data arrives within
// the read timeout
var ErrReadTimeout = errors.New("http: read timeout")

// Client is an HTTP client for single-stream downloads
type Client struct {
	httpClient  *http.Client
	userAgent   string
	readTimeout time.Duration
	logger      *zap.Logger
}

// Ensure Client implements port.Fetcher
var _ port.Fetcher = (*Client)(nil)

// ClientConfig contains optional client configuration
type ClientConfig struct {
	UserAgent string
	Logger    *zap.Logger

	// connectTimeout and readTimeout override the policy constants in tests
	connectTimeout time.Duration
	readTimeout    time.Duration
}

// NewClient creates a new download client
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	connectTimeout := cfg.connectTimeout
	if connectTimeout <= 0 {
		connectTimeout = ConnectTimeout
	}
	readTimeout := cfg.readTimeout
	if readTimeout <= 0 {
		readTimeout = ReadTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,

		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,

		// Byte offsets must refer to the stored representation
		DisableCompression: true,

		// Response header timeout (not total download timeout)
		ResponseHeaderTimeout: readTimeout,

		ForceAttemptHTTP2: true,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   0, // No overall deadline for downloads
		},
		userAgent:   cfg.UserAgent,
		readTimeout: readTimeout,
		logger:      logger,
	}
}

// newRequest builds a request bound to ctx
func (c *Client) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, domain.NewInvalidURLError(rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// Get issues a GET with an optional open-ended Range header. The returned
// body fails with ErrReadTimeout if a read stalls for longer than the read
// timeout.
func (c *Client) Get(ctx context.Context, rawURL string, rangeStart int64) (*http.Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := c.newRequest(reqCtx, http.MethodGet, rawURL)
	if err != nil {
		cancel()
		return nil, err
	}
	if rangeStart >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rangeStart))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	resp.Body = newIdleTimeoutBody(resp.Body, c.readTimeout, cancel)
	return resp, nil
}

// ContentLength performs a HEAD request and returns the reported size
func (c *Client) ContentLength(ctx context.Context, rawURL string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodHead, rawURL)
	if err != nil {
		return -1, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return -1, fmt.Errorf("head request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return -1, domain.NewHTTPError(resp.StatusCode, resp.Status)
	}
	return resp.ContentLength, nil
}

// FetchJSON performs a GET and decodes the body as a JSON object. Any
// failure, a non-200 status or a body that is not an object yields an
// empty map.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, headers map[string]string) map[string]any {
	empty := map[string]any{}

	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		c.logger.Debug("fetch json: bad request", zap.String("url", rawURL), zap.Error(err))
		return empty
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("fetch json: request failed", zap.String("url", rawURL), zap.Error(err))
		return empty
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("fetch json: unexpected status",
			zap.String("url", rawURL),
			zap.Int("status_code", resp.StatusCode))
		return empty
	}

	var obj map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil || obj == nil {
		c.logger.Debug("fetch json: failed to decode response", zap.String("url", rawURL), zap.Error(err))
		return empty
	}
	return obj
}

// idleTimeoutBody cancels the request when a single Read waits longer than
// timeout. Only time spent inside Read is measured.
type idleTimeoutBody struct {
	rc      io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc

	mu       sync.Mutex
	timedOut bool
	closed   bool
}

func newIdleTimeoutBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	b := &idleTimeoutBody{rc: rc, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, b.expire)
	b.timer.Stop()
	return b
}

func (b *idleTimeoutBody) expire() {
	b.mu.Lock()
	if !b.closed {
		b.timedOut = true
	}
	b.mu.Unlock()
	b.cancel()
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.rc.Read(p)
	b.timer.Stop()

	b.mu.Lock()
	timedOut := b.timedOut
	b.mu.Unlock()

	if timedOut {
		if err == nil || err == io.EOF {
			err = context.DeadlineExceeded
		}
		return n, fmt.Errorf("%w after %s: %v", ErrReadTimeout, b.timeout, err)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.timer.Stop()
	err := b.rc.Close()
	b.cancel()
	return err
}
