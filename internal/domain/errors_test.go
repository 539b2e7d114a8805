package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
		want   string
	}{
		{name: "with status line", code: 404, status: "404 Not Found", want: "unexpected http status 404 (404 Not Found)"},
		{name: "status text fallback", code: 500, status: "", want: "unexpected http status 500 (Internal Server Error)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHTTPError(tt.code, tt.status).Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	wrapped := fmt.Errorf("download: %w", NewHTTPError(503, ""))

	if !IsHTTPError(wrapped) {
		t.Error("IsHTTPError(wrapped) = false")
	}
	if got := HTTPStatus(wrapped); got != 503 {
		t.Errorf("HTTPStatus(wrapped) = %d, want 503", got)
	}
	if got := HTTPStatus(errors.New("plain")); got != 0 {
		t.Errorf("HTTPStatus(plain) = %d, want 0", got)
	}
	if IsHTTPError(nil) {
		t.Error("IsHTTPError(nil) = true")
	}
}

func TestIOError(t *testing.T) {
	underlying := errors.New("disk full")

	tests := []struct {
		name string
		err  *IOError
		want string
	}{
		{name: "full", err: NewIOError("write", "/tmp/a", underlying), want: "write /tmp/a: disk full"},
		{name: "no path", err: NewIOError("read", "", underlying), want: "read: disk full"},
		{name: "no cause", err: NewIOError("open", "/tmp/a", nil), want: "open /tmp/a"},
		{name: "empty", err: &IOError{}, want: "i/o failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}

	err := fmt.Errorf("outer: %w", NewIOError("write", "/tmp/a", underlying))
	if !IsIOError(err) {
		t.Error("IsIOError(wrapped) = false")
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is(err, underlying) = false")
	}
}

func TestRangeMismatchError(t *testing.T) {
	err := fmt.Errorf("resume: %w", &RangeMismatchError{Expected: 1000, Got: 2000})

	if !IsRangeMismatch(err) {
		t.Fatal("IsRangeMismatch() = false")
	}
	if !strings.Contains(err.Error(), "2000") || !strings.Contains(err.Error(), "1000") {
		t.Errorf("Error() = %q, want both offsets", err.Error())
	}
	if IsRangeMismatch(NewIOError("x", "", nil)) {
		t.Error("IsRangeMismatch(IOError) = true")
	}
}

func TestNewCancelledError(t *testing.T) {
	err := NewCancelledError(context.Canceled)
	if !IsCancelled(err) {
		t.Error("IsCancelled() = false")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("errors.Is(err, context.Canceled) = false")
	}

	deadline := NewCancelledError(context.DeadlineExceeded)
	if !errors.Is(deadline, context.DeadlineExceeded) || !IsCancelled(deadline) {
		t.Errorf("deadline error = %v", deadline)
	}

	if got := NewCancelledError(nil); got != ErrCancelled {
		t.Errorf("NewCancelledError(nil) = %v, want ErrCancelled", got)
	}
}

func TestNewInvalidURLError(t *testing.T) {
	cause := errors.New("missing host")
	err := NewInvalidURLError("http://", cause)
	if !errors.Is(err, ErrInvalidURL) {
		t.Error("errors.Is(err, ErrInvalidURL) = false")
	}
	if !strings.Contains(err.Error(), "missing host") {
		t.Errorf("Error() = %q, want cause", err.Error())
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{raw: "http://example.com/file.bin", wantErr: false},
		{raw: "HTTPS://example.com:8443/a?b=c", wantErr: false},
		{raw: "", wantErr: true},
		{raw: "   ", wantErr: true},
		{raw: "example.com/file", wantErr: true},
		{raw: "ftp://example.com/file", wantErr: true},
		{raw: "http:///file", wantErr: true},
		{raw: "http://[::1]:namedport", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := ParseRemoteURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRemoteURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("error %v does not wrap ErrInvalidURL", err)
			}
		})
	}
}

func TestDownloadTarget_Validate(t *testing.T) {
	if _, err := NewDownloadTarget("http://example.com/a", "a.bin"); err != nil {
		t.Errorf("NewDownloadTarget() error = %v", err)
	}

	_, err := NewDownloadTarget("http://example.com/a", " ")
	if !errors.Is(err, ErrInvalidInput) || !IsIOError(err) {
		t.Errorf("empty destination error = %v, want IOError wrapping ErrInvalidInput", err)
	}

	_, err = NewDownloadTarget("nope", "a.bin")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("bad url error = %v, want ErrInvalidURL", err)
	}
}

func TestDownloadRecord_MarkFinished(t *testing.T) {
	rec := &DownloadRecord{Status: StatusInProgress, StartedAt: time.Now().Add(-time.Second)}
	if rec.Duration() != 0 {
		t.Errorf("Duration() before finish = %v, want 0", rec.Duration())
	}

	rec.MarkFinished(StatusFailed, "boom")
	if rec.Status != StatusFailed || rec.Error != "boom" || rec.FinishedAt == nil {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Duration() < time.Second {
		t.Errorf("Duration() = %v, want >= 1s", rec.Duration())
	}
}
