package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vertextoedge/resumefetch/internal/adapter/filesystem"
	"github.com/vertextoedge/resumefetch/internal/adapter/httpclient"
	"github.com/vertextoedge/resumefetch/internal/domain"
	"github.com/vertextoedge/resumefetch/internal/domain/event"
	"github.com/vertextoedge/resumefetch/internal/service/downloader"
)

func newFileServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeTestConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf("logging:\n  level: error\ndatabase:\n  path: %q\n", dbPath)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_DownloadAndResume(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 500)
	server := newFileServer(t, content)
	outDir := filepath.Join(t.TempDir(), "out")
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfgPath := writeTestConfig(t, dbPath)

	var stderr bytes.Buffer
	code := run([]string{"-config", cfgPath, "-o", outDir, server.URL + "/files/report%20final.bin"}, &bytes.Buffer{}, &stderr)
	if code != exitOK {
		t.Fatalf("run() = %d, stderr: %s", code, stderr.String())
	}

	dest := filepath.Join(outDir, "report final.bin")
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("downloaded content mismatch")
	}

	// Truncate and fetch again to exercise the range path
	if err := os.Truncate(dest, 1234); err != nil {
		t.Fatal(err)
	}
	if code := run([]string{"-config", cfgPath, "-o", outDir, server.URL + "/files/report%20final.bin"}, &bytes.Buffer{}, &stderr); code != exitOK {
		t.Fatalf("resume run() = %d, stderr: %s", code, stderr.String())
	}
	got, _ = os.ReadFile(dest)
	if !bytes.Equal(got, content) {
		t.Error("resumed content mismatch")
	}

	// Third run finds the file complete
	stderr.Reset()
	if code := run([]string{"-config", cfgPath, "-o", outDir, server.URL + "/files/report%20final.bin"}, &bytes.Buffer{}, &stderr); code != exitOK {
		t.Fatalf("complete run() = %d", code)
	}
	if !strings.Contains(stderr.String(), "already complete") {
		t.Errorf("stderr = %q, want already complete", stderr.String())
	}

	var stdout bytes.Buffer
	if code := run([]string{"history", "-config", cfgPath, "-n", "10"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("history run() = %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "3 downloads: 3 completed") {
		t.Errorf("history output = %s", out)
	}
	if !strings.Contains(out, domain.StatusAlreadyComplete) {
		t.Errorf("history output missing already_complete row: %s", out)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	server := newFileServer(t, []byte("x"))
	cfgPath := writeTestConfig(t, "")
	outDir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no url", args: []string{"-config", cfgPath}, want: exitUsage},
		{name: "bad flag", args: []string{"-bogus"}, want: exitUsage},
		{name: "invalid url", args: []string{"-config", cfgPath, "ftp://host/file"}, want: exitUsage},
		{name: "http 404", args: []string{"-config", cfgPath, "-o", outDir, server.URL + "/missing"}, want: exitHTTPError},
		{name: "history disabled", args: []string{"history", "-config", cfgPath}, want: exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args, &bytes.Buffer{}, &bytes.Buffer{}); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{domain.NewCancelledError(context.Canceled), exitCancelled},
		{fmt.Errorf("wrap: %w", domain.NewHTTPError(500, "")), exitHTTPError},
		{domain.NewInvalidURLError("x", nil), exitUsage},
		{domain.NewIOError("write", "/tmp/x", errors.New("disk full")), exitIOError},
		{&domain.RangeMismatchError{Expected: 1, Got: 2}, exitIOError},
		{errors.New("other"), exitError},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://host/files/a.bin", "a.bin"},
		{"http://host/files/%u4F60%u597D.txt", "你好.txt"},
		{"http://host/files/a%3Fb.txt", "a_b.txt"},
		{"http://host/dir%2Fname.zip", "dir_name.zip"},
		{"http://host/", defaultFileName},
		{"http://host", defaultFileName},
		{"http://host/a.bin?token=1#frag", "a.bin"},
	}
	for _, tt := range tests {
		if got := fileNameFromURL(tt.raw); got != tt.want {
			t.Errorf("fileNameFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRun_StalledHeadDoesNotDelayDownload(t *testing.T) {
	content := []byte("payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			<-r.Context().Done()
			return
		}
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(server.Close)

	d := downloader.New(nil, httpclient.NewClient(nil), filesystem.NewManager(), event.NewInMemoryDispatcher(), zap.NewNop())

	start := time.Now()
	if size := lookupSize(context.Background(), d, server.URL+"/f.bin", 100*time.Millisecond); size != -1 {
		t.Errorf("lookupSize() = %d, want -1", size)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lookupSize() took %v", elapsed)
	}

	dest := filepath.Join(t.TempDir(), "f.bin")
	if _, err := d.Download(context.Background(), domain.DownloadTarget{RemoteURL: server.URL + "/f.bin", DestinationPath: dest}); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got, _ := os.ReadFile(dest); !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestLookupSize(t *testing.T) {
	server := newFileServer(t, bytes.Repeat([]byte("x"), 2048))
	d := downloader.New(nil, httpclient.NewClient(nil), filesystem.NewManager(), event.NewInMemoryDispatcher(), zap.NewNop())

	if size := lookupSize(context.Background(), d, server.URL+"/files/a.bin", time.Second); size != 2048 {
		t.Errorf("lookupSize(sized) = %d, want 2048", size)
	}
	if size := lookupSize(context.Background(), d, server.URL+"/missing", time.Second); size != -1 {
		t.Errorf("lookupSize(missing) = %d, want -1", size)
	}
}

func TestLogMetrics(t *testing.T) {
	m := event.NewMetricsHandler()
	m.Handle(event.NewDownloadStarted("id", "http://h/a", "/tmp/a", 0))
	m.Handle(event.NewDownloadCompleted("id", "http://h/a", "/tmp/a", 512, 0, 512, false, time.Second))

	core, logs := observer.New(zapcore.DebugLevel)
	logMetrics(zap.New(core), m)

	entries := logs.FilterMessage("download metrics").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d metrics entries, want 1", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("level = %v, want debug", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["downloads_started"] != int64(1) || fields["downloads_completed"] != int64(1) || fields["bytes_written"] != int64(512) {
		t.Errorf("fields = %v", fields)
	}
}
