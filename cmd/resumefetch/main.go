package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/resumefetch/internal/adapter/filesystem"
	"github.com/vertextoedge/resumefetch/internal/adapter/httpclient"
	"github.com/vertextoedge/resumefetch/internal/adapter/sqlite"
	"github.com/vertextoedge/resumefetch/internal/config"
	"github.com/vertextoedge/resumefetch/internal/domain"
	"github.com/vertextoedge/resumefetch/internal/domain/event"
	"github.com/vertextoedge/resumefetch/internal/logger"
	"github.com/vertextoedge/resumefetch/internal/progress"
	"github.com/vertextoedge/resumefetch/internal/service/downloader"
	"github.com/vertextoedge/resumefetch/internal/urlcodec"
)

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitHTTPError   = 3
	exitIOError     = 4
	exitCancelled   = 5
	defaultFileName = "download"
)

// sizeLookupTimeout bounds the HEAD request that labels progress output
const sizeLookupTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "history" {
		return runHistory(args[1:], stdout, stderr)
	}
	return runDownload(args, stderr)
}

func runDownload(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("resumefetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	outputDir := fs.String("o", "", "Output directory (overrides download.output_dir)")
	name := fs.String("name", "", "Output file name (default: last URL path segment)")
	unescape := fs.Bool("unescape", false, "Request the %-decoded URL instead of the raw one")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: resumefetch [-config file] [-o dir] [-name file] [-unescape] <url>")
		fmt.Fprintln(stderr, "       resumefetch history [-config file] [-n N]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	if err := initLogger(cfg); err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer logger.Sync()
	zapLogger := logger.GetZapLogger()

	rawURL := fs.Arg(0)
	if *unescape {
		rawURL = urlcodec.DecodeURL(rawURL)
	}
	u, err := domain.ParseRemoteURL(rawURL)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid URL: %v\n", err)
		return exitUsage
	}

	dir := cfg.Download.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}
	fileName := *name
	if fileName == "" {
		fileName = fileNameFromURL(fs.Arg(0))
	} else {
		fileName = filesystem.SanitizeFileName(fileName)
	}

	fsManager := filesystem.NewManager()
	if ok, err := fsManager.EnsureDirectory(dir); !ok {
		fmt.Fprintf(stderr, "Failed to create output directory %s: %v\n", dir, err)
		return exitIOError
	}
	dest := filepath.Join(dir, fileName)

	dispatcher := event.NewInMemoryDispatcher()
	dispatcher.OnError(func(e event.DomainEvent, err error) {
		zapLogger.Warn("event handler failed", zap.String("event", e.EventName()), zap.Error(err))
	})
	dispatcher.Subscribe(event.NewLoggingHandler(zapLogger))
	metrics := event.NewMetricsHandler()
	dispatcher.Subscribe(metrics)
	defer logMetrics(zapLogger, metrics)

	if cfg.Database.HistoryEnabled() {
		store, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			zapLogger.Error("history disabled, failed to open database",
				zap.String("path", cfg.Database.Path), zap.Error(err))
		} else {
			defer store.Close()
			dispatcher.Subscribe(event.NewHistoryHandler(store))
		}
	}

	client := httpclient.NewClient(&httpclient.ClientConfig{
		UserAgent: cfg.Download.UserAgent,
		Logger:    zapLogger,
	})
	d := downloader.New(
		&downloader.Config{BufferSize: cfg.Download.BufferSize},
		client,
		fsManager,
		dispatcher,
		zapLogger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var opts []progress.Option
	if size := lookupSize(ctx, d, u.String(), sizeLookupTimeout); size > 0 {
		opts = append(opts, progress.WithSize(size))
	}
	d.AddObserver(progress.NewLogReporter(zapLogger, cfg.Progress.GetLogInterval(), fileName, opts...))

	zapLogger.Info("starting download",
		zap.String("version", config.Version),
		zap.String("url", u.String()),
		zap.String("path", dest))

	target, err := domain.NewDownloadTarget(u.String(), dest)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid download target: %v\n", err)
		return exitCode(err)
	}

	result, err := d.Download(ctx, target)
	if err != nil {
		fmt.Fprintf(stderr, "Download failed: %v\n", err)
		return exitCode(err)
	}

	if result.AlreadyComplete {
		fmt.Fprintf(stderr, "%s is already complete\n", dest)
	} else {
		fmt.Fprintf(stderr, "Saved %s (%s written)\n", dest, humanize.IBytes(uint64(result.BytesWritten)))
	}
	return exitOK
}

func runHistory(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file")
	limit := fs.Int("n", 20, "Number of records to show")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}
	if !cfg.Database.HistoryEnabled() {
		fmt.Fprintln(stderr, "History is disabled: set database.path")
		return exitUsage
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open database: %v\n", err)
		return exitIOError
	}
	defer store.Close()

	records, err := store.ListRecent(*limit)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to list history: %v\n", err)
		return exitIOError
	}
	stats, err := store.GetStats()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read history stats: %v\n", err)
		return exitIOError
	}

	printHistory(stdout, records, stats)
	return exitOK
}

func printHistory(w io.Writer, records []*domain.DownloadRecord, stats *domain.HistoryStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tWRITTEN\tFROM\tDURATION\tPATH")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(rec.StartedAt),
			rec.Status,
			humanize.IBytes(uint64(rec.BytesWritten)),
			humanize.IBytes(uint64(rec.ResumedFrom)),
			rec.Duration().Round(time.Millisecond),
			rec.Path)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d downloads: %d completed, %d failed, %d cancelled, %d in progress, %s written\n",
		stats.Total, stats.Completed, stats.Failed, stats.Cancelled, stats.InProgress,
		humanize.IBytes(uint64(stats.BytesWritten)))
}

// lookupSize asks the server for the resource size, giving up after timeout.
// It returns -1 when the size is unknown.
func lookupSize(ctx context.Context, d *downloader.Downloader, rawURL string, timeout time.Duration) int64 {
	sizeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	size, err := d.GetDownloadSize(sizeCtx, rawURL)
	if err != nil {
		return -1
	}
	return size
}

func logMetrics(l *zap.Logger, m *event.MetricsHandler) {
	counters := m.GetMetrics()
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Int64(k, counters[k]))
	}
	l.Debug("download metrics", fields...)
}

func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}

// fileNameFromURL decodes the last path segment of rawURL and makes it safe
// to use as a file name. rawURL may carry %u escapes that net/url rejects.
func fileNameFromURL(rawURL string) string {
	p := rawURL
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+len("://"):]
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	i := strings.IndexByte(p, '/')
	if i < 0 {
		return defaultFileName
	}
	p = p[i:]
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	decoded := filesystem.SanitizeFileName(urlcodec.DecodeURL(p))
	return filesystem.FileNameFromURLPath(decoded, defaultFileName)
}

func exitCode(err error) int {
	var httpErr *domain.HTTPError
	switch {
	case err == nil:
		return exitOK
	case domain.IsCancelled(err):
		return exitCancelled
	case errors.As(err, &httpErr):
		return exitHTTPError
	case errors.Is(err, domain.ErrInvalidURL):
		return exitUsage
	case domain.IsIOError(err), domain.IsRangeMismatch(err):
		return exitIOError
	default:
		return exitError
	}
}
