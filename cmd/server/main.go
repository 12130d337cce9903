package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/inkwell/internal/config"
	"github.com/rpggio/inkwell/internal/domain/account"
	"github.com/rpggio/inkwell/internal/domain/novel"
	"github.com/rpggio/inkwell/internal/domain/session"
	"github.com/rpggio/inkwell/internal/domain/settings"
	"github.com/rpggio/inkwell/internal/mcp"
	"github.com/rpggio/inkwell/internal/metrics"
	"github.com/rpggio/inkwell/internal/notify"
	"github.com/rpggio/inkwell/internal/render"
	"github.com/rpggio/inkwell/internal/sqlite"
	"github.com/rpggio/inkwell/internal/transport"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	store := sqlite.NewKVStore(db)
	events := notify.NewBroadcaster(logger)
	events.SetObserver(collector)
	defer events.Close()

	settingsSvc := settings.NewService(store, events, logger)
	accountSvc := account.NewService(store, settingsSvc, account.NewBcryptHasher(cfg.Auth.BcryptCost), events, logger)
	sessionSvc := session.NewService(store, accountSvc, collector, logger)
	projectRepo := novel.NewKVRepository(store, logger)
	accountSvc.SetPurger(projectRepo)
	projectSvc := novel.NewService(nil, projectRepo, render.New(), events, collector, logger)

	var exports novel.Downloader
	if cfg.Export.Dir != "" {
		exports = novel.FileDownloader{Dir: cfg.Export.Dir}
	}

	handler := mcp.NewHandler(mcp.Services{
		Sessions: sessionSvc,
		Projects: projectSvc,
		Accounts: accountSvc,
		Settings: settingsSvc,
		Events:   events,
		Exports:  exports,
		Recorder: collector,
		Logger:   logger,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Handler:       handler,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.PollInterval > 0 {
		poller := notify.NewPoller(store, events, logger)
		poller.Watch(settings.Key, notify.TopicSettings)
		poller.Watch(account.UsersKey, notify.TopicUsers)
		if err := watchProjects(ctx, poller, store); err != nil {
			logger.Warn("failed to list projects for polling", "error", err)
		}
		go poller.Start(ctx, cfg.Sync.PollInterval)
	}

	// Branch based on transport mode
	if cfg.Transport.Mode == config.TransportStdio {
		runStdioMode(ctx, logger, mcpServer)
		return
	}

	router := transport.NewServer(transport.Options{
		Handler:  handler,
		Sessions: sessionSvc,
		Projects: projectSvc,
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(r *http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{
				Stateless:      false,
				SessionTimeout: 30 * time.Minute,
			},
		),
		Metrics:  metrics.Handler(registry),
		Recorder: collector,
		Logger:   logger,
	})
	runHTTPMode(ctx, logger, router, cfg.Server.Host, cfg.Server.Port)
}

// watchProjects polls every project that exists at startup. Projects
// created later publish their own changes in-process.
func watchProjects(ctx context.Context, poller *notify.Poller, store *sqlite.KVStore) error {
	keys, err := store.List(ctx, novel.ProjectKeyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		poller.Watch(key, notify.ProjectTopic(key[len(novel.ProjectKeyPrefix):]))
	}
	return nil
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "session", mcp.DefaultStdioSession)

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	return ensureParentDir(path)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maxLogSizeBytes is the size at which the log file is rotated to
// "<path>.1", replacing any earlier rotation.
const maxLogSizeBytes = 5 * 1024 * 1024

type logFileWriter struct {
	path string
	mu   sync.Mutex
	file *os.File
	size int64
}

func newLogFileWriter(path string) (*logFileWriter, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	w := &logFileWriter{path: path}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *logFileWriter) open() error {
	w.file = nil
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	w.file = file
	w.size = info.Size()
	return nil
}

func (w *logFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil && w.size+int64(len(p)) > maxLogSizeBytes && w.size > 0 {
		// A failed rotation keeps writing to whichever file is open.
		_ = w.rotate()
	}
	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate moves the current file aside and starts a new one. When the move
// fails the current path is reopened.
func (w *logFileWriter) rotate() error {
	closeErr := w.file.Close()
	w.file = nil
	if err := os.Rename(w.path, w.path+".1"); err != nil {
		return errors.Join(closeErr, err, w.open())
	}
	return errors.Join(closeErr, w.open())
}

func (w *logFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
