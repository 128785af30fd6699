package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/btouchard/nbnotify/internal/api"
	"github.com/btouchard/nbnotify/internal/config"
	"github.com/btouchard/nbnotify/internal/events"
	nbmcp "github.com/btouchard/nbnotify/internal/mcp"
	"github.com/btouchard/nbnotify/internal/metrics"
	"github.com/btouchard/nbnotify/internal/notify"
	"github.com/btouchard/nbnotify/internal/store"
)

var version = "dev"

const cleanupInterval = time.Hour

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("nbnotify %s\n", version)
	case "check":
		cmdCheck(os.Args[2:])
	case "test":
		cmdTest(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: nbnotify <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the notification server\n")
	fmt.Fprintf(os.Stderr, "  check     Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  test      Send a test notification through the configured channels\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting nbnotify",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_path", cfg.Server.BasePath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
	fmt.Printf("  chat: %s (configured: %t)\n", cfg.Chat.Provider, cfg.Chat.Configured())
	fmt.Printf("  mail: configured: %t\n", cfg.Notify.Email != "")
}

func cmdTest(args []string) {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	only := fs.String("channel", "all", "channel to test: chat, mail or all")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	chat, mail, err := buildChannels(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "channel setup failed: %v\n", err)
		os.Exit(1)
	}

	eng := notify.NewEngine(nil, chat, mail)
	eng.SetDeliveryTimeout(cfg.Notify.DeliveryTimeout)
	rec := &testRecorder{}
	eng.SetRecorder(rec)

	req := notify.Request{
		CellID:         "nbnotify-test",
		Mode:           notify.ModeAlways,
		Chat:           *only == "all" || *only == "chat",
		Mail:           *only == "all" || *only == "mail",
		SuccessMessage: "This is a test notification.",
	}
	if err := eng.TriggerDirect(req, notify.Outcome{Success: true}); err != nil {
		fmt.Fprintf(os.Stderr, "test failed: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, d := range rec.deliveries {
		fmt.Printf("  %s: %s", d.Channel, d.Result)
		if d.Error != "" {
			fmt.Printf(" (%s)", d.Error)
			failed = true
		}
		fmt.Println()
	}
	if len(rec.deliveries) == 0 {
		fmt.Println("no channel selected")
	}
	if failed {
		os.Exit(1)
	}
}

// testRecorder collects deliveries for the test command.
type testRecorder struct {
	mu         sync.Mutex
	deliveries []notify.Delivery
}

func (r *testRecorder) RecordDelivery(d notify.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.Server.LogFile != "" {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   cfg.Server.LogFile,
			MaxSize:    cfg.Server.LogMaxSizeMB,
			MaxBackups: cfg.Server.LogMaxBackups,
			Compress:   true,
		}, &slog.HandlerOptions{Level: level}))
	}

	logger := slog.New(slog.NewMultiHandler(handlers...))
	slog.SetDefault(logger)
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- SQLite Store ---
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	slog.Info("database opened", "path", cfg.Database.Path)

	cleanup, err := store.StartCleanup(db, time.Duration(cfg.Database.RetentionDays)*24*time.Hour, cleanupInterval)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup.Shutdown() }()

	// --- Channels ---
	chat, mail, err := buildChannels(cfg)
	if err != nil {
		return err
	}

	// --- Engine ---
	m := metrics.New()
	eng := notify.NewEngine(notify.TimerScheduler{}, chat, mail)
	eng.SetGlobalTimeout(cfg.Notify.GlobalTimeout)
	eng.SetDeliveryTimeout(cfg.Notify.DeliveryTimeout)
	eng.SetRecorder(db)
	eng.SetMetrics(m)
	defer eng.Shutdown()

	slog.Info("channels ready",
		"chat", eng.ChatConfigured(),
		"chat_provider", cfg.Chat.Provider,
		"mail", eng.MailConfigured())

	// --- Event source ---
	deps := api.Deps{
		Engine:     eng,
		Deliveries: db,
		Capabilities: api.Capabilities{
			EventsListening: cfg.Events.Enabled,
			ChatConfigured:  eng.ChatConfigured(),
			MailConfigured:  eng.MailConfigured(),
		},
		MaxThreshold: cfg.Notify.MaxThreshold,
	}
	if cfg.Events.Enabled {
		bus := events.NewBus(cfg.Events.Workers, cfg.Events.Buffer)
		bus.Subscribe(eng.HandleEvent)
		defer bus.Close()
		deps.Events = bus
	}

	// --- HTTP Router ---
	r := api.NewRouter(api.NewServer(deps), api.RouterOptions{
		BasePath:          cfg.Server.BasePath,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","pending":%d}`, eng.Registry().Len())
	})
	r.Handle("/metrics", m.Handler())

	if cfg.MCP.Enabled {
		mcpServer := nbmcp.NewServer(&nbmcp.Deps{
			Engine:       eng,
			Pending:      eng.Registry(),
			Deliveries:   db,
			Version:      version,
			MaxThreshold: cfg.Notify.MaxThreshold,
		})
		eng.SetRecorder(notify.Recorders{db, nbmcp.NewNotifier(mcpServer)})
		r.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
		slog.Info("mcp endpoint enabled", "path", "/mcp")
	}

	// --- HTTP Server ---
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("nbnotify is ready", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
