package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"pdfrelay/internal/api"
	"pdfrelay/internal/artifact"
	"pdfrelay/internal/config"
	"pdfrelay/internal/doctor"
	"pdfrelay/internal/expiry"
	"pdfrelay/internal/lock"
	"pdfrelay/internal/log"
	"pdfrelay/internal/orchestrator"
	"pdfrelay/internal/pdfinfo"
	"pdfrelay/internal/provider"
	"pdfrelay/internal/storage"
	"pdfrelay/internal/tui/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("pdfrelay version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pdfrelay - PDF transformation relay over a remote document provider

Usage:
  pdfrelay <command> [flags]

Commands:
  start     Start the HTTP service in foreground
  doctor    Validate configuration and environment
  watch     Live service status TUI
  version   Show version information
  help      Show this help message

Flags:
  --config <path>   Configuration file (optional; defaults + env otherwise)
  --api <url>       Service URL for watch (default http://localhost:3000)
`)
}

// loadConfig loads .env (if present) and then the YAML config.
func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()
	return config.Load(path)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")

	pidLock, err := lock.Acquire(cfg.Service.LockPath)
	if err != nil {
		logger.Error("failed to acquire instance lock", "error", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(ctx, cfg.Service.StatePath)
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		return 1
	}
	defer db.Close()

	store, err := artifact.NewStore(cfg.Artifacts.Root, log.WithComponent("artifact"))
	if err != nil {
		logger.Error("failed to initialize artifact store", "error", err)
		return 1
	}

	scheduler := expiry.New(db, store, cfg.Artifacts.SweepInterval, log.WithComponent("expiry"))
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start expiry scheduler", "error", err)
		return 1
	}
	defer scheduler.Stop()

	client := provider.NewHTTPClient(provider.Config{
		BaseURL:      cfg.Provider.BaseURL,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		PollInterval: cfg.Provider.PollInterval,
		AwaitTimeout: cfg.Provider.AwaitTimeout,
	})

	orch := orchestrator.New(client, store, scheduler, pdfinfo.NewProber(),
		cfg.Artifacts.TTL, log.WithComponent("orchestrator"))

	server := api.New(api.Config{
		Listen:         cfg.Service.Listen,
		PublicBaseURL:  cfg.Service.PublicBaseURL,
		MaxUploadBytes: cfg.Service.MaxUploadBytes,
	}, orch, store, scheduler, log.WithComponent("api"))

	logger.Info("pdfrelay starting",
		"version", version,
		"listen", cfg.Service.Listen,
		"artifact_ttl", cfg.Artifacts.TTL.String(),
	)

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("server exited", "error", err)
		return 1
	}
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if !result.Valid {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api", "http://localhost:3000", "pdfrelay service URL")
	_ = fs.Parse(args)

	program := tea.NewProgram(watch.New(*apiURL))
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		return 1
	}
	return 0
}
