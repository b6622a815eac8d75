package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	charmlog "github.com/charmbracelet/log"

	"github.com/abelbrown/showmore/internal/config"
	"github.com/abelbrown/showmore/internal/crawl"
	"github.com/abelbrown/showmore/internal/dedup"
	"github.com/abelbrown/showmore/internal/logging"
	"github.com/abelbrown/showmore/internal/otel"
	"github.com/abelbrown/showmore/internal/probe"
	"github.com/abelbrown/showmore/internal/store"
)

// dataDir returns ~/.showmore/, creating it if needed.
func dataDir() string {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}
	return dir
}

// dbPath returns the path to showmore.db.
func dbPath() string {
	return filepath.Join(dataDir(), "showmore.db")
}

// eventLogPath returns the path to showmore.events.jsonl.
func eventLogPath() string {
	return filepath.Join(dataDir(), otel.EventsFile)
}

// openDB opens the store or fatals.
func openDB() *store.Store {
	st, err := store.Open(dbPath())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return st
}

// loadConfig reads the config file or fatals.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// openEvents opens the event journal. A failure is reported and the
// command continues without one.
func openEvents() *otel.Logger {
	ev, err := otel.OpenFile(eventLogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return nil
	}
	return ev
}

// initStderrLogging sends log output to stderr for one-shot commands.
func initStderrLogging(verbose bool) {
	level := charmlog.WarnLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	logging.InitWriter(os.Stderr, level)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newProber(cfg *config.Config) *probe.Prober {
	cache := probe.NewCache(cfg.Probe.CacheTTL(), cfg.Probe.CacheSize, nil)
	return probe.New(probe.Config{
		Timeout:           cfg.Probe.Timeout(),
		UserAgent:         cfg.Probe.UserAgent,
		RequestsPerSecond: cfg.Probe.RequestsPerSecond,
	}, cache)
}

func newDetector(cfg *config.Config) *dedup.Detector {
	return dedup.NewDetector(dedup.NewHTTPDecoder(0, cfg.Probe.UserAgent), dedup.Options{
		HashSize:    cfg.Dedup.HashSize,
		Threshold:   cfg.Dedup.Threshold,
		Concurrency: cfg.Dedup.Concurrency,
	})
}

func crawlConfig(cfg *config.Config) crawl.Config {
	return crawl.Config{
		Budget:        cfg.Crawl.Budget,
		MissTolerance: cfg.Crawl.MissTolerance,
		MinDelay:      cfg.Crawl.MinDelay(),
		MaxDelay:      cfg.Crawl.MaxDelay(),
	}
}

// requireArg returns the first positional argument or exits with usage.
func requireArg(args []string, what string) string {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintf(os.Stderr, "error: %s is required\n", what)
		os.Exit(2)
	}
	return strings.TrimSpace(args[0])
}

// fatal prints err and exits.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// openInBrowser launches the OS opener for url.
func openInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
