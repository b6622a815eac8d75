package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"

	"github.com/abelbrown/showmore/internal/config"
	"github.com/abelbrown/showmore/internal/coord"
	"github.com/abelbrown/showmore/internal/crawl"
	"github.com/abelbrown/showmore/internal/extract"
	"github.com/abelbrown/showmore/internal/logging"
	"github.com/abelbrown/showmore/internal/otel"
	"github.com/abelbrown/showmore/internal/share"
	"github.com/abelbrown/showmore/internal/ui"
)

func runGallery() {
	fs := flag.NewFlagSet("gallery", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "Crawl direction: both, prev or next (default from config)")
	budget := fs.Int("budget", 0, "Images per pass (default from config)")
	debug := fs.Bool("debug", false, "Debug-level file logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: showmore gallery [flags] <url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	source := requireArg(fs.Args(), "an image URL")
	cfg := loadConfig()
	if *budget > 0 {
		cfg.Crawl.Budget = *budget
	}
	if *dirFlag != "" {
		cfg.Crawl.Direction = *dirFlag
	}
	runTUI(cfg, ui.ModeSequence, source, *debug)
}

func runBookmarksGallery() {
	fs := flag.NewFlagSet("bookmarks", flag.ExitOnError)
	debug := fs.Bool("debug", false, "Debug-level file logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: showmore bookmarks [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	runTUI(loadConfig(), ui.ModeBookmarks, "", *debug)
}

// runTUI wires the store, prober, detector and share client into the
// coordinator and runs the Bubble Tea program until the user quits.
func runTUI(cfg *config.Config, mode ui.Mode, source string, debug bool) {
	dir, err := crawl.ParseDirection(cfg.Crawl.Direction)
	if err != nil {
		fatal(err)
	}

	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	if err := logging.Init(level); err != nil {
		log.Fatalf("failed to init logging: %v", err)
	}
	defer logging.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := openDB()
	defer st.Close()

	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events := openEvents()
	if events == nil {
		events = otel.NewNullLogger()
	}
	events.SetRingBuffer(ring)
	if !debug && !otel.TraceEnabled() {
		// per-probe and per-key events stay in the overlay
		events.SetFileLevel(otel.LevelInfo)
	}
	defer events.Close()

	recording, err := st.RecordingEnabled()
	if err != nil {
		logging.Warn("read recording setting", "error", err)
	}
	onboarded, err := st.HasOnboarded()
	if err != nil {
		logging.Warn("read onboarding setting", "error", err)
	}

	coordinator := coord.New(coord.Options{
		Store:     st,
		Prober:    newProber(cfg),
		Detector:  newDetector(cfg),
		Sharer:    share.NewClient(cfg.Share.Endpoint, cfg.Share.Timeout()),
		Pages:     extract.NewFetcher(cfg.Probe.Timeout(), cfg.Probe.UserAgent),
		Events:    events,
		Crawl:     crawlConfig(cfg),
		Direction: dir,
	})

	app := ui.NewAppWithConfig(appConfig(coordinator, mode, source, onboarded, recording, ring, events))

	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindStartup,
		Comp:  "main",
		URL:   source,
		Msg:   fmt.Sprintf("mode=%s version=%s", mode, logging.Version),
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	coordinator.Start(ctx, program)

	if _, err := program.Run(); err != nil {
		logging.Error("program exited", "error", err)
	}

	cancel()
	coordinator.Wait()

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindShutdown, Comp: "main"})
}

// appConfig binds the UI's command hooks to the coordinator.
func appConfig(c *coord.Coordinator, mode ui.Mode, source string, onboarded, recording bool, ring *otel.RingBuffer, events *otel.Logger) ui.AppConfig {
	return ui.AppConfig{
		Mode:      mode,
		Source:    source,
		Onboarded: onboarded,
		Recording: recording,

		StartCrawl: func(url string) tea.Cmd {
			return c.Cmd(coord.StartCrawl{URL: url})
		},
		LoadMore:  func() tea.Cmd { return c.Cmd(coord.LoadMore{}) },
		StopCrawl: func() tea.Cmd { return c.Cmd(coord.StopCrawl{}) },
		DetectDuplicates: func(urls []string) tea.Cmd {
			return c.Cmd(coord.DetectDuplicates{URLs: urls})
		},
		LoadBookmarks: func() tea.Cmd { return c.Cmd(coord.LoadBookmarks{}) },
		AddBookmark: func(url string) tea.Cmd {
			return c.Cmd(coord.AddBookmark{URL: url})
		},
		RemoveBookmark: func(url string) tea.Cmd {
			return c.Cmd(coord.RemoveBookmark{URL: url})
		},
		Share: func(urls []string) tea.Cmd {
			return c.Cmd(coord.CreateShare{Request: share.Request{URLs: urls}})
		},
		ToggleRecording: func() tea.Cmd { return c.Cmd(coord.ToggleRecording{}) },
		MarkOnboarded:   func() tea.Cmd { return c.Cmd(coord.MarkOnboarded{}) },
		Open: func(url string) tea.Cmd {
			return func() tea.Msg {
				if err := openInBrowser(url); err != nil {
					return ui.Notice{Text: "open: " + err.Error(), Error: true}
				}
				return nil
			}
		},

		Obs: ui.ObsConfig{Ring: ring, Events: events},
	}
}
