package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/abelbrown/showmore/internal/extract"
	"github.com/abelbrown/showmore/internal/otel"
	"github.com/abelbrown/showmore/internal/store"
)

const bookmarkUsage = `Usage: showmore bookmark <add|list|rm|reset> [args]

  add <url>...        Record image URLs
  list [-json]        Print recorded images, oldest first
  rm <url|index>      Remove one image (index is 1-based, as printed by list)
  reset [-y]          Remove every recorded image
`

func runBookmark() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, bookmarkUsage)
		os.Exit(2)
	}
	sub := os.Args[1]
	args := os.Args[2:]

	st := openDB()
	defer st.Close()
	events := openEvents()
	defer events.Close()

	switch sub {
	case "add":
		bookmarkAdd(st, events, args)
	case "list", "ls":
		bookmarkList(st, args)
	case "rm", "remove":
		bookmarkRemove(st, events, args)
	case "reset":
		bookmarkReset(st, events, args)
	default:
		fmt.Fprintf(os.Stderr, "showmore bookmark: unknown subcommand %q\n\n", sub)
		fmt.Fprint(os.Stderr, bookmarkUsage)
		os.Exit(2)
	}
}

func bookmarkAdd(st *store.Store, events *otel.Logger, args []string) {
	if len(args) == 0 {
		fatal(errors.New("at least one URL is required"))
	}
	added, err := st.AddBookmarks(args, time.Now())
	if err != nil {
		fatal(err)
	}
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBookmarkAdd, Comp: "cli", Count: added})
	fmt.Printf("Added %d of %d (%d already recorded)\n", added, len(args), len(args)-added)
}

func bookmarkList(st *store.Store, args []string) {
	fs := flag.NewFlagSet("bookmark list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print as JSON")
	fs.Parse(args)

	marks, err := st.Bookmarks()
	if err != nil {
		fatal(err)
	}

	if *asJSON {
		type row struct {
			URL        string    `json:"url"`
			CapturedAt time.Time `json:"captured_at"`
		}
		rows := make([]row, len(marks))
		for i, b := range marks {
			rows[i] = row{URL: b.URL, CapturedAt: b.CapturedAt}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			fatal(err)
		}
		return
	}

	if len(marks) == 0 {
		fmt.Println("No bookmarks.")
		return
	}
	for i, b := range marks {
		fmt.Printf("%4d  %s  %s\n", i+1, b.CapturedAt.Local().Format("2006-01-02 15:04"), b.URL)
	}
}

func bookmarkRemove(st *store.Store, events *otel.Logger, args []string) {
	target := requireArg(args, "a URL or index")

	var removed string
	if n, err := strconv.Atoi(target); err == nil {
		removed, err = st.RemoveBookmarkAt(n - 1)
		if err != nil {
			fatal(err)
		}
	} else {
		if err := st.RemoveBookmark(target); err != nil {
			fatal(err)
		}
		removed = target
	}
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBookmarkRemove, Comp: "cli", URL: removed})
	fmt.Printf("Removed %s\n", removed)
}

func bookmarkReset(st *store.Store, events *otel.Logger, args []string) {
	fs := flag.NewFlagSet("bookmark reset", flag.ExitOnError)
	yes := fs.Bool("y", false, "Do not ask for confirmation")
	fs.Parse(args)

	if !*yes {
		fmt.Print("Remove every bookmark? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Cancelled.")
			return
		}
	}

	n, err := st.ResetBookmarks()
	if err != nil {
		fatal(err)
	}
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindBookmarkReset, Comp: "cli", Count: n})
	fmt.Printf("Removed %d bookmarks\n", n)
}

func runRecord() {
	sub := "status"
	if len(os.Args) > 1 {
		sub = os.Args[1]
	}

	st := openDB()
	defer st.Close()

	var (
		on  bool
		err error
	)
	switch sub {
	case "on":
		on, err = true, st.SetRecordingEnabled(true)
	case "off":
		on, err = false, st.SetRecordingEnabled(false)
	case "toggle":
		on, err = st.ToggleRecording()
	case "status":
		on, err = st.RecordingEnabled()
	default:
		fatal(fmt.Errorf("unknown record subcommand %q (want on, off, toggle or status)", sub))
	}
	if err != nil {
		fatal(err)
	}

	if on {
		fmt.Println("Recording: on")
	} else {
		fmt.Println("Recording: off")
	}
}

func runCapture() {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	fs.Parse(os.Args[1:])

	page := requireArg(fs.Args(), "a page URL")
	cfg := loadConfig()

	st := openDB()
	defer st.Close()
	events := openEvents()
	defer events.Close()

	on, err := st.RecordingEnabled()
	if err != nil {
		fatal(err)
	}
	if !on {
		fatal(errors.New("recording is off (run 'showmore record on' first)"))
	}

	ctx, stop := signalContext()
	defer stop()

	urls, err := extract.NewFetcher(cfg.Probe.Timeout(), cfg.Probe.UserAgent).PageImages(ctx, page)
	if err != nil {
		events.Error(otel.KindError, "cli", err)
		fatal(err)
	}
	added, err := st.AddBookmarks(urls, time.Now())
	if err != nil {
		fatal(err)
	}
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCapture, Comp: "cli", URL: page, Count: added})
	fmt.Printf("Found %d images on %s, recorded %d new\n", len(urls), page, added)
}
