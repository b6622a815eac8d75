package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/showmore/internal/crawl"
	"github.com/abelbrown/showmore/internal/otel"
)

// crawlReport is the -json output of the crawl command.
type crawlReport struct {
	Session     string   `json:"session"`
	Source      string   `json:"source"`
	Direction   string   `json:"direction"`
	Status      string   `json:"status"`
	CanLoadMore bool     `json:"can_load_more"`
	Results     []string `json:"results"`
}

func runCrawl() {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "Crawl direction: both, prev or next (default from config)")
	budget := fs.Int("budget", 0, "Images per pass (default from config)")
	more := fs.Int("more", 0, "Extra load-more passes after the first")
	asJSON := fs.Bool("json", false, "Print a JSON report instead of one URL per line")
	verbose := fs.Bool("v", false, "Log every probe to stderr")
	fs.Parse(os.Args[1:])

	source := requireArg(fs.Args(), "an image URL")
	initStderrLogging(*verbose)

	cfg := loadConfig()
	if *budget > 0 {
		cfg.Crawl.Budget = *budget
	}
	if *dirFlag != "" {
		cfg.Crawl.Direction = *dirFlag
	}
	dir, err := crawl.ParseDirection(cfg.Crawl.Direction)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signalContext()
	defer stop()

	events := openEvents()
	defer events.Close()

	session := crawl.NewSession(source, dir, newProber(cfg), crawlConfig(cfg), func(e crawl.Event) {
		if !*verbose {
			return
		}
		switch e.Kind {
		case crawl.EventFound:
			fmt.Fprintf(os.Stderr, "  + %-4s %s\n", e.Direction, e.URL)
		case crawl.EventMiss:
			fmt.Fprintf(os.Stderr, "  - %-4s %s\n", e.Direction, e.URL)
		case crawl.EventExhausted:
			fmt.Fprintf(os.Stderr, "  %s exhausted\n", e.Direction)
		}
	})

	events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindCrawlStart,
		Comp:    "cli",
		CrawlID: session.ID(),
		URL:     source,
		Dir:     string(dir),
	})

	start := time.Now()
	err = session.Run(ctx)
	for i := 0; err == nil && i < *more && session.CanLoadMore(); i++ {
		err = session.LoadMore(ctx)
	}
	journalCrawl(events, session, start, err)

	if err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}

	results := session.Results()
	if *asJSON {
		report := crawlReport{
			Session:     session.ID(),
			Source:      source,
			Direction:   string(dir),
			Status:      session.Status().String(),
			CanLoadMore: session.CanLoadMore(),
			Results:     results,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fatal(err)
		}
		return
	}

	for _, u := range results {
		fmt.Println(u)
	}
	fmt.Fprintf(os.Stderr, "%d images (%s)\n", len(results), session.Status())
}

func journalCrawl(events *otel.Logger, s *crawl.Session, start time.Time, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		events.Emit(otel.Event{
			Level:   otel.LevelError,
			Kind:    otel.KindCrawlError,
			Comp:    "cli",
			CrawlID: s.ID(),
			URL:     s.Source(),
			Err:     err.Error(),
		})
	}
	events.Emit(otel.Event{
		Level:   otel.LevelInfo,
		Kind:    otel.KindCrawlComplete,
		Comp:    "cli",
		CrawlID: s.ID(),
		URL:     s.Source(),
		Dur:     time.Since(start),
		Count:   len(s.Results()),
		Msg:     s.Status().String(),
	})
}
