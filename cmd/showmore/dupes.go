package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/showmore/internal/otel"
)

func runDupes() {
	fs := flag.NewFlagSet("dupes", flag.ExitOnError)
	fromBookmarks := fs.Bool("bookmarks", false, "Check recorded images instead of arguments")
	threshold := fs.Float64("threshold", 0, "Similarity threshold in (0,1] (default from config)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	if *threshold > 0 {
		cfg.Dedup.Threshold = *threshold
	}
	urls := collectURLs(fs.Args(), *fromBookmarks)
	if len(urls) < 2 {
		fmt.Println("Need at least two images.")
		return
	}

	ctx, stop := signalContext()
	defer stop()
	events := openEvents()
	defer events.Close()

	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDedupStart, Comp: "cli", Count: len(urls)})
	start := time.Now()

	res, err := newDetector(cfg).Detect(ctx, urls, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rhashing %d/%d", done, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		events.Error(otel.KindDedupError, "cli", err)
		fatal(err)
	}
	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindDedupComplete,
		Comp:  "cli",
		Dur:   time.Since(start),
		Count: res.Duplicates(),
	})

	if len(res.Groups) == 0 {
		fmt.Printf("No duplicates among %d images.\n", res.Fingerprinted)
	}
	for i, g := range res.Groups {
		fmt.Printf("Group %d (%d images)\n", i+1, len(g.Members))
		for _, m := range g.Members {
			marker := " "
			if m == g.Representative {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, m)
		}
	}
	if len(res.Failed) > 0 {
		fmt.Printf("\nCould not decode %d images:\n", len(res.Failed))
		for _, u := range res.Failed {
			fmt.Printf("  %s\n", truncate(u, 100))
		}
	}
}

// collectURLs returns the URLs named by args, with "-" reading one URL
// per line from stdin. fromBookmarks replaces args with the store's list.
func collectURLs(args []string, fromBookmarks bool) []string {
	if fromBookmarks {
		st := openDB()
		defer st.Close()
		urls, err := st.BookmarkURLs()
		if err != nil {
			fatal(err)
		}
		return urls
	}

	var urls []string
	for _, a := range args {
		if a == "-" {
			urls = append(urls, readLines(os.Stdin)...)
			continue
		}
		urls = append(urls, a)
	}
	return urls
}

func readLines(r io.Reader) []string {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
