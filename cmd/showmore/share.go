package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/showmore/internal/otel"
	"github.com/abelbrown/showmore/internal/share"
)

func runShare() {
	fs := flag.NewFlagSet("share", flag.ExitOnError)
	title := fs.String("title", share.DefaultTitle, "Collection title")
	description := fs.String("description", "", "Collection description")
	tags := fs.String("tags", "", "Comma-separated tags")
	private := fs.Bool("private", false, "Mark the collection private")
	fromBookmarks := fs.Bool("bookmarks", false, "Share recorded images instead of arguments")
	open := fs.Bool("open", false, "Open the link in the default browser")
	fs.Parse(os.Args[1:])

	urls := collectURLs(fs.Args(), *fromBookmarks)
	if len(urls) == 0 {
		fatal(errors.New("nothing to share"))
	}

	req := share.Request{
		URLs:        urls,
		Title:       *title,
		Description: *description,
	}
	for _, t := range strings.Split(*tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			req.Tags = append(req.Tags, t)
		}
	}
	if *private {
		req.Private = private
	}

	cfg := loadConfig()
	ctx, stop := signalContext()
	defer stop()
	events := openEvents()
	defer events.Close()

	start := time.Now()
	link, err := share.NewClient(cfg.Share.Endpoint, cfg.Share.Timeout()).Create(ctx, req)
	if err != nil {
		events.Error(otel.KindShareError, "cli", err)
		fatal(err)
	}
	events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindShareComplete,
		Comp:  "cli",
		Dur:   time.Since(start),
		Count: len(urls),
		URL:   link,
	})

	fmt.Println(link)
	if *open {
		if err := openInBrowser(link); err != nil {
			fatal(err)
		}
	}
}
