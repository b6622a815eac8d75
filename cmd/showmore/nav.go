package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abelbrown/showmore/internal/crawl"
	"github.com/abelbrown/showmore/internal/sequence"
)

// runNeighbor prints the next or previous URL. which is "next" or "prev".
func runNeighbor(which string) {
	fs := flag.NewFlagSet(which, flag.ExitOnError)
	open := fs.Bool("open", false, "Open the URL in the default browser")
	noCheck := fs.Bool("no-check", false, "Skip the padded-form probe across decade boundaries")
	fs.Parse(os.Args[1:])

	raw := requireArg(fs.Args(), "a URL")
	d := sequence.Up
	if which == "prev" {
		d = sequence.Down
	}

	var p crawl.Prober
	if !*noCheck {
		p = newProber(loadConfig())
	}

	ctx, stop := signalContext()
	defer stop()

	url, err := crawl.Neighbor(ctx, p, raw, d)
	if err != nil {
		fatal(err)
	}
	fmt.Println(url)

	if *open {
		if err := openInBrowser(url); err != nil {
			fatal(err)
		}
	}
}
