// Command showmore finds the rest of a numbered image sequence and keeps a
// list of images worth coming back to.
//
// Usage:
//
//	showmore gallery <url>        Crawl a sequence and browse it
//	showmore bookmarks            Browse recorded images
//	showmore crawl <url>          Crawl and print the sequence
//	showmore parse <url>          Show how a URL splits around its number
//	showmore next|prev <url>      Print the neighbouring URL
//	showmore bookmark ...         Add, list, remove or reset bookmarks
//	showmore record ...           Turn recording on or off
//	showmore capture <page>       Record every image on a page
//	showmore dupes [urls]         Group near-identical images
//	showmore share [urls]         Publish a collection
//	showmore events               JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `showmore - find the rest of an image sequence

Usage:
  showmore <command> [flags] [args]

Commands:
  gallery     Crawl the sequence around <url> and browse it (TUI)
  bookmarks   Browse recorded images (TUI)
  crawl       Crawl the sequence around <url> and print it
  parse       Show how <url> splits around its number
  next        Print the URL after <url>
  prev        Print the URL before <url>
  bookmark    add|list|rm|reset recorded images
  record      on|off|toggle|status for recording
  capture     Record every image on a page (recording must be on)
  dupes       Group near-identical images
  share       Publish a collection and print its link
  events      JSONL event log viewer

Environment:
  SHOWMORE_SHARE_ENDPOINT  Share service endpoint
  SHOWMORE_BUDGET          Images per crawl pass
  SHOWMORE_USER_AGENT      User-Agent for probes and downloads
  SHOWMORE_TRACE           Journal every UI message

Configuration is read from ~/.showmore/config.json.
Run 'showmore <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "gallery":
		runGallery()
	case "bookmarks":
		runBookmarksGallery()
	case "crawl":
		runCrawl()
	case "parse":
		runParse()
	case "next":
		runNeighbor("next")
	case "prev":
		runNeighbor("prev")
	case "bookmark":
		runBookmark()
	case "record":
		runRecord()
	case "capture":
		runCapture()
	case "dupes":
		runDupes()
	case "share":
		runShare()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "showmore: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
