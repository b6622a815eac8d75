package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abelbrown/showmore/internal/sequence"
)

func runParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	fs.Parse(os.Args[1:])

	raw := requireArg(fs.Args(), "a URL")
	u := sequence.Parse(raw)

	fmt.Printf("Prefix:  %s\n", u.Prefix)
	fmt.Printf("Digits:  %s\n", u.Digits)
	fmt.Printf("Suffix:  %s\n", u.Suffix)
	if !u.HasSequence() {
		fmt.Println("\nNo numeric sequence.")
		return
	}
	fmt.Printf("Padded:  %v\n", u.Padded())

	if next, ok := sequence.Mutate(u, sequence.Up, false); ok {
		fmt.Printf("\nNext:    %s\n", next)
	}
	if prev, ok := sequence.Mutate(u, sequence.Down, false); ok {
		fmt.Printf("Prev:    %s\n", prev)
		if sequence.NeedsPaddedAlternative(u) {
			if alt, ok := sequence.Mutate(u, sequence.Down, true); ok && alt != prev {
				fmt.Printf("Padded:  %s\n", alt)
			}
		}
	} else {
		fmt.Println("Prev:    (none)")
	}
}
