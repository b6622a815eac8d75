package crawl

import (
	"context"
	"errors"

	"github.com/abelbrown/showmore/internal/sequence"
)

var (
	// ErrNoSequence is returned for URLs without a number to step.
	ErrNoSequence = errors.New("crawl: url has no numeric sequence")

	// ErrNoNeighbor is returned when stepping down from zero.
	ErrNoNeighbor = errors.New("crawl: no neighbour in that direction")
)

// Neighbor returns the next or previous URL of rawURL for single-page
// navigation. When stepping down across a decade boundary and p is not
// nil, the zero-padded form is returned if only it exists.
func Neighbor(ctx context.Context, p Prober, rawURL string, d sequence.Direction) (string, error) {
	u := sequence.Parse(rawURL)
	if !u.HasSequence() {
		return "", ErrNoSequence
	}

	plain, ok := sequence.Step(u, d, false)
	if !ok {
		return "", ErrNoNeighbor
	}
	if p == nil || d != sequence.Down || !sequence.NeedsPaddedAlternative(u) {
		return plain.String(), nil
	}

	alt, ok := sequence.Step(u, d, true)
	if !ok || alt == plain {
		return plain.String(), nil
	}
	if !p.Exists(ctx, plain.String()) && p.Exists(ctx, alt.String()) {
		return alt.String(), nil
	}
	return plain.String(), nil
}
