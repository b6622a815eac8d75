package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/showmore/internal/logging"
)

const (
	// DefaultThreshold is the minimum similarity for two images to group.
	DefaultThreshold = 0.95

	// DefaultConcurrency bounds parallel decodes within a chunk.
	DefaultConcurrency = 10

	// chunkSize is how many URLs are fingerprinted between progress reports.
	chunkSize = 10

	// epsilon absorbs float error in (1-threshold)*bits.
	epsilon = 1e-9
)

// Fingerprint pairs a URL with its hash.
type Fingerprint struct {
	URL  string
	Hash Hash
}

// Group is a set of near-identical images. Members[0] is the
// representative.
type Group struct {
	Representative string
	Members        []string
}

// Result is the outcome of one detection run.
type Result struct {
	Groups        []Group
	Fingerprinted int      // URLs that produced a hash
	Failed        []string // URLs that could not be decoded
}

// Duplicates counts images beyond the first in every group.
func (r Result) Duplicates() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Members) - 1
	}
	return n
}

// GroupOf returns the index of the group containing url.
func (r Result) GroupOf(url string) (int, bool) {
	for i, g := range r.Groups {
		for _, m := range g.Members {
			if m == url {
				return i, true
			}
		}
	}
	return 0, false
}

// Progress receives the number of URLs processed so far.
type Progress func(done, total int)

// Options tunes a Detector. Zero values use the defaults.
type Options struct {
	HashSize    int
	Threshold   float64
	Concurrency int
}

// Detector fingerprints images and groups near-duplicates. Fingerprints
// are cached per URL; a repeated call with the same URL list returns the
// previous result without decoding anything.
// Thread-safety: safe for concurrent use; detections are serialized.
type Detector struct {
	decoder     Decoder
	size        int
	threshold   float64
	concurrency int

	run sync.Mutex // serializes Detect

	mu      sync.Mutex
	prints  map[string]Hash
	lastKey string
	digest  string
	last    *Result
}

// NewDetector creates a Detector reading images through dec.
func NewDetector(dec Decoder, opts Options) *Detector {
	if opts.HashSize <= 0 {
		opts.HashSize = DefaultHashSize
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Detector{
		decoder:     dec,
		size:        opts.HashSize,
		threshold:   opts.Threshold,
		concurrency: opts.Concurrency,
		prints:      make(map[string]Hash),
	}
}

// Detect groups urls whose fingerprints are within the threshold.
// Decode failures are logged and left out. The returned error is only
// ever the context's.
func (d *Detector) Detect(ctx context.Context, urls []string, progress Progress) (Result, error) {
	d.run.Lock()
	defer d.run.Unlock()

	urls = uniq(urls)
	if len(urls) <= 1 {
		return Result{Fingerprinted: len(urls)}, nil
	}

	key := listKey(urls)
	d.mu.Lock()
	// A list with failures falls through so those URLs are decoded again.
	if d.last != nil && d.lastKey == key && len(d.last.Failed) == 0 {
		res := *d.last
		d.mu.Unlock()
		logging.Debug("dedup reusing previous result", "urls", len(urls))
		return res, nil
	}
	var pending []string
	for _, u := range urls {
		if _, ok := d.prints[u]; !ok {
			pending = append(pending, u)
		}
	}
	d.mu.Unlock()

	failed, err := d.fingerprint(ctx, pending, len(urls)-len(pending), len(urls), progress)
	if err != nil {
		return Result{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fps := make([]Fingerprint, 0, len(urls))
	for _, u := range urls {
		if h, ok := d.prints[u]; ok {
			fps = append(fps, Fingerprint{URL: u, Hash: h})
		}
	}

	digest := fingerprintDigest(fps)
	var res Result
	if d.last != nil && d.digest == digest {
		res = *d.last
	} else {
		res = Result{Groups: GroupFingerprints(fps, d.threshold)}
	}
	res.Fingerprinted = len(fps)
	res.Failed = failed

	d.lastKey = key
	d.digest = digest
	d.last = &res

	logging.Info("dedup complete", "urls", len(urls), "groups", len(res.Groups), "duplicates", res.Duplicates(), "failed", len(failed))
	return res, nil
}

// fingerprint hashes pending in chunks, reporting progress after each.
func (d *Detector) fingerprint(ctx context.Context, pending []string, done, total int, progress Progress) ([]string, error) {
	var (
		failMu sync.Mutex
		failed []string
	)

	if progress != nil {
		progress(done, total)
	}
	for start := 0; start < len(pending); start += chunkSize {
		end := start + chunkSize
		if end > len(pending) {
			end = len(pending)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.concurrency)
		for _, u := range pending[start:end] {
			g.Go(func() error {
				img, err := d.decoder.Decode(gctx, u)
				if err != nil {
					logging.Warn("fingerprint failed", "url", u, "err", err)
					failMu.Lock()
					failed = append(failed, u)
					failMu.Unlock()
					return nil
				}
				h := AverageHash(img, d.size)
				d.mu.Lock()
				d.prints[u] = h
				d.mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done += end - start
		if progress != nil {
			progress(done, total)
		}
	}
	return failed, nil
}

// Reset forgets every fingerprint and cached result.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prints = make(map[string]Hash)
	d.lastKey = ""
	d.digest = ""
	d.last = nil
}

// MaxDistance is the largest Hamming distance between two n-bit hashes that
// still counts as a duplicate. Hashes differing in ceil((1-threshold)*n)
// bits or more are distinct, so at 0.95 a 400-bit pair 20 bits apart is
// not a duplicate. Identical hashes always are.
func MaxDistance(n int, threshold float64) int {
	x := (1 - threshold) * float64(n)
	if r := math.Round(x); math.Abs(x-r) < epsilon {
		x = r
	}
	return max(int(math.Ceil(x))-1, 0)
}

// GroupFingerprints clusters fps in order. Each unassigned fingerprint
// seeds a group and pulls in every later unassigned one within
// MaxDistance of the seed. Groups of one are dropped.
func GroupFingerprints(fps []Fingerprint, threshold float64) []Group {
	assigned := make([]bool, len(fps))
	var groups []Group
	for i, seed := range fps {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []string{seed.URL}
		for j := i + 1; j < len(fps); j++ {
			if assigned[j] {
				continue
			}
			dist, ok := seed.Hash.Distance(fps[j].Hash)
			if ok && dist <= MaxDistance(seed.Hash.Len(), threshold) {
				assigned[j] = true
				members = append(members, fps[j].URL)
			}
		}
		if len(members) > 1 {
			groups = append(groups, Group{Representative: seed.URL, Members: members})
		}
	}
	return groups
}

func uniq(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func listKey(urls []string) string {
	h := sha256.New()
	for _, u := range urls {
		h.Write([]byte(u))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func fingerprintDigest(fps []Fingerprint) string {
	h := sha256.New()
	for _, fp := range fps {
		h.Write([]byte(fp.URL))
		h.Write([]byte{0})
		h.Write([]byte(fp.Hash.String()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
