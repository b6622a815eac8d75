// Package extract finds image URLs on an HTML page.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxPageBytes caps a fetched page.
const maxPageBytes = 5 << 20

// srcAttrs are the <img> attributes that may hold the image URL.
// Lazy loaders commonly park the real URL in data-src.
var srcAttrs = []string{"src", "data-src", "data-original"}

// Images finds <img> sources, resolves them against baseURL, skips
// non-http(s) schemes and drops duplicates. Order follows the document.
func Images(baseURL string, r io.Reader) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]struct{})
	var out []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "base" {
			if href := attr(n, "href"); href != "" {
				if u, err := base.Parse(href); err == nil {
					base = u
				}
			}
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, key := range srcAttrs {
				src := strings.TrimSpace(attr(n, key))
				if src == "" || strings.HasPrefix(src, "data:") {
					continue
				}
				u, err := url.Parse(src)
				if err != nil {
					continue
				}
				resolved := base.ResolveReference(u)
				switch strings.ToLower(resolved.Scheme) {
				case "http", "https":
				default:
					continue
				}
				resolved.Fragment = ""

				s := resolved.String()
				if _, ok := seen[s]; ok {
					continue
				}
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return out, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// Fetcher downloads pages for image discovery.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a Fetcher with the given HTTP client timeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// PageImages fetches pageURL and returns the images it references.
func (f *Fetcher) PageImages(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	// Relative sources resolve against the final URL after redirects.
	return Images(resp.Request.URL.String(), io.LimitReader(resp.Body, maxPageBytes))
}
