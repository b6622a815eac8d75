package dedup

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder loads an image by URL.
type Decoder interface {
	Decode(ctx context.Context, url string) (image.Image, error)
}

// DefaultMaxImageBytes caps a downloaded image.
const DefaultMaxImageBytes = 20 << 20

// HTTPDecoder fetches and decodes images over HTTP.
type HTTPDecoder struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewHTTPDecoder creates a decoder with the given request timeout.
func NewHTTPDecoder(timeout time.Duration, userAgent string) *HTTPDecoder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPDecoder{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  DefaultMaxImageBytes,
		userAgent: userAgent,
	}
}

// Decode downloads url and decodes it with any registered format.
func (d *HTTPDecoder) Decode(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, d.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}
