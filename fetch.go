package tilecanvas

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"
)

// HTTPFetcher is the concrete ImageFetcher realization: it fetches a URL
// over HTTP and decodes the response body with the standard image package
// (PNG/JPEG/GIF registered via blank import).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds a fetcher with a bounded-timeout client suitable
// for the decoder pool's per-tile fetches.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch implements ImageFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("tilecanvas: build request for %q: %w", url, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tilecanvas: fetch %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tilecanvas: fetch %q: status %s", url, resp.Status)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tilecanvas: decode %q: %w", url, err)
	}
	return img, nil
}
