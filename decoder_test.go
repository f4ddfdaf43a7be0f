package tilecanvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

type fakeFetcher struct {
	img image.Image
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0, A: 255})
		}
	}
	return img
}

func recv(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decode result")
		return Result{}
	}
}

func TestDecoderPoolLoadImageTilesSuccess(t *testing.T) {
	cfg := DefaultConfig()
	pool := NewDecoderPool(cfg, &fakeFetcher{img: solidImage(1024, 1024)})
	defer pool.Dispose()

	ch := pool.LoadImageTiles(context.Background(), "http://example/img.png", 1, 2, 1.0)
	res := recv(t, ch)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Status != StatusDone {
		t.Fatalf("Status = %v, want StatusDone", res.Status)
	}
	wantTiles := 1 << 2 // 2^lod per side
	if res.TilesX != wantTiles || res.TilesY != wantTiles {
		t.Fatalf("tiles = %dx%d, want %dx%d", res.TilesX, res.TilesY, wantTiles, wantTiles)
	}
	if len(res.Bitmaps) != wantTiles*wantTiles {
		t.Fatalf("len(Bitmaps) = %d, want %d", len(res.Bitmaps), wantTiles*wantTiles)
	}
	for _, bm := range res.Bitmaps {
		if len(bm) != cfg.TileSize*cfg.TileSize*4 {
			t.Fatalf("bitmap len = %d, want %d", len(bm), cfg.TileSize*cfg.TileSize*4)
		}
	}
}

func TestDecoderPoolFetchError(t *testing.T) {
	cfg := DefaultConfig()
	pool := NewDecoderPool(cfg, &fakeFetcher{err: errors.New("network down")})
	defer pool.Dispose()

	ch := pool.LoadImageTiles(context.Background(), "http://example/img.png", 1, 0, 1.0)
	res := recv(t, ch)
	var de *DecodeError
	if !errors.As(res.Err, &de) {
		t.Fatalf("Err = %v, want *DecodeError", res.Err)
	}
}

// blockingFetcher blocks Fetch for the "busy" URL until release is closed,
// so a test can deterministically occupy the pool's only worker slot.
type blockingFetcher struct {
	img     image.Image
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if url == "http://example/busy.png" {
		<-f.release
	}
	return f.img, nil
}

func TestDecoderPoolCancelPending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 1
	fetcher := &blockingFetcher{img: solidImage(256, 256), release: make(chan struct{})}
	pool := NewDecoderPool(cfg, fetcher)
	defer pool.Dispose()

	busy := pool.LoadImageTiles(context.Background(), "http://example/busy.png", 99, 0, 100)

	// Give the dispatcher a moment to pop and start the busy job so the
	// pool's one worker slot is genuinely occupied before we enqueue more.
	time.Sleep(20 * time.Millisecond)

	low := pool.LoadImageTiles(context.Background(), "http://example/low.png", 1, 0, 1.0)
	high := pool.LoadImageTiles(context.Background(), "http://example/high.png", 1, 3, 2.0)

	pool.CancelPending(1, 2)
	close(fetcher.release)

	busyRes := recv(t, busy)
	if busyRes.Err != nil {
		t.Fatalf("busy job: %v", busyRes.Err)
	}

	res := recv(t, low)
	if !errors.Is(res.Err, ErrCancelled) {
		t.Fatalf("low-LOD job Err = %v, want ErrCancelled", res.Err)
	}
	res2 := recv(t, high)
	if res2.Err != nil {
		t.Fatalf("high-LOD job should not be cancelled: %v", res2.Err)
	}
}

func TestDecoderPoolDispose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 1
	pool := NewDecoderPool(cfg, &fakeFetcher{img: solidImage(256, 256)})

	pool.Dispose()
	ch := pool.LoadImageTiles(context.Background(), "http://example/img.png", 1, 0, 1.0)
	res := recv(t, ch)
	if !errors.Is(res.Err, ErrDisposed) {
		t.Fatalf("post-dispose job Err = %v, want ErrDisposed", res.Err)
	}

	// Disposing twice must not panic or block.
	pool.Dispose()
}

// recordingFetcher records the URL of every Fetch call, in call order.
type recordingFetcher struct {
	img   image.Image
	mu    sync.Mutex
	order []string
}

func (f *recordingFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	f.mu.Lock()
	f.order = append(f.order, url)
	f.mu.Unlock()
	return f.img, nil
}

func TestDecoderPoolFIFOAmongEqualPriority(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = 1
	fetcher := &recordingFetcher{img: solidImage(256, 256)}
	pool := NewDecoderPool(cfg, fetcher)
	defer pool.Dispose()

	var chans []<-chan Result
	for i := 0; i < 5; i++ {
		chans = append(chans, pool.LoadImageTiles(context.Background(), fmt.Sprintf("http://example/img%d.png", i), ImageID(i), 0, 1.0))
	}
	for i, ch := range chans {
		res := recv(t, ch)
		if res.ImageID != ImageID(i) {
			t.Fatalf("result[%d] = image %d, want image %d", i, res.ImageID, i)
		}
	}

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.order) != len(chans) {
		t.Fatalf("fetch count = %d, want %d", len(fetcher.order), len(chans))
	}
	for i, url := range fetcher.order {
		if want := fmt.Sprintf("http://example/img%d.png", i); url != want {
			t.Fatalf("dispatch order[%d] = %s, want %s (FIFO)", i, url, want)
		}
	}
}
