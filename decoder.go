package tilecanvas

import (
	"container/heap"
	"context"
	"image"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
)

// Status reports which phase of a decode job a Result represents. Only
// StatusDone and StatusError ever complete a job's result channel; the
// other values exist to name the pipeline stages described in §6 even
// though this implementation only ever sends the terminal message (the
// channel is a single-shot future, not a progress stream).
type Status int

const (
	StatusFetching Status = iota
	StatusDecoding
	StatusDone
	StatusError
)

// TileInfo describes one decoded tile's placement within its image's tile
// grid at a given LOD.
type TileInfo struct {
	TileX, TileY int
	WorldX       float64 // local world offset, pre-pose (tx*tileWorldSize)
	WorldY       float64
}

// Result is the outcome of one LoadImageTiles job.
type Result struct {
	Status   Status
	ImageID  ImageID
	LOD      int
	ImageW   int
	ImageH   int
	WorldW   float64
	WorldH   float64
	TileWorldSize float64
	TilesX   int
	TilesY   int
	PerTile  []TileInfo
	Bitmaps  [][]byte // straight-alpha NRGBA, TileSize*TileSize*4 bytes each, aligned with PerTile
	Err      error
}

// decodeJob is one queued unit of work in the priority heap.
type decodeJob struct {
	seq      int64
	priority float64
	ctx      context.Context
	url      string
	imageID  ImageID
	lod      int
	resultCh chan Result
	index    int // heap.Interface bookkeeping
}

// jobHeap is a max-heap on priority (ties broken by earlier seq first, i.e.
// FIFO among equal priorities).
type jobHeap []*decodeJob

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *jobHeap) Push(x any) {
	j := x.(*decodeJob)
	j.index = len(*h)
	*h = append(*h, j)
}
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}

// DecoderPool is a fixed-concurrency pool of off-thread tile decode
// workers (C5): a cancellable priority queue dispatched by a semaphore-
// gated pool of goroutines, per §9's design notes.
type DecoderPool struct {
	cfg     Config
	fetcher ImageFetcher
	sem     *semaphore.Weighted

	mu       sync.Mutex
	cond     *sync.Cond
	heap     jobHeap
	countAt  map[ImageID]map[int]int // queued-job counts; lets CancelPending skip images with nothing queued
	disposed bool
	nextSeq  int64
}

// NewDecoderPool builds a pool bounded to cfg.PoolSize concurrent decodes,
// fetching through fetcher.
func NewDecoderPool(cfg Config, fetcher ImageFetcher) *DecoderPool {
	cfg = cfg.withDefaults()
	p := &DecoderPool{
		cfg:     cfg,
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(cfg.PoolSize)),
		countAt: make(map[ImageID]map[int]int),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.dispatchLoop()
	return p
}

// LoadImageTiles enqueues a decode job for (url, imageID, lod) at the given
// priority (higher dispatched first) and returns a buffered channel that
// receives exactly one Result.
func (p *DecoderPool) LoadImageTiles(ctx context.Context, url string, imageID ImageID, lod int, priority float64) <-chan Result {
	resultCh := make(chan Result, 1)

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		resultCh <- Result{ImageID: imageID, LOD: lod, Status: StatusError, Err: ErrDisposed}
		return resultCh
	}
	job := &decodeJob{
		seq: p.nextSeq, priority: priority, ctx: ctx, url: url,
		imageID: imageID, lod: lod, resultCh: resultCh,
	}
	p.nextSeq++
	heap.Push(&p.heap, job)
	p.bumpCount(imageID, lod, 1)
	p.cond.Signal()
	p.mu.Unlock()

	return resultCh
}

// CancelPending rejects queued-but-not-started jobs for imageID whose LOD
// is strictly below belowLOD, with ErrCancelled. In-flight jobs already
// popped from the heap are not affected.
func (p *DecoderPool) CancelPending(imageID ImageID, belowLOD int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lods, ok := p.countAt[imageID]
	if !ok {
		return
	}
	var toCancel []*decodeJob
	kept := p.heap[:0]
	for _, j := range p.heap {
		if j.imageID == imageID && j.lod < belowLOD {
			toCancel = append(toCancel, j)
			continue
		}
		kept = append(kept, j)
	}
	p.heap = kept
	heap.Init(&p.heap)
	for lod := range lods {
		if lod < belowLOD {
			delete(lods, lod)
		}
	}
	if len(lods) == 0 {
		delete(p.countAt, imageID)
	}
	for _, j := range toCancel {
		j.resultCh <- Result{ImageID: j.imageID, LOD: j.lod, Status: StatusError, Err: ErrCancelled}
	}
}

// Dispose rejects every queued job with ErrDisposed and stops the
// dispatcher. Safe to call more than once.
func (p *DecoderPool) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	pending := p.heap
	p.heap = nil
	p.countAt = make(map[ImageID]map[int]int)
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, j := range pending {
		j.resultCh <- Result{ImageID: j.imageID, LOD: j.lod, Status: StatusError, Err: ErrDisposed}
	}
}

func (p *DecoderPool) bumpCount(id ImageID, lod, delta int) {
	lods, ok := p.countAt[id]
	if !ok {
		lods = make(map[int]int)
		p.countAt[id] = lods
	}
	lods[lod] += delta
	if lods[lod] <= 0 {
		delete(lods, lod)
		if len(lods) == 0 {
			delete(p.countAt, id)
		}
	}
}

// dispatchLoop pulls the highest-priority job once a semaphore slot is
// free, running it on its own goroutine.
func (p *DecoderPool) dispatchLoop() {
	for {
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		p.mu.Lock()
		for len(p.heap) == 0 && !p.disposed {
			p.cond.Wait()
		}
		if p.disposed {
			p.mu.Unlock()
			p.sem.Release(1)
			return
		}
		job := heap.Pop(&p.heap).(*decodeJob)
		p.bumpCount(job.imageID, job.lod, -1)
		p.mu.Unlock()

		go func(j *decodeJob) {
			defer p.sem.Release(1)
			j.resultCh <- p.run(j)
		}(job)
	}
}

// run performs steps 1-3 of §4.5: fetch, decode, tile-grid computation and
// per-tile resize.
func (p *DecoderPool) run(j *decodeJob) Result {
	img, err := p.fetcher.Fetch(j.ctx, j.url)
	if err != nil {
		return Result{ImageID: j.imageID, LOD: j.lod, Status: StatusError,
			Err: &DecodeError{ImageID: j.imageID, LOD: j.lod, Message: "fetch failed", Err: err}}
	}
	return p.tileImage(j, img)
}

// tileImage slices img into TileSize x TileSize straight-alpha NRGBA tiles
// covering a tilesX x tilesY grid at j.lod, resizing each source
// sub-rectangle with golang.org/x/image/draw and flipping Y for GPU texture
// convention.
func (p *DecoderPool) tileImage(j *decodeJob, img image.Image) Result {
	bounds := img.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()
	if imgW <= 0 || imgH <= 0 {
		return Result{ImageID: j.imageID, LOD: j.lod, Status: StatusError,
			Err: &DecodeError{ImageID: j.imageID, LOD: j.lod, Message: "decoded image has zero extent"}}
	}

	tileWorldSize := p.cfg.BaseWorldSize / pow2(j.lod)
	tilesX := ceilDiv(p.cfg.BaseWorldSize, tileWorldSize)
	tilesY := tilesX // images are square in world units; grid is N x N

	perTile := make([]TileInfo, 0, tilesX*tilesY)
	bitmaps := make([][]byte, 0, tilesX*tilesY)

	ts := p.cfg.TileSize
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			srcX0 := imgW * tx / tilesX
			srcX1 := imgW * (tx + 1) / tilesX
			srcY0 := imgH * ty / tilesY
			srcY1 := imgH * (ty + 1) / tilesY
			sub := image.Rect(bounds.Min.X+srcX0, bounds.Min.Y+srcY0, bounds.Min.X+srcX1, bounds.Min.Y+srcY1)

			// NRGBA, not RGBA: image.RGBA/draw.Over composite in
			// alpha-premultiplied space, but stored tile bitmaps must be
			// straight alpha.
			dst := image.NewNRGBA(image.Rect(0, 0, ts, ts))
			draw.CatmullRom.Scale(dst, dst.Bounds(), img, sub, draw.Over, nil)
			flipY(dst)

			perTile = append(perTile, TileInfo{
				TileX: tx, TileY: ty,
				WorldX: float64(tx) * tileWorldSize,
				WorldY: float64(ty) * tileWorldSize,
			})
			bitmaps = append(bitmaps, dst.Pix)
		}
	}

	return Result{
		Status: StatusDone, ImageID: j.imageID, LOD: j.lod,
		ImageW: imgW, ImageH: imgH,
		WorldW: p.cfg.BaseWorldSize, WorldH: p.cfg.BaseWorldSize,
		TileWorldSize: tileWorldSize,
		TilesX: tilesX, TilesY: tilesY,
		PerTile: perTile, Bitmaps: bitmaps,
	}
}

func pow2(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 2
	}
	return v
}

func ceilDiv(a, b float64) int {
	if b <= 0 {
		return 1
	}
	q := a / b
	n := int(q)
	if float64(n) < q {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// flipY reverses img's rows in place, converting from image-space
// (origin top-left) to the GPU texture convention this package's backend
// expects (origin bottom-left).
func flipY(img *image.NRGBA) {
	h := img.Bounds().Dy()
	stride := img.Stride
	tmp := make([]byte, stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*stride : y*stride+stride]
		bot := img.Pix[(h-1-y)*stride : (h-1-y)*stride+stride]
		copy(tmp, top)
		copy(top, bot)
		copy(bot, tmp)
	}
}
