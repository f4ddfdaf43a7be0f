package tilecanvas

import (
	"context"
	"math"
	"sort"
)

// URLResolver maps an image to the URL its pixels should be fetched from.
type URLResolver func(id ImageID) string

// Coordinator is the per-frame driver (C7): it consults the Visibility
// Oracle and LOD Selector, issues loads through the Decoder Pool and Atlas
// Manager, evicts through the Tile Data Store, and rebuilds the atlas'
// instance list. It owns no lock: per §5, it is the single writer for
// the Slot Allocator, Atlas Manager, and Tile Data Store, always called
// from the render goroutine.
type Coordinator struct {
	cfg    Config
	atlas  *AtlasManager
	store  *TileStore
	pool   *DecoderPool
	oracle *VisibilityOracle
	layout ImageLayout
	urlFor URLResolver

	lastVisible  []ImageID
	targetLOD    map[ImageID]int
	renderedSet  map[RenderedPair]bool
}

// NewCoordinator wires the full pipeline together.
func NewCoordinator(cfg Config, atlas *AtlasManager, store *TileStore, pool *DecoderPool, oracle *VisibilityOracle, layout ImageLayout, urlFor URLResolver) *Coordinator {
	return &Coordinator{
		cfg: cfg.withDefaults(), atlas: atlas, store: store, pool: pool,
		oracle: oracle, layout: layout, urlFor: urlFor,
		targetLOD:   make(map[ImageID]int),
		renderedSet: make(map[RenderedPair]bool),
	}
}

// Frame drives one full pipeline tick (§4.7). dpr is the device pixel
// ratio; screenPxPerUnit is computed as camera.Zoom() * dpr.
func (c *Coordinator) Frame(ctx context.Context, camera CameraView, dpr float64) {
	c.drainCompletions()

	rebuild := false

	visible := c.oracle.VisibleImages(camera)
	if !sameImageSet(visible, c.lastVisible) {
		rebuild = true
	}
	c.lastVisible = visible

	visibleSet := make(map[ImageID]bool, len(visible))
	for _, id := range visible {
		visibleSet[id] = true
	}

	screenPxPerUnit := camera.Zoom() * dpr

	for _, id := range visible {
		pose := c.layout.Pose(id)
		imgW, imgH, haveSize := c.layout.ImageSize(id)
		imgPixelSize := 0
		if haveSize {
			imgPixelSize = maxInt(imgW, imgH)
		}
		target := SelectImageLOD(screenPxPerUnit, c.cfg.TileSize, c.cfg.BaseWorldSize, c.cfg.MaxLOD, imgPixelSize, pose.Scale)

		prev, had := c.targetLOD[id]
		c.targetLOD[id] = target
		if !had || prev != target {
			rebuild = true
		}
		if had && target > prev {
			c.pool.CancelPending(id, target)
		}
		c.store.SetRequestedLOD(id, target)
	}

	// Step 3: opportunistic baseline eviction, run every frame so cached
	// entries for images that fell out of the visible set become eligible
	// for reclaim even before a future frame's load pressure demands it
	// (an Open Question resolved this way: see DESIGN.md).
	c.store.EvictStale(c.renderedSet, c.atlas, visibleSet, c.cfg.TargetFreeSlots)

	loadByLOD := make(map[int][]ImageID)
	for _, id := range visible {
		target := c.targetLOD[id]
		if !c.store.Has(id, target) && !c.store.IsLoading(id, target) {
			loadByLOD[target] = append(loadByLOD[target], id)
		}
	}

	if len(loadByLOD) > 0 {
		needed := 0
		for lod, ids := range loadByLOD {
			needed += minInt(int(math.Pow(4, float64(lod))), 64) * len(ids)
		}
		if needed > c.atlas.TotalSlots()-c.atlas.UsedSlotCount() {
			c.store.EvictStale(c.renderedSet, c.atlas, visibleSet, needed)
		}
	}

	camX, camY := camera.Position()
	for lod, ids := range loadByLOD {
		for _, id := range ids {
			pose := c.layout.Pose(id)
			dist := math.Hypot(pose.X-camX, pose.Y-camY)
			priority := float64(lod) + 1/(1+dist)
			url := c.urlFor(id)
			ch := c.pool.LoadImageTiles(ctx, url, id, lod, priority)
			c.store.SetLoading(id, lod, ch)
		}
	}

	if rebuild {
		c.rebuildInstances(visible)
	}
}

// drainCompletions non-blockingly polls every in-flight decode channel and
// applies finished results synchronously (§5 suspension points: only this
// non-blocking poll, never a blocking wait inside Frame).
func (c *Coordinator) drainCompletions() {
	type pending struct {
		id  ImageID
		lod int
		ch  <-chan Result
	}
	var all []pending
	for id, lods := range c.store.loading {
		for lod, ch := range lods {
			all = append(all, pending{id, lod, ch})
		}
	}
	for _, p := range all {
		select {
		case res := <-p.ch:
			c.applyResult(p.id, p.lod, res)
		default:
		}
	}
}

func (c *Coordinator) applyResult(id ImageID, lod int, res Result) {
	c.store.ClearLoading(id, lod)
	if res.Err != nil {
		if de, ok := res.Err.(*DecodeError); ok {
			logger().Warn("tile decode failed", "image", id, "lod", lod, "err", de)
		} else {
			logger().Debug("tile load did not complete", "image", id, "lod", lod, "err", res.Err)
		}
		return
	}

	instances, tileKeys, err := c.tileInstances(id, lod, res)
	if err != nil {
		for _, key := range tileKeys {
			c.atlas.FreeTile(key)
		}
		logger().Warn("partial tile load, rolled back", "image", id, "lod", lod, "err", err)
		c.rebuildInstances(c.lastVisible)
		return
	}

	c.store.Set(id, lod, instances, tileKeys)
	// §4.7 step 6 Open Question: a result that arrives after the requested
	// LOD increased is still cached (future eviction candidate / fallback)
	// but must not force a rebuild this frame.
	if c.store.ShouldPrioritize(id, lod) {
		c.rebuildInstances(c.lastVisible)
	}
}

// tileInstances runs the tile-processing math shared with the layout's
// AABB computation (§4.7): for tile (tx, ty) at lod, local = (tx*tws*k +
// tws*k/2, -(ty*tws*k + tws*k/2)) relative to the pivot, rotated by theta,
// then offset by the pivot.
func (c *Coordinator) tileInstances(id ImageID, lod int, res Result) (instances []Instance, tileKeys []TileKey, err error) {
	pose := c.layout.Pose(id)
	k := pose.Scale
	if k <= 0 {
		k = 1
	}
	tws := res.TileWorldSize

	instances = make([]Instance, 0, len(res.PerTile))
	tileKeys = make([]TileKey, 0, len(res.PerTile))

	for i, ti := range res.PerTile {
		key := TileKey{ImageID: id, LOD: lod, TileX: ti.TileX, TileY: ti.TileY}
		slot, uploadErr := c.atlas.UploadTile(key, res.Bitmaps[i])
		if uploadErr != nil {
			// A backend error leaves key holding its slot, and key is not in
			// the returned tileKeys, so release it here.
			c.atlas.FreeTile(key)
			err = ErrPartialLoad
			break
		}
		localX := ti.WorldX*k + tws*k/2
		localY := -(ti.WorldY*k + tws*k/2)
		rx, ry := rotatePoint(localX, localY, pose.Rotation)

		tileKeys = append(tileKeys, key)
		instances = append(instances, Instance{
			Slot:       slot,
			WorldX:     pose.X + rx,
			WorldY:     pose.Y + ry,
			WorldZ:     pose.Z,
			TileWorldW: tws * k,
			TileWorldH: tws * k,
			Rotation:   pose.Rotation,
		})
	}
	return instances, tileKeys, err
}

// rebuildInstances clears and repopulates the atlas' instance list from
// the best-available LOD per visible image (§4.7 step 7). Instances are
// submitted in WorldZ ascending order so stacked images (§4.8) draw back
// to front regardless of the order VisibleImages happened to return them
// in.
func (c *Coordinator) rebuildInstances(visible []ImageID) {
	c.atlas.ClearInstances()
	newRendered := make(map[RenderedPair]bool, len(visible))

	var queued []Instance
	for _, id := range visible {
		target := c.targetLOD[id]
		avail := c.store.BestAvailableLOD(id, target, c.cfg.MaxLOD)
		if avail < 0 {
			continue
		}
		instances, _, ok := c.store.Get(id, avail)
		if !ok {
			continue
		}
		queued = append(queued, instances...)
		newRendered[RenderedPair{ImageID: id, LOD: avail}] = true
	}

	sort.SliceStable(queued, func(i, j int) bool { return queued[i].WorldZ < queued[j].WorldZ })
	for _, inst := range queued {
		c.atlas.AddInstanceWithZ(inst.Slot, true, inst.WorldX, inst.WorldY, inst.WorldZ, inst.TileWorldW, inst.TileWorldH, inst.Rotation)
	}

	c.renderedSet = newRendered
	c.atlas.Update()
}

// RenderedImages returns the set of images currently instanced into the
// atlas, for diagnostics and demo HUDs.
func (c *Coordinator) RenderedImages() map[RenderedPair]bool {
	return c.renderedSet
}

func sameImageSet(a, b []ImageID) bool {
	if len(a) != len(b) {
		return false
	}
	sorted := append([]ImageID(nil), a...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	other := append([]ImageID(nil), b...)
	sort.Slice(other, func(i, j int) bool { return other[i] < other[j] })
	for i := range sorted {
		if sorted[i] != other[i] {
			return false
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
