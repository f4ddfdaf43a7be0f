// Package tilecanvas is a tile cache and loading pipeline for panning and
// zooming across a canvas of thousands of independently positioned images.
//
// Source images are too large to keep resident in GPU memory at every detail
// level, so tilecanvas keeps a bounded, slotted texture atlas and streams in
// only the tiles a given frame actually needs, at the level of detail the
// current zoom demands.
//
// # Quick start
//
// The pieces compose around a [Coordinator], which drives everything else
// once per frame:
//
//	cfg := tilecanvas.DefaultConfig()
//	backend := tilecanvas.NewEbitenBackend(cfg)
//	atlas := tilecanvas.NewAtlasManager(cfg, backend)
//	store := tilecanvas.NewTileStore()
//	pool := tilecanvas.NewDecoderPool(cfg, tilecanvas.NewHTTPFetcher())
//	oracle := tilecanvas.NewVisibilityOracle(layout)
//	coord := tilecanvas.NewCoordinator(cfg, atlas, store, pool, oracle, layout, urlFor)
//
//	// once per frame:
//	coord.Frame(ctx, camera, devicePixelRatio)
//
// # Components
//
// [SlotAllocator] and [AtlasManager] own the fixed-size GPU atlas.
// [SelectLOD] and [SelectImageLOD] are pure level-of-detail functions.
// [VisibilityOracle] answers which images intersect the camera frustum.
// [DecoderPool] fetches and decodes tile bitmaps off the render goroutine.
// [TileStore] tracks what is cached, what is loading, and what to evict.
// [Coordinator] ties all of the above together once per frame.
// [ImageLayout] supplies per-image pose and bounds to the rest of the
// pipeline; [GridLayout] and [StackedLayout] are the two bundled
// realizations.
package tilecanvas
