package tilecanvas

import "testing"

func setEntry(s *TileStore, atlas *AtlasManager, imageID ImageID, lod, tiles int) {
	keys := make([]TileKey, tiles)
	instances := make([]Instance, tiles)
	for i := 0; i < tiles; i++ {
		k := TileKey{ImageID: imageID, LOD: lod, TileX: i}
		keys[i] = k
		atlas.UploadTile(k, tileBitmap(DefaultConfig()))
		instances[i] = Instance{Slot: SlotID{}}
	}
	s.Set(imageID, lod, instances, keys)
}

func TestTileStoreSetGetHas(t *testing.T) {
	s := NewTileStore()
	if s.Has(1, 0) {
		t.Fatalf("Has on empty store = true")
	}
	s.Set(1, 0, []Instance{{}}, []TileKey{{ImageID: 1, LOD: 0}})
	if !s.Has(1, 0) {
		t.Fatalf("Has after Set = false")
	}
	inst, keys, ok := s.Get(1, 0)
	if !ok || len(inst) != 1 || len(keys) != 1 {
		t.Fatalf("Get after Set = (%v,%v,%v)", inst, keys, ok)
	}
}

func TestTileStoreLoadingLifecycle(t *testing.T) {
	s := NewTileStore()
	ch := make(chan Result, 1)
	if s.IsLoading(1, 0) {
		t.Fatalf("IsLoading before SetLoading = true")
	}
	s.SetLoading(1, 0, ch)
	if !s.IsLoading(1, 0) {
		t.Fatalf("IsLoading after SetLoading = false")
	}
	got, ok := s.GetLoading(1, 0)
	if !ok || got != (<-chan Result)(ch) {
		t.Fatalf("GetLoading mismatch")
	}
	s.ClearLoading(1, 0)
	if s.IsLoading(1, 0) {
		t.Fatalf("IsLoading after ClearLoading = true")
	}
}

func TestTileStoreRequestedLODDefault(t *testing.T) {
	s := NewTileStore()
	if got := s.GetRequestedLOD(42); got != 0 {
		t.Fatalf("default requested LOD = %d, want 0", got)
	}
	s.SetRequestedLOD(42, 3)
	if got := s.GetRequestedLOD(42); got != 3 {
		t.Fatalf("requested LOD = %d, want 3", got)
	}
	if s.ShouldPrioritize(42, 2) {
		t.Fatalf("ShouldPrioritize(lod=2) should be false when requested=3")
	}
	if !s.ShouldPrioritize(42, 3) {
		t.Fatalf("ShouldPrioritize(lod=3) should be true when requested=3")
	}
}

func TestTileStoreBestAvailableLOD(t *testing.T) {
	s := NewTileStore()
	if got := s.BestAvailableLOD(1, 2, 4); got != -1 {
		t.Fatalf("BestAvailableLOD on empty store = %d, want -1", got)
	}
	s.Set(1, 0, nil, nil)
	s.Set(1, 3, nil, nil)
	// target=2: scan down 2,1,0 -> finds 0 before scanning up to 3.
	if got := s.BestAvailableLOD(1, 2, 4); got != 0 {
		t.Fatalf("BestAvailableLOD = %d, want 0 (prefer lower fallback)", got)
	}
	s2 := NewTileStore()
	s2.Set(1, 3, nil, nil)
	if got := s2.BestAvailableLOD(1, 2, 4); got != 3 {
		t.Fatalf("BestAvailableLOD with only a higher LOD cached = %d, want 3", got)
	}
}

// Scenario 4 (§8): eviction priority. Image A off-screen at a stale LOD
// (priority 0) and image B off-screen at its target LOD (priority 1);
// requesting one free slot evicts A first, B survives.
func TestEvictStaleEvictionPriority(t *testing.T) {
	cfg := Config{TileSize: 256, AtlasSize: 512, MaxLayers: 1}.withDefaults() // 4 slots
	backend := &fakeBackend{}
	atlas := NewAtlasManager(cfg, backend)
	store := NewTileStore()

	store.SetRequestedLOD(ImageID(100), 2) // A's target is LOD 2; its cached LOD 0 is stale
	store.SetRequestedLOD(ImageID(200), 1) // B's target is LOD 1; cached at target

	keyA := TileKey{ImageID: 100, LOD: 0}
	if _, err := atlas.UploadTile(keyA, tileBitmap(cfg)); err != nil {
		t.Fatalf("upload A: %v", err)
	}
	store.Set(100, 0, []Instance{{}}, []TileKey{keyA})

	keyB := TileKey{ImageID: 200, LOD: 1}
	if _, err := atlas.UploadTile(keyB, tileBitmap(cfg)); err != nil {
		t.Fatalf("upload B: %v", err)
	}
	store.Set(200, 1, []Instance{{}}, []TileKey{keyB})

	visible := map[ImageID]bool{} // both off-screen
	rendered := map[RenderedPair]bool{}

	store.EvictStale(rendered, atlas, visible, 3) // 2 of 4 slots free; one more needed

	if store.Has(100, 0) {
		t.Fatalf("stale off-screen entry A should have been evicted")
	}
	if atlas.Has(keyA) {
		t.Fatalf("A's tile slot should have been freed")
	}
	if !store.Has(200, 1) {
		t.Fatalf("off-screen target-LOD entry B should survive")
	}
}

// Scenario 5 (§8): on-screen fallback preservation. An image rendered at
// LOD 2 with a cached LOD 0 fallback must not be evicted (priority 2)
// ahead of another image's off-screen target-LOD entry (priority 1) when
// only one slot is needed.
func TestEvictStatePreservesOnScreenFallback(t *testing.T) {
	cfg := Config{TileSize: 256, AtlasSize: 512, MaxLayers: 1}.withDefaults() // 4 slots
	backend := &fakeBackend{}
	atlas := NewAtlasManager(cfg, backend)
	store := NewTileStore()

	fallbackKey := TileKey{ImageID: 1, LOD: 0}
	atlas.UploadTile(fallbackKey, tileBitmap(cfg))
	store.Set(1, 0, []Instance{{}}, []TileKey{fallbackKey})
	store.SetRequestedLOD(1, 2)

	otherKey := TileKey{ImageID: 2, LOD: 1}
	atlas.UploadTile(otherKey, tileBitmap(cfg))
	store.Set(2, 1, []Instance{{}}, []TileKey{otherKey})
	store.SetRequestedLOD(2, 1)

	visible := map[ImageID]bool{1: true} // image 1 on-screen (rendered at LOD 2, fallback LOD 0 cached); image 2 off-screen
	rendered := map[RenderedPair]bool{{ImageID: 1, LOD: 2}: true}

	store.EvictStale(rendered, atlas, visible, 3) // 2 of 4 slots free; one more needed

	if !store.Has(1, 0) {
		t.Fatalf("on-screen fallback entry should survive")
	}
	if store.Has(2, 1) {
		t.Fatalf("off-screen target-LOD entry should have been evicted first")
	}
}

// Scenario 6 (§8): zoom cycle no-leak. Repeated load/evict cycles must
// leave UsedSlots() == 0 after a final global eviction pass.
func TestEvictStateZoomCycleNoLeak(t *testing.T) {
	cfg := Config{TileSize: 256, AtlasSize: 4096, MaxLayers: 1}.withDefaults()
	backend := &fakeBackend{}
	atlas := NewAtlasManager(cfg, backend)
	store := NewTileStore()

	noneVisible := map[ImageID]bool{}
	noneRendered := map[RenderedPair]bool{}
	for cycle := 0; cycle < 3; cycle++ {
		setEntry(store, atlas, 1, 2, 24)                                       // zoom in: 3x8 tiles
		store.EvictStale(noneRendered, atlas, noneVisible, atlas.TotalSlots()) // zoom out: evict
		setEntry(store, atlas, 2, 0, 10)                                       // zoom out: 10x1 tiles
	}
	store.EvictStale(noneRendered, atlas, noneVisible, atlas.TotalSlots())

	if got := atlas.UsedSlotCount(); got != 0 {
		t.Fatalf("UsedSlotCount after full eviction = %d, want 0", got)
	}
}
