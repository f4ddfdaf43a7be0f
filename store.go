package tilecanvas

import "sort"

// imageEntry holds one (image, lod) pair's cached render data.
type imageEntry struct {
	instances []Instance
	tileKeys  []TileKey
}

// RenderedPair is one (image, lod) combination actually drawn in a frame,
// used as the eviction guard (§4.6 step 1).
type RenderedPair struct {
	ImageID ImageID
	LOD     int
}

// TileStore tracks what is cached, what is loading, and what to evict (C6).
// Like C1/C2, it is mutated only from the render goroutine (§5); the
// in-flight decode channels it holds are produced by C5's separate
// goroutines but handed to TileStore synchronously by the coordinator.
type TileStore struct {
	entries      map[ImageID]map[int]*imageEntry
	loading      map[ImageID]map[int]<-chan Result
	requestedLOD map[ImageID]int
}

// NewTileStore builds an empty store.
func NewTileStore() *TileStore {
	return &TileStore{
		entries:      make(map[ImageID]map[int]*imageEntry),
		loading:      make(map[ImageID]map[int]<-chan Result),
		requestedLOD: make(map[ImageID]int),
	}
}

// Has reports whether (imageID, lod) has a cached entry.
func (s *TileStore) Has(imageID ImageID, lod int) bool {
	lods, ok := s.entries[imageID]
	if !ok {
		return false
	}
	_, ok = lods[lod]
	return ok
}

// Get returns the cached instances and tile keys for (imageID, lod).
func (s *TileStore) Get(imageID ImageID, lod int) ([]Instance, []TileKey, bool) {
	lods, ok := s.entries[imageID]
	if !ok {
		return nil, nil, false
	}
	e, ok := lods[lod]
	if !ok {
		return nil, nil, false
	}
	return e.instances, e.tileKeys, true
}

// Set records a completed (imageID, lod) entry. Invariant: len(instances)
// == len(tileKeys) (§3 Image Entry).
func (s *TileStore) Set(imageID ImageID, lod int, instances []Instance, tileKeys []TileKey) {
	lods, ok := s.entries[imageID]
	if !ok {
		lods = make(map[int]*imageEntry)
		s.entries[imageID] = lods
	}
	lods[lod] = &imageEntry{instances: instances, tileKeys: tileKeys}
}

// IsLoading reports whether (imageID, lod) has an in-flight load.
func (s *TileStore) IsLoading(imageID ImageID, lod int) bool {
	lods, ok := s.loading[imageID]
	if !ok {
		return false
	}
	_, ok = lods[lod]
	return ok
}

// GetLoading returns the in-flight result channel for (imageID, lod).
func (s *TileStore) GetLoading(imageID ImageID, lod int) (<-chan Result, bool) {
	lods, ok := s.loading[imageID]
	if !ok {
		return nil, false
	}
	ch, ok := lods[lod]
	return ch, ok
}

// SetLoading records an in-flight load for (imageID, lod).
func (s *TileStore) SetLoading(imageID ImageID, lod int, ch <-chan Result) {
	lods, ok := s.loading[imageID]
	if !ok {
		lods = make(map[int]<-chan Result)
		s.loading[imageID] = lods
	}
	lods[lod] = ch
}

// ClearLoading removes the in-flight marker for (imageID, lod).
func (s *TileStore) ClearLoading(imageID ImageID, lod int) {
	lods, ok := s.loading[imageID]
	if !ok {
		return
	}
	delete(lods, lod)
	if len(lods) == 0 {
		delete(s.loading, imageID)
	}
}

// SetRequestedLOD records the LOD the coordinator most recently asked for
// an image, replacing any earlier value (higher or lower).
func (s *TileStore) SetRequestedLOD(imageID ImageID, lod int) {
	s.requestedLOD[imageID] = lod
}

// GetRequestedLOD returns the most recently requested LOD for imageID,
// defaulting to 0.
func (s *TileStore) GetRequestedLOD(imageID ImageID) int {
	return s.requestedLOD[imageID]
}

// ShouldPrioritize reports whether lod is still at or above the most
// recently requested LOD for imageID — i.e. whether a job targeting lod is
// not yet stale.
func (s *TileStore) ShouldPrioritize(imageID ImageID, lod int) bool {
	return lod >= s.GetRequestedLOD(imageID)
}

// BestAvailableLOD returns the closest-to-target cached LOD for imageID,
// preferring lower (coarser) fallbacks over higher ones: it scans down
// from target to 0, then up from target+1 to maxLOD. Returns -1 if none is
// cached.
func (s *TileStore) BestAvailableLOD(imageID ImageID, target, maxLOD int) int {
	for lod := target; lod >= 0; lod-- {
		if s.Has(imageID, lod) {
			return lod
		}
	}
	for lod := target + 1; lod <= maxLOD; lod++ {
		if s.Has(imageID, lod) {
			return lod
		}
	}
	return -1
}

// evictionPriority classifies a cached (imageID, lod) pair per §4.6 step 1:
// 0 (off-screen, stale LOD) is evicted before 1 (off-screen, target LOD)
// before 2 (on-screen fallback).
func evictionPriority(onScreen, isTargetLOD bool) int {
	switch {
	case !onScreen && !isTargetLOD:
		return 0
	case !onScreen && isTargetLOD:
		return 1
	default:
		return 2
	}
}

type evictCandidate struct {
	imageID  ImageID
	lod      int
	priority int
	tileKeys []TileKey
}

// EvictStale frees cached entries until atlasManager reports at least
// targetFreeSlots free slots, or no more eligible candidates remain.
// Entries in rendered or currently loading are never evicted (§4.6).
func (s *TileStore) EvictStale(rendered map[RenderedPair]bool, atlasManager *AtlasManager, visible map[ImageID]bool, targetFreeSlots int) {
	var candidates []evictCandidate
	for imageID, lods := range s.entries {
		target := s.GetRequestedLOD(imageID)
		onScreen := visible[imageID]
		for lod, entry := range lods {
			if rendered[RenderedPair{ImageID: imageID, LOD: lod}] {
				continue
			}
			if s.IsLoading(imageID, lod) {
				continue
			}
			candidates = append(candidates, evictCandidate{
				imageID:  imageID,
				lod:      lod,
				priority: evictionPriority(onScreen, lod == target),
				tileKeys: entry.tileKeys,
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority < candidates[j].priority
	})

	for _, c := range candidates {
		if atlasManager.TotalSlots()-atlasManager.UsedSlotCount() >= targetFreeSlots {
			break
		}
		for _, key := range c.tileKeys {
			atlasManager.FreeTile(key)
		}
		lods := s.entries[c.imageID]
		delete(lods, c.lod)
		if len(lods) == 0 {
			delete(s.entries, c.imageID)
		}
	}
}
