package tilecanvas

import "math"

// AtlasManager owns the GPU atlas (C2): it wraps a SlotAllocator with an
// AtlasBackend and maintains the per-instance draw list submitted to the
// backend each frame.
type AtlasManager struct {
	cfg       Config
	slots     *SlotAllocator
	backend   AtlasBackend
	instances int
}

// NewAtlasManager builds an atlas manager over backend, sized per cfg.
func NewAtlasManager(cfg Config, backend AtlasBackend) *AtlasManager {
	cfg = cfg.withDefaults()
	return &AtlasManager{
		cfg:     cfg,
		slots:   NewSlotAllocator(cfg.MaxLayers, cfg.SlotsPerLayer()),
		backend: backend,
	}
}

// UploadTile allocates (or reuses) the slot for key and uploads bitmap's
// pixels into it. bitmap must be TileSize*TileSize*4 bytes of RGBA pixels.
// If the backend returns an error the slot is still held — the caller may
// retry the upload next frame without losing its place in the atlas.
func (m *AtlasManager) UploadTile(key TileKey, bitmap []byte) (SlotID, error) {
	slot, _, err := m.slots.Allocate(key)
	if err != nil {
		return SlotID{}, err
	}
	px := slot.Col * m.cfg.TileSize
	py := slot.Row * m.cfg.TileSize
	if err := m.backend.Upload(slot.Layer, px, py, m.cfg.TileSize, bitmap); err != nil {
		logger().Error("atlas upload failed", "key", key, "slot", slot, "err", err)
		return slot, err
	}
	return slot, nil
}

// FreeTile releases key's slot. It does not clear pixels; the next upload
// to that slot overwrites them.
func (m *AtlasManager) FreeTile(key TileKey) {
	m.slots.Free(key)
}

// Has reports whether key currently holds a slot.
func (m *AtlasManager) Has(key TileKey) bool {
	return m.slots.Has(key)
}

// AddInstanceWithZ appends a renderable instance for slot at world position
// (x, y, z) with per-axis scale and rotation, using the atlas UV rectangle
// that slot occupies. Returns -1 if slotOK is false (caller has no slot to
// render, e.g. BestAvailableLOD returned none).
func (m *AtlasManager) AddInstanceWithZ(slot SlotID, slotOK bool, x, y, z, scaleX, scaleY, rotation float64) int {
	if !slotOK {
		return -1
	}
	uvScale := float64(m.cfg.TileSize) / float64(m.cfg.AtlasSize)
	uvX := float64(slot.Col) * uvScale
	uvY := float64(slot.Row) * uvScale

	transform := computeLocalTransform(x, y, scaleX, scaleY, rotation)
	idx := m.backend.AddInstance(slot.Layer, uvX, uvY, uvScale, transform, rotation)
	if idx >= 0 {
		m.instances++
	}
	// z is accepted here only to keep this signature symmetric with the
	// pose it was computed from; z-ordering itself is enforced by the
	// caller (Coordinator.rebuildInstances) sorting its instance list by
	// WorldZ before calling AddInstanceWithZ, since this backend submits
	// instances to AddInstance in call order with no depth test.
	_ = z
	return idx
}

// ClearInstances discards the accumulated instance list, preparing for the
// next frame's rebuild.
func (m *AtlasManager) ClearInstances() {
	m.backend.ClearInstances()
	m.instances = 0
}

// Update marks the backend's GPU-side buffers dirty.
func (m *AtlasManager) Update() {
	m.backend.Flush()
}

// UsedSlotCount returns the number of currently allocated slots.
func (m *AtlasManager) UsedSlotCount() int {
	return m.slots.UsedCount()
}

// TotalSlots returns the fixed atlas capacity L*R*R.
func (m *AtlasManager) TotalSlots() int {
	return m.slots.TotalSlots()
}

// TileCount is an alias for UsedSlotCount: one slot per resident tile.
func (m *AtlasManager) TileCount() int {
	return m.slots.UsedCount()
}

// computeLocalTransform builds the 2D affine matrix for a translate *
// rotate_z * scale composition, following willow's transform.go
// computeLocalTransform.
func computeLocalTransform(x, y, scaleX, scaleY, rotation float64) [6]float64 {
	sin, cos := math.Sincos(rotation)
	return [6]float64{
		cos * scaleX, sin * scaleX,
		-sin * scaleY, cos * scaleY,
		x, y,
	}
}
