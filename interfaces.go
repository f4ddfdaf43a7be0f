package tilecanvas

import (
	"context"
	"image"
)

// AtlasBackend is the narrow graphics contract the Atlas Manager (C2)
// drives. It models uploading pixels into one of L atlas pages and
// submitting an instanced quad for a slot; the concrete realization of L
// pages as separate GPU textures (rather than one 3D array texture) is an
// implementation detail of the backend, not of this contract.
type AtlasBackend interface {
	// Upload writes a TileSize×TileSize RGBA pixel rectangle into layer at
	// pixel offset (slotX, slotY).
	Upload(layer, slotX, slotY, tileSize int, pixels []byte) error
	// AddInstance appends an instanced quad sampling layer at UV offset
	// (uvOffsetX, uvOffsetY) with extent uvScale in both axes, placed by
	// transform (a 2D affine [a,b,c,d,tx,ty]) and rotated by rotation
	// radians. Returns the instance's index.
	AddInstance(layer int, uvOffsetX, uvOffsetY, uvScale float64, transform [6]float64, rotation float64) int
	// ClearInstances discards all submitted instances, ready for the next
	// frame's rebuild.
	ClearInstances()
	// Flush marks any pending GPU-side buffers dirty so the next Draw call
	// picks up the latest instance list.
	Flush()
}

// CameraView is the narrow camera contract C4/C7 consult: position, zoom,
// and an orthographic frustum looking along -Z.
type CameraView interface {
	Position() (x, y float64)
	Zoom() float64
	Frustum() (left, right, top, bottom float64)
}

// ImageFetcher is the narrow fetch+decode contract the Tile Decoder Pool
// (C5) drives.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// ImageLayout is the narrow layout contract the Visibility Oracle (C4) and
// Frame Coordinator (C7) consult for per-image placement (C8).
type ImageLayout interface {
	// Pose returns the world placement of id.
	Pose(id ImageID) Pose
	// Bounds returns the world AABB of id, matching the extent the tile
	// mesh would have for the same pose (§4.4/§4.7).
	Bounds(id ImageID) Rect
	// Images returns every image ID the layout knows about, in a stable
	// order.
	Images() []ImageID
	// ImageSize returns the source pixel dimensions of id, when known; ok
	// is false when unknown (used to cap MaxUsefulLOD).
	ImageSize(id ImageID) (w, h int, ok bool)
	// UpdateRotation and UpdateScale invalidate any cached bounds for id
	// and record the new value.
	UpdateRotation(id ImageID, rotation float64)
	UpdateScale(id ImageID, scale float64)
}
