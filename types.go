package tilecanvas

// ImageID identifies one image on the canvas.
type ImageID uint64

// TileKey stably identifies one tile: a specific image, level of detail,
// and tile grid coordinate within that (image, lod) pair.
type TileKey struct {
	ImageID ImageID
	LOD     int
	TileX   int
	TileY   int
}

// Pose is the world placement of an image: position, z-order, rotation
// (radians), and uniform scale relative to BaseWorldSize.
type Pose struct {
	X, Y, Z  float64
	Rotation float64
	Scale    float64
}

// Instance is one renderable tile: the slot backing its pixels and its
// placement in world space. Derived from the owning image's pose and the
// tile's local offset within the image at its LOD (§4.7 tile processing).
type Instance struct {
	Slot        SlotID
	WorldX      float64
	WorldY      float64
	WorldZ      float64
	TileWorldW  float64
	TileWorldH  float64
	Rotation    float64
}
