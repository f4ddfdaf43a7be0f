package tilecanvas

// Config holds the tunable constants recognized throughout the package.
// Zero-value fields are filled in by [DefaultConfig]; pass a zero Config to
// constructors and they apply the same defaults.
type Config struct {
	// TileSize is the pixel width/height of one tile (and one atlas slot).
	TileSize int
	// AtlasSize is the pixel width/height of one atlas page (layer).
	AtlasSize int
	// MaxLayers is the number of atlas pages (layers) backing the atlas.
	MaxLayers int
	// MaxLOD is the highest level of detail the LOD selector will return.
	MaxLOD int
	// BaseWorldSize is the world-space size of an image at LOD 0.
	BaseWorldSize float64
	// PoolSize is the number of concurrently in-flight tile decodes.
	PoolSize int
	// TargetFreeSlots is the default number of free atlas slots the
	// coordinator tries to maintain via eviction.
	TargetFreeSlots int
	// Gap is the world-space spacing between images in [GridLayout].
	Gap float64
}

// DefaultConfig returns the recognized default configuration constants (§6).
func DefaultConfig() Config {
	return Config{
		TileSize:        256,
		AtlasSize:       4096,
		MaxLayers:       16,
		MaxLOD:          4,
		BaseWorldSize:   4,
		PoolSize:        4,
		TargetFreeSlots: 512,
		Gap:             0.5,
	}
}

// withDefaults fills any zero fields of cfg with DefaultConfig's values.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TileSize == 0 {
		c.TileSize = d.TileSize
	}
	if c.AtlasSize == 0 {
		c.AtlasSize = d.AtlasSize
	}
	if c.MaxLayers == 0 {
		c.MaxLayers = d.MaxLayers
	}
	if c.MaxLOD == 0 {
		c.MaxLOD = d.MaxLOD
	}
	if c.BaseWorldSize == 0 {
		c.BaseWorldSize = d.BaseWorldSize
	}
	if c.PoolSize == 0 {
		c.PoolSize = d.PoolSize
	}
	if c.TargetFreeSlots == 0 {
		c.TargetFreeSlots = d.TargetFreeSlots
	}
	if c.Gap == 0 {
		c.Gap = d.Gap
	}
	return c
}

// SlotsPerLayer returns R, the number of slots per atlas dimension.
func (c Config) SlotsPerLayer() int {
	return c.AtlasSize / c.TileSize
}

// TotalSlots returns L·R·R, the fixed atlas capacity.
func (c Config) TotalSlots() int {
	r := c.SlotsPerLayer()
	return c.MaxLayers * r * r
}
