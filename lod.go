package tilecanvas

import "math"

// TilePixelDensity returns the screen pixel density a tile at lod provides,
// in tile-pixels per world unit: TILE_SIZE · 2^lod / BASE_WORLD_SIZE.
func TilePixelDensity(lod int, tileSize int, baseWorldSize float64) float64 {
	return float64(tileSize) * math.Pow(2, float64(lod)) / baseWorldSize
}

// SelectLOD returns the lowest LOD whose tile density equals or exceeds the
// demanded screen density screenPxPerUnit, capped at maxLOD. It is monotonic
// in screenPxPerUnit and never pixelated up to the cap (§8).
func SelectLOD(screenPxPerUnit float64, tileSize int, baseWorldSize float64, maxLOD int) int {
	if screenPxPerUnit <= 0 {
		return 0
	}
	ratio := screenPxPerUnit / (float64(tileSize) / baseWorldSize)
	if ratio <= 1 {
		return 0
	}
	lod := int(math.Ceil(math.Log2(ratio)))
	if lod > maxLOD {
		return maxLOD
	}
	return lod
}

// MaxUsefulLOD returns the highest LOD that does not upscale source pixels:
// 0 if the source is no larger than one tile, else floor(log2(source/tile)).
func MaxUsefulLOD(imagePixelSize, tileSize int) int {
	if imagePixelSize <= tileSize {
		return 0
	}
	return int(math.Floor(math.Log2(float64(imagePixelSize) / float64(tileSize))))
}

// SelectImageLOD is SelectLOD adjusted for one image's world scale and,
// when known, capped by the image's own source resolution. A scale of k
// means the image's tiles cover k times more world space per tile, so
// demanded tile density in the tile's local (unscaled) coordinates is k
// times higher.
func SelectImageLOD(screenPxPerUnit float64, tileSize int, baseWorldSize float64, maxLOD int, imagePixelSize int, imageScale float64) int {
	if imageScale <= 0 {
		imageScale = 1
	}
	lod := SelectLOD(screenPxPerUnit*imageScale, tileSize, baseWorldSize, maxLOD)
	if imagePixelSize > 0 {
		if cap := MaxUsefulLOD(imagePixelSize, tileSize); cap < lod {
			lod = cap
		}
	}
	return lod
}
