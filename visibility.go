package tilecanvas

import "sort"

// visibilityGridPadding expands the camera AABB, before bucketing into grid
// cells, by this multiple of the largest image extent seen. It exists so an
// image whose AABB straddles a cell boundary just outside the raw camera
// AABB is still found. Set to 1.0 it is still correct (just less
// conservative); the padding only affects which cells are scanned, never
// the final intersection test (§9 Open Questions).
const visibilityGridPadding = 1.42

// gridCellDivisor sizes each grid cell relative to the largest image
// extent observed, so that an image can span at most a handful of cells.
const gridCellDivisor = 1.0

// VisibilityOracle answers which images intersect the camera frustum (C4).
// It rebuilds a uniform spatial grid from the layout's current bounds on
// every query; for the canvas sizes this package targets (10^3-10^4
// images) that rebuild is cheap relative to decoding, and it keeps the
// oracle correct under layouts that mutate pose/scale between frames.
type VisibilityOracle struct {
	layout ImageLayout
}

// NewVisibilityOracle builds an oracle over layout.
func NewVisibilityOracle(layout ImageLayout) *VisibilityOracle {
	return &VisibilityOracle{layout: layout}
}

type visEntry struct {
	id     ImageID
	bounds Rect
}

// cameraAABB computes the world AABB of an orthographic camera's frustum,
// per §4.4: half-widths (right-left)/(2*zoom) and (top-bottom)/(2*zoom)
// about the camera position, padded by epsilon.
func cameraAABB(c CameraView, epsilon float64) Rect {
	x, y := c.Position()
	zoom := c.Zoom()
	if zoom <= 0 {
		zoom = 1
	}
	left, right, top, bottom := c.Frustum()
	hw := (right - left) / (2 * zoom)
	hh := (top - bottom) / (2 * zoom)
	return Rect{
		X:      x - hw - epsilon,
		Y:      y - hh - epsilon,
		Width:  2*hw + 2*epsilon,
		Height: 2*hh + 2*epsilon,
	}
}

// buildGrid buckets every image's bounds into cells of side cellSize,
// returning the bucket map, the cell size used, and the largest extent
// observed (the largest bounds width or height).
func buildGrid(entries []visEntry) (grid map[[2]int][]int, cellSize float64, maxExtent float64) {
	for _, e := range entries {
		if e.bounds.Width > maxExtent {
			maxExtent = e.bounds.Width
		}
		if e.bounds.Height > maxExtent {
			maxExtent = e.bounds.Height
		}
	}
	if maxExtent <= 0 {
		maxExtent = 1
	}
	cellSize = maxExtent * gridCellDivisor
	grid = make(map[[2]int][]int, len(entries))
	for i, e := range entries {
		cx, cy := e.bounds.X+e.bounds.Width/2, e.bounds.Y+e.bounds.Height/2
		cell := cellOf(cx, cy, cellSize)
		grid[cell] = append(grid[cell], i)
	}
	return grid, cellSize, maxExtent
}

func cellOf(x, y, cellSize float64) [2]int {
	return [2]int{floorDiv(x, cellSize), floorDiv(y, cellSize)}
}

func floorDiv(v, cellSize float64) int {
	q := v / cellSize
	i := int(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}

// VisibleImages returns every image whose world AABB intersects the
// camera's world AABB, sorted by ImageID for deterministic iteration order
// downstream (§4.4, §9 Determinism).
func (o *VisibilityOracle) VisibleImages(camera CameraView) []ImageID {
	return o.visibleImages(camera, aabbEpsilon, visibilityGridPadding)
}

func (o *VisibilityOracle) visibleImages(camera CameraView, epsilon, gridPadding float64) []ImageID {
	ids := o.layout.Images()
	entries := make([]visEntry, len(ids))
	for i, id := range ids {
		entries[i] = visEntry{id: id, bounds: o.layout.Bounds(id)}
	}
	grid, cellSize, maxExtent := buildGrid(entries)

	cam := cameraAABB(camera, epsilon)
	padded := cam.expand(maxExtent * gridPadding)

	minCell := cellOf(padded.X, padded.Y, cellSize)
	maxCell := cellOf(padded.X+padded.Width, padded.Y+padded.Height, cellSize)

	seen := make(map[int]bool)
	var out []ImageID
	for gx := minCell[0]; gx <= maxCell[0]; gx++ {
		for gy := minCell[1]; gy <= maxCell[1]; gy++ {
			for _, idx := range grid[[2]int{gx, gy}] {
				if seen[idx] {
					continue
				}
				seen[idx] = true
				if entries[idx].bounds.Intersects(cam) {
					out = append(out, entries[idx].id)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsImageVisible reports whether id's bounds intersect the camera AABB,
// consistent with VisibleImages.
func (o *VisibilityOracle) IsImageVisible(id ImageID, camera CameraView) bool {
	return o.layout.Bounds(id).Intersects(cameraAABB(camera, aabbEpsilon))
}

// naiveVisibleImages scans every image unconditionally; used only by tests
// to cross-check VisibleImages' grid-pruned result (§8 Visibility
// agreement).
func naiveVisibleImages(layout ImageLayout, camera CameraView, epsilon float64) []ImageID {
	cam := cameraAABB(camera, epsilon)
	var out []ImageID
	for _, id := range layout.Images() {
		if layout.Bounds(id).Intersects(cam) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
