package tilecanvas

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// ebitenInstance is one queued instanced quad, buffered until Draw builds
// vertex/index data from it.
type ebitenInstance struct {
	layer                        int
	uvOffsetX, uvOffsetY, uvScale float64
	transform                    [6]float64
}

// EbitenBackend is the concrete AtlasBackend realization: L atlas layers,
// each one R*TileSize square *ebiten.Image page (ebiten has no native 3D
// array texture, so layers are separate pages, functionally identical to
// willow's multi-page Atlas.Pages), and instanced quads submitted with a
// single DrawTriangles32 call per page, following willow's batch.go
// appendSpriteQuad/flushSpriteBatch coalesced-batch approach.
type EbitenBackend struct {
	cfg       Config
	pages     []*ebiten.Image
	instances []ebitenInstance
	verts     []ebiten.Vertex
	inds      []uint32
}

// NewEbitenBackend allocates cfg.MaxLayers blank atlas pages of
// cfg.AtlasSize x cfg.AtlasSize pixels.
func NewEbitenBackend(cfg Config) *EbitenBackend {
	cfg = cfg.withDefaults()
	pages := make([]*ebiten.Image, cfg.MaxLayers)
	for i := range pages {
		pages[i] = ebiten.NewImage(cfg.AtlasSize, cfg.AtlasSize)
	}
	return &EbitenBackend{cfg: cfg, pages: pages}
}

// Upload writes a tileSize*tileSize RGBA pixel rectangle into layer at
// pixel offset (slotX, slotY).
func (b *EbitenBackend) Upload(layer, slotX, slotY, tileSize int, pixels []byte) error {
	if layer < 0 || layer >= len(b.pages) {
		return fmt.Errorf("tilecanvas: layer %d out of range [0,%d)", layer, len(b.pages))
	}
	want := tileSize * tileSize * 4
	if len(pixels) != want {
		return fmt.Errorf("tilecanvas: upload expects %d bytes, got %d", want, len(pixels))
	}
	rect := image.Rect(slotX, slotY, slotX+tileSize, slotY+tileSize)
	b.pages[layer].SubImage(rect).(*ebiten.Image).WritePixels(pixels)
	return nil
}

// AddInstance queues an instanced quad; vertex/index data is built lazily
// in Draw.
func (b *EbitenBackend) AddInstance(layer int, uvOffsetX, uvOffsetY, uvScale float64, transform [6]float64, rotation float64) int {
	if layer < 0 || layer >= len(b.pages) {
		return -1
	}
	b.instances = append(b.instances, ebitenInstance{
		layer: layer, uvOffsetX: uvOffsetX, uvOffsetY: uvOffsetY, uvScale: uvScale,
		transform: transform,
	})
	return len(b.instances) - 1
}

// ClearInstances discards the queued instance list.
func (b *EbitenBackend) ClearInstances() {
	b.instances = b.instances[:0]
}

// Flush does nothing for this backend: Draw builds the per-layer
// vertex/index data from the queued instances each time it runs.
func (b *EbitenBackend) Flush() {
	// Vertex/index construction is deferred to Draw so layer grouping only
	// happens once per actual render, not once per queued instance.
}

// Draw submits one DrawTriangles32 call per atlas layer that has queued
// instances onto target, following willow's flushSpriteBatch.
func (b *EbitenBackend) Draw(target *ebiten.Image) {
	if len(b.instances) == 0 {
		return
	}
	byLayer := make(map[int][]ebitenInstance, len(b.pages))
	for _, inst := range b.instances {
		byLayer[inst.layer] = append(byLayer[inst.layer], inst)
	}
	ts := float32(b.cfg.TileSize)
	var op ebiten.DrawTrianglesOptions
	op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha

	for layer, insts := range byLayer {
		b.verts = b.verts[:0]
		b.inds = b.inds[:0]
		pageW := float32(b.cfg.AtlasSize)
		for _, inst := range insts {
			a, bb, c, d, tx, ty := inst.transform[0], inst.transform[1], inst.transform[2], inst.transform[3], inst.transform[4], inst.transform[5]
			x0, y0 := float32(0), float32(0)
			x1, y1 := ts, float32(0)
			x2, y2 := float32(0), ts
			x3, y3 := ts, ts

			su := float32(inst.uvOffsetX) * pageW
			sv := float32(inst.uvOffsetY) * pageW
			sw := float32(inst.uvScale) * pageW

			base := uint32(len(b.verts))
			b.verts = append(b.verts,
				ebiten.Vertex{DstX: a*x0 + c*y0 + tx, DstY: bb*x0 + d*y0 + ty, SrcX: su, SrcY: sv, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
				ebiten.Vertex{DstX: a*x1 + c*y1 + tx, DstY: bb*x1 + d*y1 + ty, SrcX: su + sw, SrcY: sv, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
				ebiten.Vertex{DstX: a*x2 + c*y2 + tx, DstY: bb*x2 + d*y2 + ty, SrcX: su, SrcY: sv + sw, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
				ebiten.Vertex{DstX: a*x3 + c*y3 + tx, DstY: bb*x3 + d*y3 + ty, SrcX: su + sw, SrcY: sv + sw, ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1},
			)
			b.inds = append(b.inds, base+0, base+1, base+2, base+1, base+3, base+2)
		}
		target.DrawTriangles32(b.verts, b.inds, b.pages[layer], &op)
	}
}
