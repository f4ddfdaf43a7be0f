// gridviewer pans and zooms across a grid of a few thousand procedurally
// generated images, exercising the full tilecanvas pipeline end to end: a
// stress test in the spirit of willow's sprites10k demo, but for the tile
// cache instead of the batch renderer.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/tanema/gween/ease"

	"github.com/driftatlas/tilecanvas"
)

const (
	screenW    = 1280
	screenH    = 720
	imageCount = 2000
)

// proceduralFetcher synthesizes a deterministic colorful image per image
// ID instead of reaching out to a network, so the demo is reproducible and
// offline. Each image gets its own solid hue plus a coordinate grid
// overlay so tile boundaries are visible while debugging.
type proceduralFetcher struct{}

func (proceduralFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	var id int
	if _, err := fmt.Sscanf(url, "tile://%d", &id); err != nil {
		return nil, fmt.Errorf("gridviewer: bad url %q: %w", url, err)
	}
	const size = 512
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	rnd := rand.New(rand.NewPCG(uint64(id), 0xC0FFEE))
	hue := color.RGBA{
		R: uint8(64 + rnd.IntN(160)),
		G: uint8(64 + rnd.IntN(160)),
		B: uint8(64 + rnd.IntN(160)),
		A: 255,
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x%32 == 0 || y%32 == 0 {
				img.SetRGBA(x, y, color.RGBA{A: 255})
				continue
			}
			img.SetRGBA(x, y, hue)
		}
	}
	return img, nil
}

type game struct {
	cfg    tilecanvas.Config
	atlas  *tilecanvas.AtlasManager
	backend *tilecanvas.EbitenBackend
	coord  *tilecanvas.Coordinator
	camera *tilecanvas.Camera
	dpr    float64
}

func newGame() *game {
	cfg := tilecanvas.DefaultConfig()
	backend := tilecanvas.NewEbitenBackend(cfg)
	atlas := tilecanvas.NewAtlasManager(cfg, backend)
	store := tilecanvas.NewTileStore()
	pool := tilecanvas.NewDecoderPool(cfg, proceduralFetcher{})

	ids := make([]tilecanvas.ImageID, imageCount)
	for i := range ids {
		ids[i] = tilecanvas.ImageID(i)
	}
	layout := tilecanvas.NewGridLayout(cfg, ids)
	oracle := tilecanvas.NewVisibilityOracle(layout)

	urlFor := func(id tilecanvas.ImageID) string { return fmt.Sprintf("tile://%d", id) }
	coord := tilecanvas.NewCoordinator(cfg, atlas, store, pool, oracle, layout, urlFor)

	camera := tilecanvas.NewCamera(screenW, screenH)
	return &game{cfg: cfg, atlas: atlas, backend: backend, coord: coord, camera: camera, dpr: 1}
}

func (g *game) Update() error {
	const panSpeed = 6.0
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		g.camera.Y += panSpeed / g.camera.Zoom()
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		g.camera.Y -= panSpeed / g.camera.Zoom()
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		g.camera.X -= panSpeed / g.camera.Zoom()
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		g.camera.X += panSpeed / g.camera.Zoom()
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		target := g.camera.Zoom() * (1 + dy*0.1)
		g.camera.ZoomTo(target, 0.2, ease.OutCubic)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.camera.ScrollTo(0, 0, 0.6, ease.OutCubic)
		g.camera.ZoomTo(1, 0.6, ease.OutCubic)
	}
	g.camera.Update(1.0 / 60)

	g.coord.Frame(context.Background(), g.camera, g.dpr)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 18, B: 24, A: 255})
	g.backend.Draw(screen)
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"FPS: %.1f\nslots: %d/%d\nrendered images: %d",
		ebiten.ActualFPS(), g.atlas.UsedSlotCount(), g.atlas.TotalSlots(), len(g.coord.RenderedImages()),
	))
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func main() {
	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("tilecanvas gridviewer")
	if err := ebiten.RunGame(newGame()); err != nil {
		log.Fatal(err)
	}
}
