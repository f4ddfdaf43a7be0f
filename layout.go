package tilecanvas

import (
	"math"

	"github.com/yohamta/donburi"
)

// poseComponent and aabbComponent back every image's placement data as ECS
// components, one entity per image (§4.8). This generalizes willow's
// EntityStore bridge (ecs/donburi.go), which uses donburi only as an
// optional sink for interaction events; here the ECS is the primary store
// for per-image pose, because every image genuinely is an independent
// entity with its own transform, unlike willow's nesting scene graph.
var poseComponent = donburi.NewComponentType[Pose]()
var aabbCacheComponent = donburi.NewComponentType[aabbCache]()

type aabbCache struct {
	valid  bool
	bounds Rect
	size   [2]int
	sizeOK bool
}

// ecsLayout is the shared donburi-backed bookkeeping for GridLayout and
// StackedLayout: an entity per image, carrying a Pose component and a
// cached AABB component invalidated by UpdateRotation/UpdateScale.
type ecsLayout struct {
	world     donburi.World
	entities  map[ImageID]donburi.Entity
	ids       []ImageID
	baseSize  float64
	boundsFor func(id ImageID, pose Pose) Rect
}

func newECSLayout(baseSize float64, boundsFor func(ImageID, Pose) Rect) *ecsLayout {
	return &ecsLayout{
		world:     donburi.NewWorld(),
		entities:  make(map[ImageID]donburi.Entity),
		baseSize:  baseSize,
		boundsFor: boundsFor,
	}
}

func (l *ecsLayout) entry(id ImageID) *donburi.Entry {
	e, ok := l.entities[id]
	if !ok {
		return nil
	}
	return l.world.Entry(e)
}

// setPose creates or updates the entity for id with pose, invalidating the
// cached AABB.
func (l *ecsLayout) setPose(id ImageID, pose Pose) {
	entry := l.entry(id)
	if entry == nil {
		e := l.world.Create(poseComponent, aabbCacheComponent)
		entry = l.world.Entry(e)
		l.entities[id] = e
		l.ids = append(l.ids, id)
	}
	poseComponent.SetValue(entry, pose)
	aabbCacheComponent.SetValue(entry, aabbCache{})
}

func (l *ecsLayout) setImageSize(id ImageID, w, h int) {
	entry := l.entry(id)
	if entry == nil {
		return
	}
	c := aabbCacheComponent.Get(entry)
	c.size = [2]int{w, h}
	c.sizeOK = true
	c.valid = false
	aabbCacheComponent.SetValue(entry, *c)
}

func (l *ecsLayout) Pose(id ImageID) Pose {
	entry := l.entry(id)
	if entry == nil {
		return Pose{Scale: 1}
	}
	return *poseComponent.Get(entry)
}

func (l *ecsLayout) Bounds(id ImageID) Rect {
	entry := l.entry(id)
	if entry == nil {
		return Rect{}
	}
	c := aabbCacheComponent.Get(entry)
	if c.valid {
		return c.bounds
	}
	pose := *poseComponent.Get(entry)
	bounds := l.boundsFor(id, pose)
	c.valid = true
	c.bounds = bounds
	aabbCacheComponent.SetValue(entry, *c)
	return bounds
}

func (l *ecsLayout) Images() []ImageID {
	out := make([]ImageID, len(l.ids))
	copy(out, l.ids)
	return out
}

func (l *ecsLayout) ImageSize(id ImageID) (int, int, bool) {
	entry := l.entry(id)
	if entry == nil {
		return 0, 0, false
	}
	c := aabbCacheComponent.Get(entry)
	if !c.sizeOK {
		return 0, 0, false
	}
	return c.size[0], c.size[1], true
}

func (l *ecsLayout) UpdateRotation(id ImageID, rotation float64) {
	entry := l.entry(id)
	if entry == nil {
		return
	}
	pose := *poseComponent.Get(entry)
	pose.Rotation = rotation
	poseComponent.SetValue(entry, pose)
	c := aabbCacheComponent.Get(entry)
	c.valid = false
	aabbCacheComponent.SetValue(entry, *c)
}

func (l *ecsLayout) UpdateScale(id ImageID, scale float64) {
	entry := l.entry(id)
	if entry == nil {
		return
	}
	pose := *poseComponent.Get(entry)
	pose.Scale = scale
	poseComponent.SetValue(entry, pose)
	c := aabbCacheComponent.Get(entry)
	c.valid = false
	aabbCacheComponent.SetValue(entry, *c)
}

// GridLayout places images on a uniform grid, left-to-right then top-to-
// bottom, spaced by Config.Gap world units beyond BaseWorldSize.
type GridLayout struct {
	*ecsLayout
	cols int
	step float64
}

// NewGridLayout lays out ids in a cols-wide grid, one image per cell, each
// cell BaseWorldSize+Gap apart, unscaled and unrotated.
func NewGridLayout(cfg Config, ids []ImageID) *GridLayout {
	cfg = cfg.withDefaults()
	cols := int(math.Ceil(math.Sqrt(float64(len(ids)))))
	if cols < 1 {
		cols = 1
	}
	step := cfg.BaseWorldSize + cfg.Gap
	g := &GridLayout{cols: cols, step: step}
	g.ecsLayout = newECSLayout(cfg.BaseWorldSize, g.bounds)
	for i, id := range ids {
		row := i / cols
		col := i % cols
		g.setPose(id, Pose{
			X:     float64(col) * step,
			Y:     -float64(row) * step,
			Scale: 1,
		})
	}
	return g
}

func (g *GridLayout) bounds(id ImageID, pose Pose) Rect {
	return poseAABB(pose.X, pose.Y, g.baseSize, pose.Scale, pose.Rotation)
}

// StackedLayout arranges images into stacks of stackSize, each card given
// a randomized polar offset from its stack's position and a small rotation
// jitter, both seeded by ImageID, so layouts are reproducible without
// external state.
type StackedLayout struct {
	*ecsLayout
	stackSize int
}

// NewStackedLayout arranges ids into stacks of stackSize images, the
// stacks themselves spread on a grid of spacing stackSpacing, with
// deterministic pseudo-random polar offsets and rotation per card within a
// stack (so restacking the same ids always reproduces the same layout).
func NewStackedLayout(cfg Config, ids []ImageID, stackSize int, stackSpacing float64) *StackedLayout {
	cfg = cfg.withDefaults()
	if stackSize < 1 {
		stackSize = 1
	}
	numStacks := (len(ids) + stackSize - 1) / stackSize
	cols := int(math.Ceil(math.Sqrt(float64(numStacks))))
	if cols < 1 {
		cols = 1
	}
	s := &StackedLayout{stackSize: stackSize}
	s.ecsLayout = newECSLayout(cfg.BaseWorldSize, s.bounds)
	for i, id := range ids {
		stackIdx := i / stackSize
		slotIdx := i % stackSize
		row := stackIdx / cols
		col := stackIdx % cols
		baseX := float64(col) * stackSpacing
		baseY := -float64(row) * stackSpacing

		r := deterministicJitter(id, 0)
		theta := deterministicJitter(id, 1) * 2 * math.Pi
		radius := r * cfg.BaseWorldSize * 0.3
		offX, offY := radius*math.Cos(theta), radius*math.Sin(theta)
		jitterRot := (deterministicJitter(id, 2) - 0.5) * 0.35

		s.setPose(id, Pose{
			X:        baseX + offX,
			Y:        baseY + offY,
			Z:        float64(slotIdx),
			Rotation: jitterRot,
			Scale:    1,
		})
	}
	return s
}

func (s *StackedLayout) bounds(id ImageID, pose Pose) Rect {
	return poseAABB(pose.X, pose.Y, s.baseSize, pose.Scale, pose.Rotation)
}

// deterministicJitter derives a stable pseudo-random value in [0, 1) from
// id and salt, using a splitmix64-style mix so stacks are reproducible
// across runs without storing per-card random state.
func deterministicJitter(id ImageID, salt uint64) float64 {
	x := uint64(id)*0x9E3779B97F4A7C15 + salt*0xBF58476D1CE4E5B9
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return float64(x>>11) / float64(1<<53)
}
