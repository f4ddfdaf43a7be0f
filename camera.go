package tilecanvas

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Camera is the bundled CameraView realization: an orthographic, top-down
// camera with optional smooth pan/zoom tweening, following willow's
// camera.go ScrollTo/scrollAnim pattern.
type Camera struct {
	X, Y float64
	zoom float64

	// ViewportW and ViewportH are the screen-space dimensions this camera
	// renders into; the frustum is derived from them and Zoom.
	ViewportW, ViewportH float64

	scrollX, scrollY *gween.Tween
	zoomTween        *gween.Tween
}

// NewCamera builds a camera centered at the origin with zoom 1, sized for
// a viewportW x viewportH screen.
func NewCamera(viewportW, viewportH float64) *Camera {
	return &Camera{zoom: 1, ViewportW: viewportW, ViewportH: viewportH}
}

// Position implements CameraView.
func (c *Camera) Position() (float64, float64) { return c.X, c.Y }

// Zoom implements CameraView.
func (c *Camera) Zoom() float64 { return c.zoom }

// SetZoom sets the zoom factor directly, canceling any in-flight ZoomTo.
func (c *Camera) SetZoom(z float64) {
	c.zoomTween = nil
	c.zoom = z
}

// Frustum implements CameraView: a symmetric orthographic box in
// screen-pixel units. Zoom is not applied here; the caller divides by it
// (see cameraAABB in visibility.go).
func (c *Camera) Frustum() (left, right, top, bottom float64) {
	hw := c.ViewportW / 2
	hh := c.ViewportH / 2
	return -hw, hw, hh, -hh
}

// ScrollTo animates the camera to (x, y) over duration seconds using
// easeFn, following willow's ScrollTo.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scrollX = gween.New(float32(c.X), float32(x), duration, easeFn)
	c.scrollY = gween.New(float32(c.Y), float32(y), duration, easeFn)
}

// ZoomTo animates the zoom factor to z over duration seconds using easeFn.
func (c *Camera) ZoomTo(z float64, duration float32, easeFn ease.TweenFunc) {
	c.zoomTween = gween.New(float32(c.zoom), float32(z), duration, easeFn)
}

// Update advances any in-flight ScrollTo/ZoomTo tweens by dt seconds. Call
// once per frame before the Frame Coordinator consults the camera.
func (c *Camera) Update(dt float32) {
	if c.scrollX != nil {
		x, done := c.scrollX.Update(dt)
		c.X = float64(x)
		if done {
			c.scrollX = nil
		}
	}
	if c.scrollY != nil {
		y, done := c.scrollY.Update(dt)
		c.Y = float64(y)
		if done {
			c.scrollY = nil
		}
	}
	if c.zoomTween != nil {
		z, done := c.zoomTween.Update(dt)
		c.zoom = float64(z)
		if done {
			c.zoomTween = nil
		}
	}
}
