package tilecanvas

import (
	"testing"

	"github.com/tanema/gween/ease"
)

func TestCameraFrustumSymmetric(t *testing.T) {
	c := NewCamera(800, 600)
	left, right, top, bottom := c.Frustum()
	if left != -400 || right != 400 || top != 300 || bottom != -300 {
		t.Fatalf("Frustum() = (%v,%v,%v,%v), want symmetric (-400,400,300,-300)", left, right, top, bottom)
	}
}

func TestCameraScrollToReachesTarget(t *testing.T) {
	c := NewCamera(800, 600)
	c.ScrollTo(100, -50, 1.0, ease.Linear)
	for i := 0; i < 120; i++ {
		c.Update(1.0 / 60)
	}
	x, y := c.Position()
	if absF(x-100) > 0.01 || absF(y-(-50)) > 0.01 {
		t.Fatalf("camera position after scroll = (%v,%v), want (100,-50)", x, y)
	}
}

func TestCameraZoomToReachesTarget(t *testing.T) {
	c := NewCamera(800, 600)
	c.ZoomTo(4, 0.5, ease.Linear)
	for i := 0; i < 60; i++ {
		c.Update(1.0 / 60)
	}
	if absF(c.Zoom()-4) > 0.01 {
		t.Fatalf("camera zoom after ZoomTo = %v, want 4", c.Zoom())
	}
}

func TestCameraSetZoomCancelsTween(t *testing.T) {
	c := NewCamera(800, 600)
	c.ZoomTo(4, 5.0, ease.Linear)
	c.SetZoom(2)
	c.Update(1.0 / 60)
	if c.Zoom() != 2 {
		t.Fatalf("SetZoom should cancel in-flight ZoomTo: zoom = %v, want 2", c.Zoom())
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
