package tilecanvas

import "math"

// identityTransform is the identity affine matrix, [a, b, c, d, tx, ty].
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// Rect is an axis-aligned rectangle in world space. The coordinate system
// has Y increasing upward (world space), matching a top-down orthographic
// camera.
type Rect struct {
	X, Y, Width, Height float64
}

// Intersects reports whether r and other overlap. Adjacent rectangles
// (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// expand returns r grown by margin on every side.
func (r Rect) expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// multiplyAffine multiplies two 2D affine matrices: result = p * c.
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix, returning the
// identity matrix if the matrix is singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// rotatePoint rotates (x, y) by theta radians about the origin.
func rotatePoint(x, y, theta float64) (float64, float64) {
	sin, cos := math.Sincos(theta)
	return x*cos - y*sin, x*sin + y*cos
}

// aabbEpsilon pads the camera AABB by a tiny margin to avoid boundary
// flicker when an image edge sits exactly on the frustum edge. Correctness
// holds with this set to 0; it is purely a floating-point safety margin
// (§9 Open Questions).
const aabbEpsilon = 1e-6

// poseAABB computes the world AABB of an image given its pose, following
// §4.4: for a base size s, scale k, rotation theta about pivot (px, py),
// the content center is (px + h(cos+sin), py + h(sin-cos)) with h = s*k/2,
// and the half-extent is h(|sin|+|cos|).
func poseAABB(pivotX, pivotY, baseSize, scale, rotation float64) Rect {
	h := baseSize * scale / 2
	sin, cos := math.Sincos(rotation)
	cx := pivotX + h*(cos+sin)
	cy := pivotY + h*(sin-cos)
	half := h * (math.Abs(sin) + math.Abs(cos))
	return Rect{
		X:      cx - half,
		Y:      cy - half,
		Width:  2 * half,
		Height: 2 * half,
	}
}
