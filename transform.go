package sketchpad

import (
	"math"

	"golang.org/x/image/math/f64"
)

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// featureTransform computes the matrix that maps a feature's local frame
// (origin at the feature center, unrotated, unflipped) to canvas space.
//
// Composition order:
//
//	Translate(center) -> Rotate(rotation) -> Scale(flipH ? -1 : 1, flipV ? -1 : 1)
func featureTransform(f *PlacedFeature) [6]float64 {
	sin, cos := math.Sincos(f.Rotation * math.Pi / 180)
	fx, fy := 1.0, 1.0
	if f.FlipH {
		fx = -1
	}
	if f.FlipV {
		fy = -1
	}
	c := f.Center()
	return [6]float64{cos * fx, sin * fx, -sin * fy, cos * fy, c.X, c.Y}
}

// decorationTransform is featureTransform without the flip, used for hit
// testing handles so they keep their nominal positions.
func decorationTransform(f *PlacedFeature) [6]float64 {
	sin, cos := math.Sincos(f.Rotation * math.Pi / 180)
	c := f.Center()
	return [6]float64{cos, sin, -sin, cos, c.X, c.Y}
}

// imageTransform maps source image pixels (iw x ih) onto the feature's local
// rectangle (-w/2, -h/2, w, h) and on through m.
func imageTransform(m [6]float64, f *PlacedFeature, iw, ih int) [6]float64 {
	if iw <= 0 || ih <= 0 {
		return m
	}
	local := [6]float64{
		f.Width / float64(iw), 0,
		0, f.Height / float64(ih),
		-f.Width / 2, -f.Height / 2,
	}
	return multiplyAffine(m, local)
}

// scaleTransform returns a uniform scale matrix.
func scaleTransform(s float64) [6]float64 {
	return [6]float64{s, 0, 0, s, 0, 0}
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
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

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular.
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

// toAff3 converts to the row-major layout used by golang.org/x/image/draw.
func toAff3(m [6]float64) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}
