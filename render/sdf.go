package render

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Corner identifies a logical corner of a rectangle. The numeric values
// follow the storage order of per-corner fields in RectInstance
// (CornerRadii and the color array): bottom-left, top-left, bottom-right,
// top-right.
type Corner int

// Logical corners in storage order.
const (
	CornerBL Corner = iota
	CornerTL
	CornerBR
	CornerTR
)

// String returns the short corner name.
func (c Corner) String() string {
	switch c {
	case CornerBL:
		return "BL"
	case CornerTL:
		return "TL"
	case CornerBR:
		return "BR"
	case CornerTR:
		return "TR"
	}
	return "invalid"
}

// CornerPermutation maps a triangle-strip vertex slot to its logical corner.
//
// Quad vertices are generated procedurally from a 2-bit index, giving the
// emission order BL, BR, TL, TR. Per-corner colors and radii are stored in
// logical order BL, TL, BR, TR, so slots 1 and 2 cross over:
//
//	slot 0 (BL) -> CornerBL (color 0, radius .x)
//	slot 1 (BR) -> CornerBR (color 2, radius .z)
//	slot 2 (TL) -> CornerTL (color 1, radius .y)
//	slot 3 (TR) -> CornerTR (color 3, radius .w)
//
// Both the rect and blur techniques consume this table. Swapping any entry
// mirrors corner attributes diagonally, so it must never be re-derived per
// shading stage. The WGSL sources carry the same table as a const array.
var CornerPermutation = [4]Corner{CornerBL, CornerBR, CornerTL, CornerTR}

// VertexPercent returns the percentage-space quad corner for a 2-bit vertex
// index: (index&1, (index>>1)&1). Indices 0..3 yield BL, BR, TL, TR with
// (0,0) at the bottom-left. The rect and composite/finalize techniques share
// this function so their quads have identical winding and coordinate
// mapping.
func VertexPercent(index uint32) f32.Vec2 {
	return f32.Vec2{
		float32(index & 1),
		float32((index >> 1) & 1),
	}
}

// RectSDF returns the signed distance from sample to a rounded rectangle
// centered at the origin with the given half-size and corner radius.
// Negative inside, positive outside; zero on the boundary.
//
//	RectSDF(sample, halfSize, r) = length(max(|sample| - halfSize + r, 0)) - r
//
// The max with zero keeps the distance well defined (never NaN) for
// degenerate half-sizes and radii.
func RectSDF(sample, halfSize f32.Vec2, r float32) float32 {
	dx := math32.Abs(sample[0]) - halfSize[0] + r
	dy := math32.Abs(sample[1]) - halfSize[1] + r
	dx = math32.Max(dx, 0)
	dy = math32.Max(dy, 0)
	return math32.Sqrt(dx*dx+dy*dy) - r
}

// Smoothstep is the Hermite smooth threshold: 0 for x <= edge0, 1 for
// x >= edge1, and 3t^2-2t^3 in between. A degenerate edge pair
// (edge1 <= edge0) collapses to a hard step at edge0 instead of dividing
// by zero.
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}

// lerp2 interpolates the corners of an axis-aligned box (p0, p1) by a
// percentage-space position.
func lerp2(p0, p1, pct f32.Vec2) f32.Vec2 {
	return f32.Vec2{
		p0[0] + (p1[0]-p0[0])*pct[0],
		p0[1] + (p1[1]-p0[1])*pct[1],
	}
}

// bilerp4 interpolates four per-vertex vec4 attributes (indexed by vertex
// slot, emission order) at a percentage-space position, matching GPU
// attribute interpolation across the two-triangle strip.
func bilerp4(v [4]f32.Vec4, pct f32.Vec2) f32.Vec4 {
	var out f32.Vec4
	for i := 0; i < 4; i++ {
		bottom := v[0][i] + (v[1][i]-v[0][i])*pct[0]
		top := v[2][i] + (v[3][i]-v[2][i])*pct[0]
		out[i] = bottom + (top-bottom)*pct[1]
	}
	return out
}

// bilerp1 is bilerp4 for scalar per-vertex attributes.
func bilerp1(v [4]float32, pct f32.Vec2) float32 {
	bottom := v[0] + (v[1]-v[0])*pct[0]
	top := v[2] + (v[3]-v[2])*pct[0]
	return bottom + (top-bottom)*pct[1]
}
