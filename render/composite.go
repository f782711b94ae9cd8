package render

import (
	"golang.org/x/image/math/f32"
)

// The composite and finalize techniques are bufferless fullscreen blits: four
// vertices of a triangle strip, positions and texture coordinates derived
// from the vertex index alone. Geo3D composite merges an offscreen 3D target
// into the 2D scene mid-frame; finalize is the terminal copy into the
// presentable target with alpha forced opaque.

// FullscreenVertex returns the clip-space position and texture coordinate
// for one vertex of the fullscreen quad strip. The texture coordinate is
// vertically flipped so a y-down source image lands upright in the y-up
// clip-space quad.
func FullscreenVertex(index uint32) (pos f32.Vec4, uv f32.Vec2) {
	pct := VertexPercent(index)
	pos = f32.Vec4{pct[0]*2 - 1, pct[1]*2 - 1, 0, 1}
	uv = f32.Vec2{pct[0], 1 - pct[1]}
	return pos, uv
}

// EvalComposite is the CPU reference for the geo3d composite fragment stage:
// a straight passthrough of the source sample, alpha included, so the 3D
// target's coverage blends over the scene.
func EvalComposite(u, v float32, src TextureFunc) f32.Vec4 {
	return src(u, v)
}

// EvalFinalize is the CPU reference for the finalize fragment stage: the
// source color with alpha forced to 1, making the presented image opaque
// regardless of what intermediate blending left in the alpha channel.
func EvalFinalize(u, v float32, src TextureFunc) f32.Vec4 {
	c := src(u, v)
	return f32.Vec4{c[0], c[1], c[2], 1}
}
