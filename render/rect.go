package render

import (
	"golang.org/x/image/math/f32"
)

// RectInstanceSize is the byte stride of one RectInstance in the instanced
// vertex buffer: 8 vec4 attributes, tightly packed.
const RectInstanceSize = 128

// RectUniformsSize is the byte size of the rect uniform block.
// Layout (matches RectUniforms in rect.wgsl):
//
//	viewport_size (vec2) + opacity (f32) + pad     = 16 bytes
//	channel_map (mat4x4)                           = 64 bytes
//	texture_size (vec2) + pad (vec2)               = 16 bytes
//	xform (mat3x3, 3 vec4 columns)                 = 48 bytes
//	xform_scale (f32) + pad                        = 16 bytes
const RectUniformsSize = 160

// RectStyle packs the rect technique's scalar style parameters. The field
// order matches the style vec4 in rect.wgsl.
type RectStyle struct {
	// BorderThickness in pixels; 0 disables the border.
	BorderThickness float32

	// Softness is the edge anti-aliasing half-width in pixels.
	Softness float32

	// OmitTexture > 0.5 replaces the texture sample with solid white.
	OmitTexture float32

	// Unused keeps the style vector at vec4 width.
	Unused float32
}

// RectInstance is one rounded rectangle in an instanced rect batch.
// Must match the Instance struct in rect.wgsl; the GPU consumes instances
// as an array-of-structs with stride RectInstanceSize.
type RectInstance struct {
	// DstRect is the destination box in pixel space: min.xy, max.xy.
	DstRect f32.Vec4

	// SrcRect is the source texture-atlas region in pixel space.
	SrcRect f32.Vec4

	// Colors holds the straight-RGBA corner colors, indexed by Corner
	// (storage order BL, TL, BR, TR).
	Colors [4]f32.Vec4

	// CornerRadii holds the per-corner radii in the same storage order:
	// x=BL, y=TL, z=BR, w=TR.
	CornerRadii f32.Vec4

	Style RectStyle
}

// RectUniforms is the per-batch uniform block for the rect technique.
// Must match RectUniforms in rect.wgsl, including padding.
type RectUniforms struct {
	// ViewportSize is the target size in pixels.
	ViewportSize f32.Vec2

	// Opacity is the global opacity applied to every instance.
	Opacity float32

	_ float32

	// ChannelMap is a column-major 4x4 matrix applied to every texture
	// sample, supporting single-channel and swizzled texture formats.
	ChannelMap [4]f32.Vec4

	// TextureSize is the source texture size in pixels; src rects divide
	// by it to produce sample coordinates.
	TextureSize f32.Vec2

	_ [2]float32

	// Xform is a column-major 3x3 2D affine transform (each column padded
	// to vec4) applied to destination positions.
	Xform [3]f32.Vec4

	// XformScale is the transform's uniform scale factor. SDF sample
	// positions and half-sizes are multiplied by it so distances stay in
	// pixels under non-unit scale.
	XformScale float32

	_ [3]float32
}

// NewRectUniforms returns uniforms for an untransformed batch: identity
// transform and channel map, full opacity, unit texture size.
func NewRectUniforms(viewportW, viewportH float32) RectUniforms {
	return RectUniforms{
		ViewportSize: f32.Vec2{viewportW, viewportH},
		Opacity:      1,
		ChannelMap:   ChannelMapIdentity(),
		TextureSize:  f32.Vec2{1, 1},
		Xform:        IdentityXform(),
		XformScale:   1,
	}
}

// ChannelMapIdentity returns the channel map that passes texture samples
// through unchanged.
func ChannelMapIdentity() [4]f32.Vec4 {
	return [4]f32.Vec4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// ChannelMapBroadcastR returns the channel map for single-channel textures:
// the sampled red channel is broadcast to all four output channels, so an
// R8 glyph/icon atlas behaves as a white image with per-pixel alpha.
func ChannelMapBroadcastR() [4]f32.Vec4 {
	return [4]f32.Vec4{
		{1, 1, 1, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
}

// IdentityXform returns the identity 2D affine transform columns.
func IdentityXform() [3]f32.Vec4 {
	return [3]f32.Vec4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Xform2D builds the column-major transform columns from the affine
// coefficients
//
//	| a c tx |
//	| b d ty |
func Xform2D(a, b, c, d, tx, ty float32) [3]f32.Vec4 {
	return [3]f32.Vec4{
		{a, b, 0, 0},
		{c, d, 0, 0},
		{tx, ty, 1, 0},
	}
}

// DstToNDC maps a destination pixel-space point through the batch transform
// to normalized device coordinates: divide by viewport, remap to [-1,1],
// vertical axis inverted relative to the y-down pixel-space convention.
func (u *RectUniforms) DstToNDC(p f32.Vec2) f32.Vec2 {
	x := u.Xform[0][0]*p[0] + u.Xform[1][0]*p[1] + u.Xform[2][0]
	y := u.Xform[0][1]*p[0] + u.Xform[1][1]*p[1] + u.Xform[2][1]
	return f32.Vec2{
		2*x/u.ViewportSize[0] - 1,
		-(2*y/u.ViewportSize[1] - 1),
	}
}

// ApplyChannelMap multiplies a texture sample by the column-major channel
// map: out = M * sample.
func ApplyChannelMap(m [4]f32.Vec4, sample f32.Vec4) f32.Vec4 {
	var out f32.Vec4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row] += m[col][row] * sample[col]
		}
	}
	return out
}

// RectBorderCoverage returns the border factor at an SDF sample position:
// 1 with no border, otherwise 0 inside the interior region rising to 1 on
// and outside the border ring. The interior shrinks the half-size by
// 2*softness + border and the radius by border (floored at 0).
func RectBorderCoverage(sample, halfSize f32.Vec2, radius, border, softness float32) float32 {
	if border <= 0 {
		return 1
	}
	innerHalf := f32.Vec2{
		halfSize[0] - 2*softness - border,
		halfSize[1] - 2*softness - border,
	}
	innerRadius := radius - border
	if innerRadius < 0 {
		innerRadius = 0
	}
	d := RectSDF(sample, innerHalf, innerRadius)
	return Smoothstep(0, max32(2*softness, 1), d)
}

// RectCornerCoverage returns the rounded-outline factor at an SDF sample
// position: 1 deep inside, falling to 0 outside the outline. Evaluated only
// when a radius is set or softness exceeds 0.75; otherwise the quad edge is
// the outline and coverage is 1.
func RectCornerCoverage(sample, halfSize f32.Vec2, radius, softness float32) float32 {
	if radius <= 0 && softness <= 0.75 {
		return 1
	}
	shrunk := f32.Vec2{halfSize[0] - 2*softness, halfSize[1] - 2*softness}
	d := RectSDF(sample, shrunk, radius)
	return 1 - Smoothstep(0, max32(2*softness, 1), d)
}

// TextureFunc samples a source texture at coordinates in [0,1]. A nil
// TextureFunc behaves as a solid white texture.
type TextureFunc func(u, v float32) f32.Vec4

// EvalRect is the CPU reference for the rect fragment stage. It evaluates
// one instance at a point in destination pixel space (before the batch
// transform, which moves geometry but not the per-rect math) and reports
// whether the pixel is written at all: points on or outside DstRect, and
// points whose final alpha falls below 0.001, produce no write.
//
// The returned color is straight RGBA: tint.rgb * tex.rgb with alpha
// tint.a * tex.a * opacity * corner * border. The GPU pipeline premultiplies
// by alpha on output for its blend state; this reference reports the color
// before that step.
func EvalRect(inst *RectInstance, uni *RectUniforms, px, py float32, tex TextureFunc) (f32.Vec4, bool) {
	p0 := f32.Vec2{inst.DstRect[0], inst.DstRect[1]}
	p1 := f32.Vec2{inst.DstRect[2], inst.DstRect[3]}
	if px <= p0[0] || px >= p1[0] || py <= p0[1] || py >= p1[1] {
		return f32.Vec4{}, false
	}

	pct := f32.Vec2{
		(px - p0[0]) / (p1[0] - p0[0]),
		(py - p0[1]) / (p1[1] - p0[1]),
	}

	// Per-vertex attribute selection through the shared corner permutation,
	// then interpolation as the GPU would do across the strip.
	var slotColors [4]f32.Vec4
	var slotRadii [4]float32
	for slot := 0; slot < 4; slot++ {
		c := CornerPermutation[slot]
		slotColors[slot] = inst.Colors[c]
		slotRadii[slot] = inst.CornerRadii[c]
	}
	tint := bilerp4(slotColors, pct)
	radius := bilerp1(slotRadii, pct)

	center := f32.Vec2{(p0[0] + p1[0]) / 2, (p0[1] + p1[1]) / 2}
	sample := f32.Vec2{
		(px - center[0]) * uni.XformScale,
		(py - center[1]) * uni.XformScale,
	}
	halfSize := f32.Vec2{
		(p1[0] - p0[0]) / 2 * uni.XformScale,
		(p1[1] - p0[1]) / 2 * uni.XformScale,
	}

	texSample := f32.Vec4{1, 1, 1, 1}
	if inst.Style.OmitTexture <= 0.5 && tex != nil {
		src := lerp2(
			f32.Vec2{inst.SrcRect[0], inst.SrcRect[1]},
			f32.Vec2{inst.SrcRect[2], inst.SrcRect[3]},
			pct,
		)
		raw := tex(src[0]/uni.TextureSize[0], src[1]/uni.TextureSize[1])
		texSample = ApplyChannelMap(uni.ChannelMap, raw)
	}

	borderT := RectBorderCoverage(sample, halfSize, radius,
		inst.Style.BorderThickness, inst.Style.Softness)
	cornerT := RectCornerCoverage(sample, halfSize, radius, inst.Style.Softness)

	out := f32.Vec4{
		tint[0] * texSample[0],
		tint[1] * texSample[1],
		tint[2] * texSample[2],
		tint[3] * texSample[3] * uni.Opacity * cornerT * borderT,
	}
	if out[3] < 0.001 {
		return f32.Vec4{}, false
	}
	return out, true
}

// Pack writes the instance into buf at off in GPU layout and returns the
// offset past it. buf must have RectInstanceSize bytes available.
func (in *RectInstance) Pack(buf []byte, off int) int {
	off = putVec4(buf, off, in.DstRect)
	off = putVec4(buf, off, in.SrcRect)
	for i := 0; i < 4; i++ {
		off = putVec4(buf, off, in.Colors[i])
	}
	off = putVec4(buf, off, in.CornerRadii)
	off = putF32(buf, off, in.Style.BorderThickness)
	off = putF32(buf, off, in.Style.Softness)
	off = putF32(buf, off, in.Style.OmitTexture)
	off = putF32(buf, off, in.Style.Unused)
	return off
}

// PackRectInstances serializes a rect batch for GPU upload.
func PackRectInstances(insts []RectInstance) []byte {
	buf := make([]byte, len(insts)*RectInstanceSize)
	off := 0
	for i := range insts {
		off = insts[i].Pack(buf, off)
	}
	return buf
}

// Pack serializes the uniform block for GPU upload. The result is exactly
// RectUniformsSize bytes.
func (u *RectUniforms) Pack() []byte {
	buf := make([]byte, RectUniformsSize)
	off := 0
	off = putVec2(buf, off, u.ViewportSize)
	off = putF32(buf, off, u.Opacity)
	off = putPad(buf, off, 4)
	for i := 0; i < 4; i++ {
		off = putVec4(buf, off, u.ChannelMap[i])
	}
	off = putVec2(buf, off, u.TextureSize)
	off = putPad(buf, off, 8)
	for i := 0; i < 3; i++ {
		off = putVec4(buf, off, u.Xform[i])
	}
	off = putF32(buf, off, u.XformScale)
	putPad(buf, off, 12)
	return buf
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
