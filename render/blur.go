package render

import (
	"fmt"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// MaxBlurSamples is the kernel capacity of the blur uniform block. A draw
// whose sample count exceeds it is a configuration error, rejected at
// validation time rather than clamped.
const MaxBlurSamples = 32

// BlurUniformsSize is the byte size of the blur uniform block.
// Layout (matches BlurUniforms in blur.wgsl):
//
//	rect (vec4) + corner_radii (vec4)       = 32 bytes
//	direction (vec2) + viewport_size (vec2) = 16 bytes
//	blur_count (u32) + pad                  = 16 bytes
//	kernel (32 x vec4)                      = 512 bytes
const BlurUniformsSize = 576

// Blur pass directions. Each blur is two draws: an x pass reading the scene,
// then a y pass reading the x pass's output.
var (
	BlurDirX = f32.Vec2{1, 0}
	BlurDirY = f32.Vec2{0, 1}
)

// BlurKernelTap is one kernel entry: a weight and a tap offset in texels.
// Entry 0 is the zero-offset center tap, applied once; every other entry is
// applied at +offset and -offset, so a count of n produces 2*(n-1)+1 taps.
type BlurKernelTap struct {
	Weight float32
	Offset float32

	_ [2]float32
}

// BlurUniforms is the per-draw uniform block for the blur technique.
// Must match BlurUniforms in blur.wgsl, including padding.
type BlurUniforms struct {
	// Rect is the rounded clip region in pixel space: min.xy, max.xy.
	Rect f32.Vec4

	// CornerRadii holds the clip radii in storage order: x=BL, y=TL,
	// z=BR, w=TR.
	CornerRadii f32.Vec4

	// Direction is the unit pass direction, BlurDirX or BlurDirY.
	Direction f32.Vec2

	// ViewportSize is the source/target size in pixels; its reciprocal is
	// the texel size used to scale tap offsets.
	ViewportSize f32.Vec2

	// BlurCount is the number of kernel entries in use, center included.
	BlurCount uint32

	_ [3]uint32

	Kernel [MaxBlurSamples]BlurKernelTap
}

// NewBlurUniforms builds the uniform block for one blur region from a
// generated kernel. Direction must be set (or the block copied) per pass.
func NewBlurUniforms(clipMin, clipMax f32.Vec2, radii f32.Vec4, viewportW, viewportH float32, kernel []BlurKernelTap) (BlurUniforms, error) {
	u := BlurUniforms{
		Rect:         f32.Vec4{clipMin[0], clipMin[1], clipMax[0], clipMax[1]},
		CornerRadii:  radii,
		Direction:    BlurDirX,
		ViewportSize: f32.Vec2{viewportW, viewportH},
	}
	if err := u.SetKernel(kernel); err != nil {
		return BlurUniforms{}, err
	}
	return u, nil
}

// SetKernel copies the kernel into the uniform block, rejecting counts the
// block cannot hold.
func (u *BlurUniforms) SetKernel(kernel []BlurKernelTap) error {
	if len(kernel) == 0 {
		return fmt.Errorf("render: blur kernel is empty")
	}
	if len(kernel) > MaxBlurSamples {
		return fmt.Errorf("render: blur kernel has %d entries, capacity is %d",
			len(kernel), MaxBlurSamples)
	}
	u.BlurCount = uint32(len(kernel))
	copy(u.Kernel[:], kernel)
	for i := len(kernel); i < MaxBlurSamples; i++ {
		u.Kernel[i] = BlurKernelTap{}
	}
	return nil
}

// Validate checks the uniform block before a draw. Failures are
// configuration errors; there is no silent clamping.
func (u *BlurUniforms) Validate() error {
	if u.BlurCount == 0 || u.BlurCount > MaxBlurSamples {
		return fmt.Errorf("render: blur count %d outside 1..%d", u.BlurCount, MaxBlurSamples)
	}
	if u.Kernel[0].Offset != 0 {
		return fmt.Errorf("render: blur kernel entry 0 must be the zero-offset center tap, got offset %g",
			u.Kernel[0].Offset)
	}
	return nil
}

// MakeBlurKernel generates a kernel approximating a Gaussian of the given
// radius in pixels. Discrete taps at integer offsets are merged pairwise
// (weighted mean offset, summed weight) so each entry covers two source
// texels, and the result is normalized so the full symmetric tap set sums
// to 1. The entry count never exceeds MaxBlurSamples; radii beyond the
// capacity are truncated, trading accuracy for the fixed uniform size.
//
// A radius of 0 (or less) degenerates to a single center tap of weight 1,
// an exact passthrough.
func MakeBlurKernel(radius float32) []BlurKernelTap {
	if radius <= 0 {
		return []BlurKernelTap{{Weight: 1}}
	}

	extent := int(math32.Ceil(radius))
	// Pairwise merging fits 2 texels per entry beyond the center.
	maxExtent := 2 * (MaxBlurSamples - 1)
	if extent > maxExtent {
		extent = maxExtent
	}

	sigma := radius / 2
	gauss := func(x float32) float32 {
		t := x / sigma
		return math32.Exp(-0.5 * t * t)
	}

	taps := []BlurKernelTap{{Weight: gauss(0)}}
	for o := 1; o <= extent; o += 2 {
		w1 := gauss(float32(o))
		w2 := float32(0)
		if o+1 <= extent {
			w2 = gauss(float32(o + 1))
		}
		w := w1 + w2
		if w <= 0 {
			break
		}
		off := (float32(o)*w1 + float32(o+1)*w2) / w
		taps = append(taps, BlurKernelTap{Weight: w, Offset: off})
	}

	// Normalize over the full symmetric tap set: center once, the rest
	// mirrored.
	total := taps[0].Weight
	for _, t := range taps[1:] {
		total += 2 * t.Weight
	}
	for i := range taps {
		taps[i].Weight /= total
	}
	return taps
}

// EvalBlur is the CPU reference for the blur fragment stage. It evaluates
// one pass at a pixel-space point, sampling the previous pass's output
// through src. Points outside the clip quad, or whose rounded-rect coverage
// falls below 0.001, produce no write. Written pixels are opaque: alpha is
// forced to 1.
func EvalBlur(u *BlurUniforms, px, py float32, src TextureFunc) (f32.Vec4, bool) {
	p0 := f32.Vec2{u.Rect[0], u.Rect[1]}
	p1 := f32.Vec2{u.Rect[2], u.Rect[3]}
	if px <= p0[0] || px >= p1[0] || py <= p0[1] || py >= p1[1] {
		return f32.Vec4{}, false
	}

	pct := f32.Vec2{
		(px - p0[0]) / (p1[0] - p0[0]),
		(py - p0[1]) / (p1[1] - p0[1]),
	}
	var slotRadii [4]float32
	for slot := 0; slot < 4; slot++ {
		slotRadii[slot] = u.CornerRadii[CornerPermutation[slot]]
	}
	radius := bilerp1(slotRadii, pct)

	sample := f32.Vec2{
		px - (p0[0]+p1[0])/2,
		py - (p0[1]+p1[1])/2,
	}
	// Fixed 2px inset, independent of the rect technique's softness inset.
	halfSize := f32.Vec2{
		(p1[0]-p0[0])/2 - 2,
		(p1[1]-p0[1])/2 - 2,
	}
	coverage := 1 - Smoothstep(0, 2, RectSDF(sample, halfSize, radius))
	if coverage < 0.001 {
		return f32.Vec4{}, false
	}

	uv := f32.Vec2{px / u.ViewportSize[0], py / u.ViewportSize[1]}
	texel := f32.Vec2{1 / u.ViewportSize[0], 1 / u.ViewportSize[1]}

	var acc f32.Vec4
	center := src(uv[0], uv[1])
	for i := 0; i < 4; i++ {
		acc[i] = u.Kernel[0].Weight * center[i]
	}
	for k := uint32(1); k < u.BlurCount; k++ {
		w := u.Kernel[k].Weight
		ox := u.Direction[0] * u.Kernel[k].Offset * texel[0]
		oy := u.Direction[1] * u.Kernel[k].Offset * texel[1]
		pos := src(uv[0]+ox, uv[1]+oy)
		neg := src(uv[0]-ox, uv[1]-oy)
		for i := 0; i < 4; i++ {
			acc[i] += w * (pos[i] + neg[i])
		}
	}

	return f32.Vec4{acc[0], acc[1], acc[2], 1}, true
}

// Pack serializes the uniform block for GPU upload. The result is exactly
// BlurUniformsSize bytes.
func (u *BlurUniforms) Pack() []byte {
	buf := make([]byte, BlurUniformsSize)
	off := 0
	off = putVec4(buf, off, u.Rect)
	off = putVec4(buf, off, u.CornerRadii)
	off = putVec2(buf, off, u.Direction)
	off = putVec2(buf, off, u.ViewportSize)
	off = putU32(buf, off, u.BlurCount)
	off = putPad(buf, off, 12)
	for i := 0; i < MaxBlurSamples; i++ {
		off = putF32(buf, off, u.Kernel[i].Weight)
		off = putF32(buf, off, u.Kernel[i].Offset)
		off = putPad(buf, off, 8)
	}
	return buf
}
