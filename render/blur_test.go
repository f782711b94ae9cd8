package render

import (
	"math"
	"testing"
	"unsafe"

	"golang.org/x/image/math/f32"
)

func TestBlurLayoutSize(t *testing.T) {
	if got := unsafe.Sizeof(BlurUniforms{}); got != BlurUniformsSize {
		t.Errorf("sizeof(BlurUniforms) = %d, want %d", got, BlurUniformsSize)
	}
	if got := unsafe.Sizeof(BlurKernelTap{}); got != 16 {
		t.Errorf("sizeof(BlurKernelTap) = %d, want 16", got)
	}
}

func TestMakeBlurKernel(t *testing.T) {
	t.Run("zero radius is passthrough", func(t *testing.T) {
		k := MakeBlurKernel(0)
		if len(k) != 1 {
			t.Fatalf("len = %d, want 1", len(k))
		}
		if k[0].Weight != 1 || k[0].Offset != 0 {
			t.Errorf("center tap = %+v, want weight 1 offset 0", k[0])
		}
	})

	t.Run("normalized", func(t *testing.T) {
		for _, radius := range []float32{1, 4, 10, 30, 100} {
			k := MakeBlurKernel(radius)
			total := k[0].Weight
			for _, tap := range k[1:] {
				total += 2 * tap.Weight
			}
			if math.Abs(float64(total-1)) > 1e-4 {
				t.Errorf("radius %g: weights sum to %g, want 1", radius, total)
			}
		}
	})

	t.Run("weights decrease outward", func(t *testing.T) {
		k := MakeBlurKernel(12)
		for i := 1; i < len(k); i++ {
			if k[i].Weight > k[i-1].Weight {
				t.Errorf("tap %d weight %g exceeds tap %d weight %g",
					i, k[i].Weight, i-1, k[i-1].Weight)
			}
			if i > 1 && k[i].Offset <= k[i-1].Offset {
				t.Errorf("tap %d offset %g not past tap %d offset %g",
					i, k[i].Offset, i-1, k[i-1].Offset)
			}
		}
	})

	t.Run("capped at capacity", func(t *testing.T) {
		for _, radius := range []float32{63, 200, 10000} {
			if k := MakeBlurKernel(radius); len(k) > MaxBlurSamples {
				t.Errorf("radius %g: %d entries, capacity %d",
					radius, len(k), MaxBlurSamples)
			}
		}
	})
}

func TestBlurUniformsValidate(t *testing.T) {
	base, err := NewBlurUniforms(
		f32.Vec2{10, 10}, f32.Vec2{110, 60},
		f32.Vec4{}, 800, 600, MakeBlurKernel(4))
	if err != nil {
		t.Fatalf("NewBlurUniforms() = %v", err)
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	t.Run("zero count rejected", func(t *testing.T) {
		u := base
		u.BlurCount = 0
		if err := u.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("overflow count rejected", func(t *testing.T) {
		u := base
		u.BlurCount = MaxBlurSamples + 1
		if err := u.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("offset center tap rejected", func(t *testing.T) {
		u := base
		u.Kernel[0].Offset = 1.5
		if err := u.Validate(); err == nil {
			t.Error("Validate() = nil, want error")
		}
	})

	t.Run("oversized kernel rejected at set", func(t *testing.T) {
		u := base
		if err := u.SetKernel(make([]BlurKernelTap, MaxBlurSamples+1)); err == nil {
			t.Error("SetKernel() = nil, want error")
		}
	})

	t.Run("empty kernel rejected at set", func(t *testing.T) {
		u := base
		if err := u.SetKernel(nil); err == nil {
			t.Error("SetKernel() = nil, want error")
		}
	})
}

func uniformTexture(c f32.Vec4) TextureFunc {
	return func(u, v float32) f32.Vec4 { return c }
}

func TestEvalBlurPassthrough(t *testing.T) {
	// A single center tap reproduces the source color with alpha forced 1.
	u, err := NewBlurUniforms(
		f32.Vec2{0, 0}, f32.Vec2{100, 100},
		f32.Vec4{}, 800, 600, MakeBlurKernel(0))
	if err != nil {
		t.Fatal(err)
	}

	got, ok := EvalBlur(&u, 50, 50, uniformTexture(f32.Vec4{0.3, 0.6, 0.9, 0.2}))
	if !ok {
		t.Fatal("interior pixel not written")
	}
	want := f32.Vec4{0.3, 0.6, 0.9, 1}
	for i := 0; i < 4; i++ {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("EvalBlur = %v, want %v", got, want)
		}
	}
}

func TestEvalBlurClip(t *testing.T) {
	u, err := NewBlurUniforms(
		f32.Vec2{10, 10}, f32.Vec2{110, 60},
		f32.Vec4{15, 15, 15, 15}, 800, 600, MakeBlurKernel(4))
	if err != nil {
		t.Fatal(err)
	}
	src := uniformTexture(f32.Vec4{1, 1, 1, 1})

	if _, ok := EvalBlur(&u, 5, 30, src); ok {
		t.Error("pixel outside the clip quad was written")
	}
	if _, ok := EvalBlur(&u, 10, 30, src); ok {
		t.Error("pixel on the clip edge was written")
	}
	// The clip corner point lies outside the rounded outline.
	if _, ok := EvalBlur(&u, 11, 11, src); ok {
		t.Error("pixel beyond the rounded clip corner was written")
	}
	if _, ok := EvalBlur(&u, 60, 35, src); !ok {
		t.Error("clip center not written")
	}
}

func TestEvalBlurDirectionSymmetry(t *testing.T) {
	// A horizontal step edge must blur identically under +x and -x
	// directions: the kernel itself is symmetric.
	kernel := MakeBlurKernel(6)
	step := func(u, v float32) f32.Vec4 {
		if u < 0.5 {
			return f32.Vec4{0, 0, 0, 1}
		}
		return f32.Vec4{1, 1, 1, 1}
	}

	base, err := NewBlurUniforms(
		f32.Vec2{0, 0}, f32.Vec2{800, 600},
		f32.Vec4{}, 800, 600, kernel)
	if err != nil {
		t.Fatal(err)
	}

	pos := base
	pos.Direction = BlurDirX
	neg := base
	neg.Direction = f32.Vec2{-1, 0}

	for _, x := range []float32{398, 400, 402} {
		a, okA := EvalBlur(&pos, x, 300, step)
		b, okB := EvalBlur(&neg, x, 300, step)
		if okA != okB || a != b {
			t.Errorf("x=%g: +x pass %v, -x pass %v", x, a, b)
		}
	}

	// A vertical pass never crosses the horizontal step: output equals
	// the unblurred source.
	vert := base
	vert.Direction = BlurDirY
	got, ok := EvalBlur(&vert, 300, 300, step)
	if !ok || got != (f32.Vec4{0, 0, 0, 1}) {
		t.Errorf("vertical pass over constant column = %v, want black", got)
	}
}

func TestEvalBlurSmooths(t *testing.T) {
	// Across the step edge the blurred profile must be monotonic and
	// strictly between the two plateaus near the edge.
	u, err := NewBlurUniforms(
		f32.Vec2{0, 0}, f32.Vec2{800, 600},
		f32.Vec4{}, 800, 600, MakeBlurKernel(8))
	if err != nil {
		t.Fatal(err)
	}
	step := func(su, sv float32) f32.Vec4 {
		if su < 0.5 {
			return f32.Vec4{0, 0, 0, 1}
		}
		return f32.Vec4{1, 1, 1, 1}
	}

	prev := float32(-1)
	for x := float32(380); x <= 420; x++ {
		got, ok := EvalBlur(&u, x, 300, step)
		if !ok {
			t.Fatalf("pixel at x=%g not written", x)
		}
		if got[0] < prev-1e-5 {
			t.Fatalf("profile not monotonic at x=%g: %g after %g", x, got[0], prev)
		}
		prev = got[0]
	}

	mid, _ := EvalBlur(&u, 400, 300, step)
	if mid[0] < 0.2 || mid[0] > 0.8 {
		t.Errorf("value at the edge = %g, want a blurred mid-tone", mid[0])
	}
}

func TestBlurUniformsPack(t *testing.T) {
	u, err := NewBlurUniforms(
		f32.Vec2{10, 20}, f32.Vec2{110, 70},
		f32.Vec4{1, 2, 3, 4}, 800, 600, MakeBlurKernel(4))
	if err != nil {
		t.Fatal(err)
	}
	u.Direction = BlurDirY

	buf := u.Pack()
	if len(buf) != BlurUniformsSize {
		t.Fatalf("len = %d, want %d", len(buf), BlurUniformsSize)
	}
	if got := f32At(buf, 0); got != 10 { // rect min x
		t.Errorf("rect.x = %g, want 10", got)
	}
	if got := f32At(buf, 16); got != 1 { // corner_radii
		t.Errorf("corner_radii.x = %g, want 1", got)
	}
	if got := f32At(buf, 36); got != 1 { // direction y
		t.Errorf("direction.y = %g, want 1", got)
	}
	if got := f32At(buf, 64); got != u.Kernel[0].Weight { // kernel[0].x
		t.Errorf("kernel[0] weight = %g, want %g", got, u.Kernel[0].Weight)
	}
	if got := f32At(buf, 64+16+4); got != u.Kernel[1].Offset { // kernel[1].y
		t.Errorf("kernel[1] offset = %g, want %g", got, u.Kernel[1].Offset)
	}
}

func BenchmarkEvalBlur(b *testing.B) {
	u, err := NewBlurUniforms(
		f32.Vec2{0, 0}, f32.Vec2{800, 600},
		f32.Vec4{}, 800, 600, MakeBlurKernel(16))
	if err != nil {
		b.Fatal(err)
	}
	src := uniformTexture(f32.Vec4{0.5, 0.5, 0.5, 1})
	b.ReportAllocs()
	for b.Loop() {
		EvalBlur(&u, 400, 300, src)
	}
}
