package render

import (
	"testing"

	"golang.org/x/image/math/f32"
)

func TestFullscreenVertex(t *testing.T) {
	tests := []struct {
		index   uint32
		wantPos f32.Vec4
		wantUV  f32.Vec2
	}{
		{0, f32.Vec4{-1, -1, 0, 1}, f32.Vec2{0, 1}},
		{1, f32.Vec4{1, -1, 0, 1}, f32.Vec2{1, 1}},
		{2, f32.Vec4{-1, 1, 0, 1}, f32.Vec2{0, 0}},
		{3, f32.Vec4{1, 1, 0, 1}, f32.Vec2{1, 0}},
	}
	for _, tt := range tests {
		pos, uv := FullscreenVertex(tt.index)
		if pos != tt.wantPos {
			t.Errorf("FullscreenVertex(%d) pos = %v, want %v", tt.index, pos, tt.wantPos)
		}
		if uv != tt.wantUV {
			t.Errorf("FullscreenVertex(%d) uv = %v, want %v", tt.index, uv, tt.wantUV)
		}
	}
}

func TestFullscreenVertexMatchesQuadPercent(t *testing.T) {
	// The blit quad and the rect quad must share one vertex generation
	// scheme so winding is identical across techniques.
	for i := uint32(0); i < 4; i++ {
		pct := VertexPercent(i)
		pos, _ := FullscreenVertex(i)
		if pos[0] != pct[0]*2-1 || pos[1] != pct[1]*2-1 {
			t.Errorf("vertex %d: pos %v does not derive from percent %v", i, pos, pct)
		}
	}
}

func TestEvalComposite(t *testing.T) {
	src := uniformTexture(f32.Vec4{0.1, 0.2, 0.3, 0.4})

	// Composite preserves alpha so the 3D target blends over the scene.
	if got := EvalComposite(0.5, 0.5, src); got != (f32.Vec4{0.1, 0.2, 0.3, 0.4}) {
		t.Errorf("EvalComposite = %v, want passthrough", got)
	}

	// Finalize forces the presented image opaque.
	if got := EvalFinalize(0.5, 0.5, src); got != (f32.Vec4{0.1, 0.2, 0.3, 1}) {
		t.Errorf("EvalFinalize = %v, want opaque", got)
	}
}
