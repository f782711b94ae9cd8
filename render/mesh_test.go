package render

import (
	"math"
	"testing"
	"unsafe"

	"golang.org/x/image/math/f32"
)

func TestMeshLayoutSizes(t *testing.T) {
	if got := unsafe.Sizeof(MeshUniforms{}); got != MeshUniformsSize {
		t.Errorf("sizeof(MeshUniforms) = %d, want %d", got, MeshUniformsSize)
	}
	if got := unsafe.Sizeof(MeshVertex{}); got != MeshVertexSize {
		t.Errorf("sizeof(MeshVertex) = %d, want %d", got, MeshVertexSize)
	}
	if got := unsafe.Sizeof(MeshInstance{}); got != MeshInstanceSize {
		t.Errorf("sizeof(MeshInstance) = %d, want %d", got, MeshInstanceSize)
	}
}

func scaleMat4(sx, sy, sz float32) Mat4 {
	return Mat4{
		{sx, 0, 0, 0},
		{0, sy, 0, 0},
		{0, 0, sz, 0},
		{0, 0, 0, 1},
	}
}

func translateMat4(tx, ty, tz float32) Mat4 {
	m := Mat4Identity()
	m[3] = f32.Vec4{tx, ty, tz, 1}
	return m
}

func TestMat4Mul(t *testing.T) {
	// Translate then scale: scale * translate applies translate first.
	m := scaleMat4(2, 2, 2).Mul(translateMat4(1, 0, 0))
	got := m.MulVec(f32.Vec4{1, 1, 1, 1})
	want := f32.Vec4{4, 2, 2, 1}
	if got != want {
		t.Errorf("(scale*translate)*v = %v, want %v", got, want)
	}

	id := Mat4Identity()
	if id.Mul(m) != m || m.Mul(id) != m {
		t.Error("identity multiplication changed the matrix")
	}
}

func TestNormalMatrixUniformScale(t *testing.T) {
	// Under rotation and uniform scale the normal matrix is the rotation
	// times 1/s: direction preserved.
	s := float32(3)
	c, sn := float32(math.Cos(0.7)), float32(math.Sin(0.7))
	m := Mat4{
		{s * c, s * sn, 0, 0},
		{-s * sn, s * c, 0, 0},
		{0, 0, s, 0},
		{0, 0, 0, 1},
	}
	nm := m.NormalMatrix()

	n := [3]float32{1, 0, 0}
	var out [3]float32
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			out[row] += nm[col][row] * n[col]
		}
	}
	// Direction must match the rotated input up to scale.
	l := float32(math.Sqrt(float64(dot3(out, out))))
	want := [3]float32{c, sn, 0}
	for i := 0; i < 3; i++ {
		if math.Abs(float64(out[i]/l-want[i])) > 1e-5 {
			t.Fatalf("normal direction = %v, want parallel to %v", out, want)
		}
	}
}

func TestEvalMeshNonUniformScale(t *testing.T) {
	// Squash a 45-degree surface in x. Transforming the normal by the
	// plain matrix would tilt it off-perpendicular; the inverse-transpose
	// keeps it perpendicular to the transformed surface.
	inst := MeshInstance{Xform: scaleMat4(4, 1, 1)}
	uni := MeshUniforms{ViewProj: Mat4Identity()}

	inv := float32(1 / math.Sqrt2)
	v := MeshVertex{
		Position: [3]float32{1, 1, 0},
		Normal:   [3]float32{inv, inv, 0},
		Color:    f32.Vec4{1, 0, 0, 1},
	}

	out := EvalMesh(&v, &inst, &uni)

	if out.Position != (f32.Vec4{4, 1, 0, 1}) {
		t.Errorf("position = %v, want {4 1 0 1}", out.Position)
	}

	// Surface tangent (1,-1,0) maps to (4,-1,0); the transformed normal
	// must be perpendicular to it and unit length.
	tangent := [3]float32{4, -1, 0}
	if d := dot3(out.Normal, tangent); math.Abs(float64(d)) > 1e-5 {
		t.Errorf("normal %v not perpendicular to transformed tangent: dot = %g", out.Normal, d)
	}
	if l := dot3(out.Normal, out.Normal); math.Abs(float64(l-1)) > 1e-5 {
		t.Errorf("normal %v not unit length: |n|^2 = %g", out.Normal, l)
	}
	if out.Color != v.Color {
		t.Errorf("color = %v, want %v", out.Color, v.Color)
	}
}

func TestEvalMeshViewProj(t *testing.T) {
	inst := MeshInstance{Xform: translateMat4(1, 2, 3)}
	uni := MeshUniforms{ViewProj: scaleMat4(0.5, 0.5, 0.5)}

	v := MeshVertex{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}}
	out := EvalMesh(&v, &inst, &uni)

	// World (2, 2, 3) scaled by 0.5; w stays 1 under the scale matrix.
	want := f32.Vec4{1, 1, 1.5, 1}
	if out.Position != want {
		t.Errorf("clip position = %v, want %v", out.Position, want)
	}
}

func TestMeshPack(t *testing.T) {
	verts := []MeshVertex{
		{
			Position: [3]float32{1, 2, 3},
			Normal:   [3]float32{0, 1, 0},
			UV:       f32.Vec2{0.5, 0.25},
			Color:    f32.Vec4{1, 0, 0, 1},
		},
		{Position: [3]float32{4, 5, 6}},
	}
	buf := PackMeshVertices(verts)
	if len(buf) != 2*MeshVertexSize {
		t.Fatalf("len = %d, want %d", len(buf), 2*MeshVertexSize)
	}
	if got := f32At(buf, 16); got != 1 { // normal.y
		t.Errorf("normal.y = %g, want 1", got)
	}
	if got := f32At(buf, 24); got != 0.5 { // uv.x
		t.Errorf("uv.x = %g, want 0.5", got)
	}
	if got := f32At(buf, MeshVertexSize); got != 4 { // second vertex
		t.Errorf("second position.x = %g, want 4", got)
	}

	insts := []MeshInstance{{Xform: translateMat4(7, 8, 9)}}
	ibuf := PackMeshInstances(insts)
	if len(ibuf) != MeshInstanceSize {
		t.Fatalf("instance len = %d, want %d", len(ibuf), MeshInstanceSize)
	}
	if got := f32At(ibuf, 48); got != 7 { // column 3 x
		t.Errorf("xform[3].x = %g, want 7", got)
	}

	u := MeshUniforms{ViewProj: Mat4Identity()}
	ubuf := u.Pack()
	if len(ubuf) != MeshUniformsSize {
		t.Fatalf("uniform len = %d, want %d", len(ubuf), MeshUniformsSize)
	}
	if got := f32At(ubuf, 20); got != 1 { // [1][1]
		t.Errorf("view_proj[1].y = %g, want 1", got)
	}
}

func BenchmarkEvalMesh(b *testing.B) {
	inst := MeshInstance{Xform: scaleMat4(2, 3, 4)}
	uni := MeshUniforms{ViewProj: Mat4Identity()}
	v := MeshVertex{Position: [3]float32{1, 1, 1}, Normal: [3]float32{0, 1, 0}}
	b.ReportAllocs()
	for b.Loop() {
		EvalMesh(&v, &inst, &uni)
	}
}
