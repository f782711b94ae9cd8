package render

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Byte sizes of the mesh technique's GPU layouts.
const (
	// MeshUniformsSize is the byte size of the mesh uniform block: one
	// mat4x4 view-projection.
	MeshUniformsSize = 64

	// MeshVertexSize is the per-vertex stride: position vec3, normal vec3,
	// uv vec2, color vec4, tightly packed.
	MeshVertexSize = 48

	// MeshInstanceSize is the per-instance stride: one mat4x4 transform.
	MeshInstanceSize = 64
)

// Mat4 is a column-major 4x4 matrix, matching mat4x4<f32> in WGSL.
type Mat4 [4]f32.Vec4

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Mul returns m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += m[k][row] * n[col][k]
			}
			out[col][row] = s
		}
	}
	return out
}

// MulVec returns m * v.
func (m Mat4) MulVec(v f32.Vec4) f32.Vec4 {
	var out f32.Vec4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out[row] += m[col][row] * v[col]
		}
	}
	return out
}

// NormalMatrix returns the inverse-transpose of m's upper 3x3 as column-major
// vec3 columns, computed through the cross-product adjugate exactly as
// mesh.wgsl does it. Normals transformed by it stay perpendicular to surfaces
// under non-uniform scale. A singular upper 3x3 yields non-finite columns;
// callers supply invertible transforms.
func (m Mat4) NormalMatrix() [3][3]float32 {
	c0 := [3]float32{m[0][0], m[0][1], m[0][2]}
	c1 := [3]float32{m[1][0], m[1][1], m[1][2]}
	c2 := [3]float32{m[2][0], m[2][1], m[2][2]}

	x12 := cross3(c1, c2)
	x20 := cross3(c2, c0)
	x01 := cross3(c0, c1)
	invDet := 1 / dot3(c0, x12)

	var out [3][3]float32
	for i := 0; i < 3; i++ {
		out[0][i] = x12[i] * invDet
		out[1][i] = x20[i] * invDet
		out[2][i] = x01[i] * invDet
	}
	return out
}

// MeshVertex is one vertex in a mesh vertex buffer. Field order matches the
// VSIn vertex locations in mesh.wgsl; the GPU consumes vertices with stride
// MeshVertexSize.
type MeshVertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       f32.Vec2

	// Color is straight RGBA; the fragment stage emits it unmodified.
	Color f32.Vec4
}

// MeshInstance is one instance in a mesh batch: the model transform,
// consumed column by column as instance attributes.
type MeshInstance struct {
	Xform Mat4
}

// MeshUniforms is the per-batch uniform block for the mesh technique.
// Must match MeshUniforms in mesh.wgsl.
type MeshUniforms struct {
	ViewProj Mat4
}

// MeshVertexOut mirrors the mesh vertex stage's outputs: clip-space position
// and the interpolated attributes handed to the fragment stage.
type MeshVertexOut struct {
	// Position is in clip space, before the perspective divide.
	Position f32.Vec4

	// Normal is the unit world-space normal.
	Normal [3]float32

	UV    f32.Vec2
	Color f32.Vec4
}

// EvalMesh is the CPU reference for the mesh vertex stage: instance transform
// to world space, view-projection to clip space, normal through the
// inverse-transpose.
func EvalMesh(v *MeshVertex, inst *MeshInstance, u *MeshUniforms) MeshVertexOut {
	world := inst.Xform.MulVec(f32.Vec4{v.Position[0], v.Position[1], v.Position[2], 1})

	nm := inst.Xform.NormalMatrix()
	var n [3]float32
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			n[row] += nm[col][row] * v.Normal[col]
		}
	}
	if l := math32.Sqrt(dot3(n, n)); l > 0 {
		for i := range n {
			n[i] /= l
		}
	}

	return MeshVertexOut{
		Position: u.ViewProj.MulVec(world),
		Normal:   n,
		UV:       v.UV,
		Color:    v.Color,
	}
}

// Pack writes the vertex into buf at off in GPU layout and returns the offset
// past it.
func (v *MeshVertex) Pack(buf []byte, off int) int {
	for i := 0; i < 3; i++ {
		off = putF32(buf, off, v.Position[i])
	}
	for i := 0; i < 3; i++ {
		off = putF32(buf, off, v.Normal[i])
	}
	off = putVec2(buf, off, v.UV)
	return putVec4(buf, off, v.Color)
}

// PackMeshVertices serializes a vertex buffer for GPU upload.
func PackMeshVertices(verts []MeshVertex) []byte {
	buf := make([]byte, len(verts)*MeshVertexSize)
	off := 0
	for i := range verts {
		off = verts[i].Pack(buf, off)
	}
	return buf
}

// PackMeshInstances serializes an instance buffer for GPU upload.
func PackMeshInstances(insts []MeshInstance) []byte {
	buf := make([]byte, len(insts)*MeshInstanceSize)
	off := 0
	for i := range insts {
		for col := 0; col < 4; col++ {
			off = putVec4(buf, off, insts[i].Xform[col])
		}
	}
	return buf
}

// Pack serializes the uniform block for GPU upload. The result is exactly
// MeshUniformsSize bytes.
func (u *MeshUniforms) Pack() []byte {
	buf := make([]byte, MeshUniformsSize)
	off := 0
	for col := 0; col < 4; col++ {
		off = putVec4(buf, off, u.ViewProj[col])
	}
	return buf
}

func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
