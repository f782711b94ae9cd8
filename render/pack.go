package render

import (
	"encoding/binary"
	"math"

	"golang.org/x/image/math/f32"
)

// Little-endian field writers for GPU buffer packing. Every layout in this
// package serializes through these so instance and uniform bytes match the
// WGSL struct layouts exactly, including padding. Each returns the offset
// past the written field.

func putF32(b []byte, off int, v float32) int {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
	return off + 4
}

func putU32(b []byte, off int, v uint32) int {
	binary.LittleEndian.PutUint32(b[off:], v)
	return off + 4
}

func putVec2(b []byte, off int, v f32.Vec2) int {
	off = putF32(b, off, v[0])
	return putF32(b, off, v[1])
}

func putVec4(b []byte, off int, v f32.Vec4) int {
	for i := 0; i < 4; i++ {
		off = putF32(b, off, v[i])
	}
	return off
}

// putPad writes n zero bytes of padding.
func putPad(b []byte, off, n int) int {
	for i := 0; i < n; i++ {
		b[off+i] = 0
	}
	return off + n
}
