package geom

import (
	"encoding/binary"
	"math"
)

// VertexSize is the byte stride of one Vertex in a GPU vertex buffer.
const VertexSize = 24

// IndexSize is the byte size of one uint32 index.
const IndexSize = 4

// Vertex is a single colored 2D vertex in pixel coordinates
// (origin top-left, Y down).
type Vertex struct {
	Position [2]float32
	Color    Color
}

// putVertex encodes v into buf[0:VertexSize].
func putVertex(buf []byte, v Vertex) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Color[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Color[1]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.Color[2]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.Color[3]))
}

// VertexBytes encodes vertices into the GPU vertex buffer layout.
func VertexBytes(vertices []Vertex) []byte {
	return AppendVertexBytes(nil, vertices)
}

// AppendVertexBytes encodes vertices and appends them to dst, reusing its
// capacity when possible.
func AppendVertexBytes(dst []byte, vertices []Vertex) []byte {
	need := len(vertices) * VertexSize
	if cap(dst)-len(dst) < need {
		grown := make([]byte, len(dst), len(dst)+need)
		copy(grown, dst)
		dst = grown
	}
	off := len(dst)
	dst = dst[:off+need]
	for i := range vertices {
		putVertex(dst[off+i*VertexSize:], vertices[i])
	}
	return dst
}

// IndexBytes encodes indices as little-endian uint32 values.
func IndexBytes(indices []uint32) []byte {
	return AppendIndexBytes(nil, indices)
}

// AppendIndexBytes encodes indices and appends them to dst.
func AppendIndexBytes(dst []byte, indices []uint32) []byte {
	for _, idx := range indices {
		dst = binary.LittleEndian.AppendUint32(dst, idx)
	}
	return dst
}
