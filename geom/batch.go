package geom

import "github.com/chewxy/math32"

// Default capacities, matching the GPU buffers a Renderer allocates.
const (
	DefaultMaxVertices = 256
	DefaultMaxIndices  = 512
)

// CircleSegments is the number of perimeter vertices of a queued circle.
const CircleSegments = 32

// Vertex and index counts emitted per shape.
const (
	rectVertices   = 4
	rectIndices    = 6
	circleVertices = CircleSegments + 1
	circleIndices  = CircleSegments * 3
)

// rectPattern is the index pattern of a quad whose corners are emitted
// top-right, top-left, bottom-left, bottom-right.
var rectPattern = [rectIndices]uint32{0, 1, 2, 0, 2, 3}

// Batch accumulates shape geometry for one frame.
//
// Batch is NOT thread-safe.
type Batch struct {
	vertices    []Vertex
	indices     []uint32
	maxVertices int
	maxIndices  int
}

// NewBatch creates a batch that holds at most maxVertices vertices and
// maxIndices indices. Non-positive values select the defaults.
func NewBatch(maxVertices, maxIndices int) *Batch {
	if maxVertices <= 0 {
		maxVertices = DefaultMaxVertices
	}
	if maxIndices <= 0 {
		maxIndices = DefaultMaxIndices
	}
	return &Batch{
		vertices:    make([]Vertex, 0, maxVertices),
		indices:     make([]uint32, 0, maxIndices),
		maxVertices: maxVertices,
		maxIndices:  maxIndices,
	}
}

// MaxVertices returns the vertex capacity.
func (b *Batch) MaxVertices() int { return b.maxVertices }

// MaxIndices returns the index capacity.
func (b *Batch) MaxIndices() int { return b.maxIndices }

// Vertices returns the queued vertices. The slice is only valid until the
// next Clear.
func (b *Batch) Vertices() []Vertex { return b.vertices }

// Indices returns the queued indices. The slice is only valid until the
// next Clear.
func (b *Batch) Indices() []uint32 { return b.indices }

// VertexCount returns the number of queued vertices.
func (b *Batch) VertexCount() int { return len(b.vertices) }

// IndexCount returns the number of queued indices.
func (b *Batch) IndexCount() int { return len(b.indices) }

// Empty reports whether nothing has been queued since the last Clear.
func (b *Batch) Empty() bool { return len(b.indices) == 0 }

// Take returns the accumulated geometry. The batch keeps ownership of the
// backing arrays, so callers must finish with them before the next Clear.
func (b *Batch) Take() (vertices []Vertex, indices []uint32) {
	return b.vertices, b.indices
}

// Clear drops all queued geometry and keeps the allocated capacity.
func (b *Batch) Clear() {
	b.vertices = b.vertices[:0]
	b.indices = b.indices[:0]
}

// Validate checks that the queued geometry fits the batch capacity.
// Appends are checked individually, so this only fails if the batch was
// built by hand with a bad capacity.
func (b *Batch) Validate() error {
	if b.maxVertices <= 0 || b.maxIndices <= 0 {
		return ErrInvalidCapacity
	}
	if len(b.vertices) > b.maxVertices {
		return &CapacityError{Kind: KindVertices, Requested: len(b.vertices), Capacity: b.maxVertices}
	}
	if len(b.indices) > b.maxIndices {
		return &CapacityError{Kind: KindIndices, Requested: len(b.indices), Capacity: b.maxIndices}
	}
	return nil
}

// reserve fails if nv more vertices or ni more indices would overflow.
func (b *Batch) reserve(nv, ni int) error {
	if n := len(b.vertices) + nv; n > b.maxVertices {
		return &CapacityError{Kind: KindVertices, Requested: n, Capacity: b.maxVertices}
	}
	if n := len(b.indices) + ni; n > b.maxIndices {
		return &CapacityError{Kind: KindIndices, Requested: n, Capacity: b.maxIndices}
	}
	return nil
}

// QueueRectangle appends an axis-aligned rectangle with its top-left corner
// at (x, y). The corners are emitted clockwise from the top-right.
func (b *Batch) QueueRectangle(x, y, w, h float32, c Color) error {
	if err := b.reserve(rectVertices, rectIndices); err != nil {
		return err
	}

	base := uint32(len(b.vertices)) //nolint:gosec // bounded by maxVertices
	b.vertices = append(b.vertices,
		Vertex{Position: [2]float32{x + w, y}, Color: c},
		Vertex{Position: [2]float32{x, y}, Color: c},
		Vertex{Position: [2]float32{x, y + h}, Color: c},
		Vertex{Position: [2]float32{x + w, y + h}, Color: c},
	)
	for _, idx := range rectPattern {
		b.indices = append(b.indices, base+idx)
	}
	return nil
}

// QueueSquare appends a square. It is QueueRectangle(x, y, size, size, c).
func (b *Batch) QueueSquare(x, y, size float32, c Color) error {
	return b.QueueRectangle(x, y, size, size, c)
}

// QueueCircle appends a filled circle as a triangle fan of CircleSegments
// triangles around a center vertex.
func (b *Batch) QueueCircle(cx, cy, r float32, c Color) error {
	if err := b.reserve(circleVertices, circleIndices); err != nil {
		return err
	}

	center := uint32(len(b.vertices)) //nolint:gosec // bounded by maxVertices
	b.vertices = append(b.vertices, Vertex{Position: [2]float32{cx, cy}, Color: c})

	step := 2 * math32.Pi / CircleSegments
	for i := range CircleSegments {
		sin, cos := math32.Sincos(step * float32(i))
		b.vertices = append(b.vertices, Vertex{
			Position: [2]float32{cx + r*cos, cy + r*sin},
			Color:    c,
		})
	}

	for i := range uint32(CircleSegments) {
		b.indices = append(b.indices,
			center,
			center+1+i,
			center+1+(i+1)%CircleSegments,
		)
	}
	return nil
}
