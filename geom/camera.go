package geom

// Camera2D is a view onto pixel space. Position is the world point shown
// at the top-left corner of the viewport and Width x Height is the extent
// of the world visible at once, so a camera at the origin sized to the
// surface draws every coordinate at its own pixel.
//
// Moving the camera pans shapes and text together.
type Camera2D struct {
	X, Y          float32
	Width, Height float32
}

// NewCamera2D returns a camera at the origin viewing width x height.
func NewCamera2D(width, height float32) Camera2D {
	return Camera2D{Width: width, Height: height}
}

// WithPosition returns a copy of c moved to (x, y).
func (c Camera2D) WithPosition(x, y float32) Camera2D {
	c.X, c.Y = x, y
	return c
}

// SetPosition moves the camera to (x, y).
func (c *Camera2D) SetPosition(x, y float32) { c.X, c.Y = x, y }

// Position returns the world point at the top-left corner of the view.
func (c Camera2D) Position() (x, y float32) { return c.X, c.Y }

// Resize changes the visible extent and keeps the position.
func (c *Camera2D) Resize(width, height float32) { c.Width, c.Height = width, height }

// AspectRatio returns Width / Height, or 0 for a camera with no height.
func (c Camera2D) AspectRatio() float32 {
	if c.Height == 0 {
		return 0
	}
	return c.Width / c.Height
}

// Valid reports whether the camera has a positive extent.
func (c Camera2D) Valid() bool { return c.Width > 0 && c.Height > 0 }

// ViewProjection returns the column-major matrix mapping world pixels
// (y down) to clip space (y up). It is the transform the shape and text
// shaders apply.
func (c Camera2D) ViewProjection() [16]float32 {
	var m [16]float32
	if !c.Valid() {
		return m
	}
	m[0] = 2 / c.Width
	m[5] = -2 / c.Height
	m[10] = 1
	m[12] = -2*c.X/c.Width - 1
	m[13] = 2*c.Y/c.Height + 1
	m[15] = 1
	return m
}

// Project maps the world point (x, y) to clip space.
func (c Camera2D) Project(x, y float32) (cx, cy float32) {
	m := c.ViewProjection()
	return m[0]*x + m[12], m[5]*y + m[13]
}
