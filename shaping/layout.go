package shaping

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/gogpu/drawq/geom"
)

// Bounds is a clipping rectangle in pixels.
type Bounds struct {
	Left, Top, Right, Bottom float32
}

// Unbounded returns bounds that clip nothing beyond the viewport.
func Unbounded() Bounds {
	return Bounds{
		Left:   math32.Inf(-1),
		Top:    math32.Inf(-1),
		Right:  math32.Inf(1),
		Bottom: math32.Inf(1),
	}
}

// intersect returns the overlap of b and c.
func (b Bounds) intersect(c Bounds) Bounds {
	return Bounds{
		Left:   math32.Max(b.Left, c.Left),
		Top:    math32.Max(b.Top, c.Top),
		Right:  math32.Min(b.Right, c.Right),
		Bottom: math32.Min(b.Bottom, c.Bottom),
	}
}

// Resolution is the visible region of pixel space: a Width x Height
// viewport whose top-left corner sits at world point (X, Y).
type Resolution struct {
	Width, Height uint32
	X, Y          float32
}

// viewport returns the visible region as bounds.
func (r Resolution) viewport() Bounds {
	return Bounds{Left: r.X, Top: r.Y, Right: r.X + float32(r.Width), Bottom: r.Y + float32(r.Height)}
}

// TextArea places a Buffer on screen.
type TextArea struct {
	Buffer *Buffer
	Left   float32
	Top    float32
	Scale  float32
	Bounds Bounds
	Color  geom.Color
}

// GlyphQuad is a screen-space rectangle textured from the atlas.
// Positions are in pixels, texture coordinates are normalized.
type GlyphQuad struct {
	X0, Y0, X1, Y1 float32
	U0, V0, U1, V1 float32
	Color          geom.Color
}

// AppendLayout rasterizes the glyphs of every area into atlas and appends
// one quad per visible glyph to dst. Quads are clipped to the area bounds
// and to the viewport; glyphs entirely outside are dropped.
//
// When the atlas is full it is reset once and the layout retried, so a
// single frame never needs more than one atlas page.
func AppendLayout(dst []GlyphQuad, fs *FontSystem, atlas *Atlas, areas []TextArea, res Resolution) ([]GlyphQuad, error) {
	start := len(dst)
	out, err := appendLayout(dst, fs, atlas, areas, res)
	if errors.Is(err, ErrAtlasFull) {
		atlas.Reset()
		out, err = appendLayout(dst[:start], fs, atlas, areas, res)
	}
	if err != nil {
		return dst[:start], err
	}

	// The atlas may have grown while laying out, so texture coordinates are
	// normalized only once every glyph is placed.
	inv := 1 / float32(atlas.Size())
	for i := start; i < len(out); i++ {
		q := &out[i]
		q.U0 *= inv
		q.V0 *= inv
		q.U1 *= inv
		q.V1 *= inv
	}
	return out, nil
}

// appendLayout emits quads with texture coordinates in atlas pixels.
func appendLayout(dst []GlyphQuad, fs *FontSystem, atlas *Atlas, areas []TextArea, res Resolution) ([]GlyphQuad, error) {
	viewport := res.viewport()

	for _, area := range areas {
		buf := area.Buffer
		if buf == nil {
			continue
		}
		scale := area.Scale
		if scale <= 0 {
			scale = 1
		}
		clip := area.Bounds.intersect(viewport)
		if clip.Left >= clip.Right || clip.Top >= clip.Bottom {
			continue
		}

		size := uint32(toFixed(buf.metrics.FontSize * scale)) //nolint:gosec // positive by Metrics.Validate
		width, _ := buf.Size()

		for _, line := range buf.lines {
			var offset float32
			if line.RTL {
				offset = width - line.Width
			}
			baseline := math32.Round(area.Top + line.Baseline*scale)

			for _, g := range line.Glyphs {
				entry, err := atlas.Glyph(fs, GlyphKey{Face: g.Face, ID: g.ID, Size: size})
				if err != nil {
					return dst, err
				}
				if entry.Empty() {
					continue
				}

				penX := math32.Round(area.Left + (offset+g.X)*scale)
				penY := baseline + math32.Round(g.Y*scale)
				q := GlyphQuad{
					X0:    penX + entry.Left,
					Y0:    penY + entry.Top,
					U0:    float32(entry.X),
					V0:    float32(entry.Y),
					Color: area.Color,
				}
				q.X1 = q.X0 + float32(entry.W)
				q.Y1 = q.Y0 + float32(entry.H)
				q.U1 = q.U0 + float32(entry.W)
				q.V1 = q.V0 + float32(entry.H)

				if clipQuad(&q, clip) {
					dst = append(dst, q)
				}
			}
		}
	}
	return dst, nil
}

// clipQuad trims q to clip, adjusting texture coordinates by the same
// number of pixels. It reports false when nothing remains.
func clipQuad(q *GlyphQuad, clip Bounds) bool {
	if q.X1 <= clip.Left || q.X0 >= clip.Right || q.Y1 <= clip.Top || q.Y0 >= clip.Bottom {
		return false
	}
	if d := clip.Left - q.X0; d > 0 {
		q.X0 += d
		q.U0 += d
	}
	if d := q.X1 - clip.Right; d > 0 {
		q.X1 -= d
		q.U1 -= d
	}
	if d := clip.Top - q.Y0; d > 0 {
		q.Y0 += d
		q.V0 += d
	}
	if d := q.Y1 - clip.Bottom; d > 0 {
		q.Y1 -= d
		q.V1 -= d
	}
	return true
}
