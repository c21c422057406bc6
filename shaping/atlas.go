package shaping

import (
	"image"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Atlas size limits, in pixels per side.
const (
	DefaultAtlasSize = 256
	MaxAtlasSize     = 4096
)

// atlasPadding is the empty border kept around each glyph to avoid
// sampling bleed from neighbours.
const atlasPadding = 1

// GlyphKey identifies a rasterized glyph.
type GlyphKey struct {
	Face int
	ID   font.GID
	Size uint32 // 26.6 fixed pixel size
}

// AtlasEntry locates a glyph bitmap in the atlas.
type AtlasEntry struct {
	X, Y, W, H int
	// Left and Top offset the bitmap's top-left corner from the pen
	// position on the baseline.
	Left, Top float32
}

// Empty reports whether the glyph has no visible pixels.
func (e AtlasEntry) Empty() bool { return e.W == 0 || e.H == 0 }

// shelf is one row of the packer.
type shelf struct {
	y, h, x int
}

// Atlas caches rasterized glyphs in a square alpha page.
//
// Atlas is NOT thread-safe.
type Atlas struct {
	img     *image.Alpha
	maxSize int
	shelves []shelf
	nextY   int
	entries map[GlyphKey]AtlasEntry
	dirty   image.Rectangle
	resized bool

	raster *vector.Rasterizer
	buf    sfnt.Buffer
}

// NewAtlas returns an atlas of the given initial size that may grow up to
// maxSize. Non-positive values select DefaultAtlasSize and MaxAtlasSize.
func NewAtlas(size, maxSize int) *Atlas {
	if size <= 0 {
		size = DefaultAtlasSize
	}
	if maxSize <= 0 {
		maxSize = MaxAtlasSize
	}
	maxSize = max(maxSize, size)
	return &Atlas{
		img:     image.NewAlpha(image.Rect(0, 0, size, size)),
		maxSize: maxSize,
		entries: make(map[GlyphKey]AtlasEntry),
		raster:  vector.NewRasterizer(0, 0),
	}
}

// Image returns the atlas page.
func (a *Atlas) Image() *image.Alpha { return a.img }

// Size returns the side length of the atlas page.
func (a *Atlas) Size() int { return a.img.Rect.Dx() }

// Len returns the number of cached glyphs.
func (a *Atlas) Len() int { return len(a.entries) }

// Dirty returns the region written since the last MarkClean, and whether
// the page was reallocated (in which case the whole page must be uploaded).
func (a *Atlas) Dirty() (region image.Rectangle, resized bool) {
	return a.dirty, a.resized
}

// MarkClean clears the dirty state after an upload.
func (a *Atlas) MarkClean() {
	a.dirty = image.Rectangle{}
	a.resized = false
}

// Reset drops every cached glyph and clears the page, keeping its size.
func (a *Atlas) Reset() {
	clear(a.img.Pix)
	clear(a.entries)
	a.shelves = a.shelves[:0]
	a.nextY = 0
	a.dirty = a.img.Rect
}

// Glyph returns the atlas entry for key, rasterizing it on first use.
func (a *Atlas) Glyph(fs *FontSystem, key GlyphKey) (AtlasEntry, error) {
	if e, ok := a.entries[key]; ok {
		return e, nil
	}
	if key.Face < 0 || key.Face >= len(fs.faces) {
		return AtlasEntry{}, ErrNoFace
	}

	outline := fs.faces[key.Face].outline
	segments, err := outline.LoadGlyph(&a.buf, sfnt.GlyphIndex(key.ID), fixedSize(key.Size), nil)
	if err != nil {
		return AtlasEntry{}, &FontError{Index: key.Face, Err: err}
	}

	bounds := segments.Bounds()
	minX := math32.Floor(fromFixed(bounds.Min.X))
	minY := math32.Floor(fromFixed(bounds.Min.Y))
	maxX := math32.Ceil(fromFixed(bounds.Max.X))
	maxY := math32.Ceil(fromFixed(bounds.Max.Y))
	w, h := int(maxX-minX), int(maxY-minY)

	entry := AtlasEntry{Left: minX, Top: minY}
	if len(segments) == 0 || w <= 0 || h <= 0 {
		a.entries[key] = entry
		return entry, nil
	}

	x, y, err := a.allocate(w+2*atlasPadding, h+2*atlasPadding)
	if err != nil {
		return AtlasEntry{}, err
	}
	entry.X, entry.Y, entry.W, entry.H = x+atlasPadding, y+atlasPadding, w, h

	a.raster.Reset(w, h)
	a.raster.DrawOp = draw.Src
	for _, seg := range segments {
		p := seg.Args
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			a.raster.MoveTo(fromFixed(p[0].X)-minX, fromFixed(p[0].Y)-minY)
		case sfnt.SegmentOpLineTo:
			a.raster.LineTo(fromFixed(p[0].X)-minX, fromFixed(p[0].Y)-minY)
		case sfnt.SegmentOpQuadTo:
			a.raster.QuadTo(
				fromFixed(p[0].X)-minX, fromFixed(p[0].Y)-minY,
				fromFixed(p[1].X)-minX, fromFixed(p[1].Y)-minY,
			)
		case sfnt.SegmentOpCubeTo:
			a.raster.CubeTo(
				fromFixed(p[0].X)-minX, fromFixed(p[0].Y)-minY,
				fromFixed(p[1].X)-minX, fromFixed(p[1].Y)-minY,
				fromFixed(p[2].X)-minX, fromFixed(p[2].Y)-minY,
			)
		}
	}
	dst := image.Rect(entry.X, entry.Y, entry.X+w, entry.Y+h)
	a.raster.Draw(a.img, dst, image.Opaque, image.Point{})

	a.dirty = a.dirty.Union(dst)
	a.entries[key] = entry
	return entry, nil
}

// allocate reserves a w×h cell, growing the page when no shelf fits.
func (a *Atlas) allocate(w, h int) (x, y int, err error) {
	for {
		if x, y, ok := a.tryAllocate(w, h); ok {
			return x, y, nil
		}
		if !a.grow() {
			return 0, 0, ErrAtlasFull
		}
	}
}

func (a *Atlas) tryAllocate(w, h int) (x, y int, ok bool) {
	size := a.Size()
	if w > size {
		return 0, 0, false
	}
	for i := range a.shelves {
		s := &a.shelves[i]
		if h <= s.h && s.x+w <= size {
			x, y = s.x, s.y
			s.x += w
			return x, y, true
		}
	}
	if a.nextY+h > size {
		return 0, 0, false
	}
	a.shelves = append(a.shelves, shelf{y: a.nextY, h: h, x: w})
	y = a.nextY
	a.nextY += h
	return 0, y, true
}

// grow doubles the page size, keeping existing glyphs in place.
func (a *Atlas) grow() bool {
	size := a.Size()
	if size*2 > a.maxSize {
		return false
	}
	img := image.NewAlpha(image.Rect(0, 0, size*2, size*2))
	draw.Draw(img, a.img.Rect, a.img, image.Point{}, draw.Src)
	a.img = img
	a.resized = true
	a.dirty = img.Rect
	return true
}

// fixedSize converts a GlyphKey size back to 26.6 fixed point.
func fixedSize(v uint32) fixed.Int26_6 { return fixed.Int26_6(v) } //nolint:gosec // sizes are small
