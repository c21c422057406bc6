package shaping

import (
	"bytes"

	"github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// fontFace is one loaded font, parsed twice: once for shaping and once for
// outline extraction.
type fontFace struct {
	shape   *font.Face
	outline *sfnt.Font
}

// FontSystem owns the loaded fonts. The first font is the primary face,
// later fonts are consulted in load order for runes the primary face does
// not cover.
type FontSystem struct {
	faces []fontFace
	buf   sfnt.Buffer
}

// NewFontSystem parses the given fonts. With no arguments the Go Regular
// font is loaded.
func NewFontSystem(fonts ...[]byte) (*FontSystem, error) {
	if len(fonts) == 0 {
		fonts = [][]byte{goregular.TTF}
	}
	fs := &FontSystem{}
	for _, data := range fonts {
		if err := fs.LoadFontData(data); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// LoadFontData parses a TrueType/OpenType font and appends it to the
// fallback chain.
func (fs *FontSystem) LoadFontData(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFontData
	}
	idx := len(fs.faces)

	shapeFace, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return &FontError{Index: idx, Err: err}
	}
	outline, err := sfnt.Parse(data)
	if err != nil {
		return &FontError{Index: idx, Err: err}
	}

	fs.faces = append(fs.faces, fontFace{shape: shapeFace, outline: outline})
	return nil
}

// FaceCount returns the number of loaded fonts.
func (fs *FontSystem) FaceCount() int { return len(fs.faces) }

// faceFor returns the index of the first face with a glyph for r,
// falling back to the primary face.
func (fs *FontSystem) faceFor(r rune) int {
	for i := range fs.faces {
		if _, ok := fs.faces[i].shape.NominalGlyph(r); ok {
			return i
		}
	}
	return 0
}

// verticalMetrics returns ascent and descent (both positive, in pixels) of
// the primary face at the given size.
func (fs *FontSystem) verticalMetrics(size float32) (ascent, descent float32) {
	if len(fs.faces) == 0 {
		return size * 0.8, size * 0.2
	}
	m, err := fs.faces[0].outline.Metrics(&fs.buf, toFixed(size), xfont.HintingNone)
	if err != nil {
		return size * 0.8, size * 0.2
	}
	return fromFixed(m.Ascent), fromFixed(m.Descent)
}

// toFixed converts a pixel size to 26.6 fixed point.
func toFixed(v float32) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

// fromFixed converts a 26.6 fixed point value to pixels.
func fromFixed(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
