package shaping

import (
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	gtshaping "github.com/go-text/typesetting/shaping"
	"golang.org/x/text/unicode/bidi"
)

// DefaultLineHeight is the line height factor applied to the font size
// when a caller does not choose one.
const DefaultLineHeight = 1.2

// Metrics are the font size and line height of a Buffer, in pixels.
type Metrics struct {
	FontSize   float32
	LineHeight float32
}

// NewMetrics returns Metrics with LineHeight = size * DefaultLineHeight.
func NewMetrics(size float32) Metrics {
	return Metrics{FontSize: size, LineHeight: size * DefaultLineHeight}
}

// Validate reports ErrInvalidMetrics for a non-positive or non-finite
// font size or line height.
func (m Metrics) Validate() error {
	if !finitePositive(m.FontSize) || !finitePositive(m.LineHeight) {
		return ErrInvalidMetrics
	}
	return nil
}

func finitePositive(v float32) bool {
	return v > 0 && !math32.IsInf(v, 1)
}

// Glyph is a shaped glyph positioned relative to its line's origin on the
// baseline. Y grows downward.
type Glyph struct {
	Face    int
	ID      font.GID
	X, Y    float32
	Advance float32
	Cluster int // rune index in the line
}

// Line is one shaped line of a Buffer.
type Line struct {
	Text     string
	Glyphs   []Glyph
	Width    float32
	Baseline float32 // distance from the buffer top to this line's baseline
	RTL      bool
}

// Buffer is a block of shaped text.
//
// Buffer is NOT thread-safe.
type Buffer struct {
	text    string
	metrics Metrics
	lines   []Line
	width   float32
}

// NewBuffer returns an empty buffer with the given metrics.
func NewBuffer(fs *FontSystem, m Metrics) (*Buffer, error) {
	if fs == nil || len(fs.faces) == 0 {
		return nil, ErrNoFace
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &Buffer{metrics: m}, nil
}

// Text returns the text last passed to SetText.
func (b *Buffer) Text() string { return b.text }

// Metrics returns the current metrics.
func (b *Buffer) Metrics() Metrics { return b.metrics }

// Lines returns the shaped lines.
func (b *Buffer) Lines() []Line { return b.lines }

// Size returns the width of the widest line and the total height of all
// lines, in pixels at scale 1.
func (b *Buffer) Size() (width, height float32) {
	return b.width, float32(len(b.lines)) * b.metrics.LineHeight
}

// SetMetrics replaces the metrics. The shaped lines are stale until the
// next SetText or Reshape.
func (b *Buffer) SetMetrics(m Metrics) error {
	if err := m.Validate(); err != nil {
		return err
	}
	b.metrics = m
	return nil
}

// SetText replaces the text and shapes it.
func (b *Buffer) SetText(fs *FontSystem, s string) {
	b.text = s
	b.Reshape(fs)
}

// Reshape shapes the current text again with the current metrics.
func (b *Buffer) Reshape(fs *FontSystem) {
	b.lines = b.lines[:0]
	b.width = 0
	if b.text == "" {
		return
	}

	ascent, descent := fs.verticalMetrics(b.metrics.FontSize)
	leading := (b.metrics.LineHeight - (ascent + descent)) / 2

	for i, text := range strings.Split(b.text, "\n") {
		line := shapeLine(fs, text, b.metrics.FontSize)
		line.Baseline = float32(i)*b.metrics.LineHeight + leading + ascent
		b.width = math32.Max(b.width, line.Width)
		b.lines = append(b.lines, line)
	}
}

// shapeLine shapes one line of text. Runs are split by bidi direction and
// by font coverage, then laid out left to right in visual order.
func shapeLine(fs *FontSystem, text string, size float32) Line {
	line := Line{Text: text}
	text = strings.TrimSuffix(text, "\r")
	runes := []rune(text)
	if len(runes) == 0 {
		return line
	}

	runs, rtl := bidiRuns(text, len(runes))
	line.RTL = rtl
	if rtl {
		// Base direction right-to-left: runs are placed from the right.
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}

	shaper := shaperPool.Get().(*gtshaping.HarfbuzzShaper)
	defer shaperPool.Put(shaper)

	var pen float32
	for _, run := range runs {
		for _, sub := range splitByFace(fs, runes, run) {
			input := gtshaping.Input{
				Text:      runes,
				RunStart:  sub.start,
				RunEnd:    sub.end,
				Direction: sub.dir,
				Face:      fs.faces[sub.face].shape,
				Size:      toFixed(size),
				Script:    detectScript(runes[sub.start:sub.end]),
				Language:  language.NewLanguage("en"),
			}
			out := shaper.Shape(input)
			for _, g := range out.Glyphs {
				line.Glyphs = append(line.Glyphs, Glyph{
					Face:    sub.face,
					ID:      g.GlyphID,
					X:       pen + fromFixed(g.XOffset),
					Y:       -fromFixed(g.YOffset),
					Advance: fromFixed(g.Advance),
					Cluster: g.TextIndex(),
				})
				pen += fromFixed(g.Advance)
			}
		}
	}
	line.Width = pen
	return line
}

// textRun is a rune range [start, end) with a single direction and face.
type textRun struct {
	start, end int
	dir        di.Direction
	face       int
}

// bidiRuns splits text into directional runs in logical order and reports
// whether the paragraph's base direction is right-to-left.
func bidiRuns(text string, n int) ([]textRun, bool) {
	var p bidi.Paragraph
	if _, err := p.SetString(text, bidi.DefaultDirection(bidi.LeftToRight)); err != nil {
		return []textRun{{start: 0, end: n, dir: di.DirectionLTR}}, false
	}
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return []textRun{{start: 0, end: n, dir: di.DirectionLTR}}, false
	}

	runs := make([]textRun, 0, ordering.NumRuns())
	for i := range ordering.NumRuns() {
		r := ordering.Run(i)
		start, end := r.Pos()
		end = min(end+1, n)
		if start >= end {
			continue
		}
		dir := di.DirectionLTR
		if r.Direction() == bidi.RightToLeft {
			dir = di.DirectionRTL
		}
		runs = append(runs, textRun{start: start, end: end, dir: dir})
	}
	if len(runs) == 0 {
		return []textRun{{start: 0, end: n, dir: di.DirectionLTR}}, false
	}
	return runs, ordering.Direction() == bidi.RightToLeft
}

// splitByFace splits a directional run wherever the covering font changes.
// Sub-runs of a right-to-left run are returned in visual order.
func splitByFace(fs *FontSystem, runes []rune, run textRun) []textRun {
	var out []textRun
	cur := textRun{start: run.start, dir: run.dir, face: fs.faceFor(runes[run.start])}
	for i := run.start + 1; i < run.end; i++ {
		f := fs.faceFor(runes[i])
		if f == cur.face {
			continue
		}
		cur.end = i
		out = append(out, cur)
		cur = textRun{start: i, dir: run.dir, face: f}
	}
	cur.end = run.end
	out = append(out, cur)

	if run.dir == di.DirectionRTL {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
