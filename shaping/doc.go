// Package shaping turns strings into positioned glyphs and glyph quads.
//
// It is the text shaping service behind the draw queue:
//
//   - [FontSystem] holds the loaded fonts. Shaping uses go-text/typesetting
//     (HarfBuzz port), outlines come from golang.org/x/image/font/sfnt.
//   - [Buffer] is a shaped block of text with [Metrics]. Lines are split on
//     '\n', each line is segmented by bidi direction and by the first font
//     that covers each rune.
//   - [Atlas] rasterizes glyph outlines into a single alpha page with shelf
//     packing and tracks which part of the page needs uploading.
//   - [Layout] resolves a list of [TextArea] values into screen-space
//     [GlyphQuad] values clipped to their bounds and the viewport.
//
// None of the types in this package are safe for concurrent use.
package shaping
