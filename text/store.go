package text

import (
	"fmt"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/shaping"
)

// DefaultFontSize is the font size used when a caller passes a
// non-positive size.
const DefaultFontSize = 16

// Handle identifies a cached text buffer.
type Handle uint64

// Point is a screen position in pixels, origin top-left.
type Point struct {
	X, Y float32
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float32) Point { return Point{X: x, Y: y} }

// Preparer consumes the text areas of a frame.
type Preparer interface {
	Prepare(areas []shaping.TextArea, res shaping.Resolution) error
}

// bufferRef points into one of the two pools.
type bufferRef struct {
	cached bool
	index  uint64 // Handle when cached, immediate pool position otherwise
}

type cachedEntry struct {
	buffer *shaping.Buffer
	size   float32
}

// queuedText is one draw request of the current frame.
type queuedText struct {
	ref       bufferRef
	pos       Point
	color     geom.Color
	scale     float32
	bounds    shaping.Bounds
	hasBounds bool
}

// Store owns cached and per-frame text buffers and the frame's draw list.
type Store struct {
	fs   *shaping.FontSystem
	opts storeOptions

	cached    []cachedEntry
	immediate []*shaping.Buffer
	spare     []*shaping.Buffer // immediate buffers released by ClearFrame
	queued    []queuedText
	areas     []shaping.TextArea
}

// NewStore creates an empty Store shaping with fs.
func NewStore(fs *shaping.FontSystem, opts ...StoreOption) *Store {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{fs: fs, opts: o}
}

// FontSystem returns the font system the Store shapes with.
func (s *Store) FontSystem() *shaping.FontSystem { return s.fs }

// Resolution returns the viewport resolution passed to the next Prepare.
func (s *Store) Resolution() shaping.Resolution { return s.opts.resolution }

// Resize updates the viewport resolution used by subsequent Prepare calls.
// The view origin is kept.
func (s *Store) Resize(width, height uint32) {
	s.opts.resolution.Width, s.opts.resolution.Height = width, height
}

// SetOrigin moves the world point shown at the top-left corner of the
// viewport. Text outside the moved viewport is clipped by Prepare.
func (s *Store) SetOrigin(x, y float32) {
	s.opts.resolution.X, s.opts.resolution.Y = x, y
}

func (s *Store) metrics(size float32) shaping.Metrics {
	if size <= 0 {
		size = DefaultFontSize
	}
	return shaping.Metrics{FontSize: size, LineHeight: size * s.opts.lineHeight}
}

func (s *Store) scale(scale float32) float32 {
	if scale <= 0 {
		return s.opts.defaultScale
	}
	return scale
}

// QueueText shapes str and queues it for this frame only.
//
// Shaping happens on every call, so text that is drawn every frame
// unchanged is cheaper through CreateCachedText and QueueCachedText.
func (s *Store) QueueText(str string, pos Point, size float32, color geom.Color, scale float32) error {
	return s.queueText(str, pos, size, color, scale, shaping.Bounds{}, false)
}

// QueueTextBounded is QueueText with a clipping rectangle.
func (s *Store) QueueTextBounded(str string, pos Point, size float32, color geom.Color, scale float32, bounds shaping.Bounds) error {
	return s.queueText(str, pos, size, color, scale, bounds, true)
}

func (s *Store) queueText(str string, pos Point, size float32, color geom.Color, scale float32, bounds shaping.Bounds, hasBounds bool) error {
	buf, err := s.immediateBuffer(s.metrics(size))
	if err != nil {
		return fmt.Errorf("text: queue %q: %w", str, err)
	}
	buf.SetText(s.fs, str)

	s.immediate = append(s.immediate, buf)
	s.queued = append(s.queued, queuedText{
		ref:       bufferRef{index: uint64(len(s.immediate) - 1)},
		pos:       pos,
		color:     color,
		scale:     s.scale(scale),
		bounds:    bounds,
		hasBounds: hasBounds,
	})
	return nil
}

// immediateBuffer returns a buffer for the immediate pool, reusing one
// released by an earlier ClearFrame when possible.
func (s *Store) immediateBuffer(m shaping.Metrics) (*shaping.Buffer, error) {
	if n := len(s.spare); n > 0 {
		buf := s.spare[n-1]
		if err := buf.SetMetrics(m); err != nil {
			return nil, err
		}
		s.spare = s.spare[:n-1]
		return buf, nil
	}
	return shaping.NewBuffer(s.fs, m)
}

// CreateCachedText shapes str once and stores it. The returned handle
// stays valid for the life of the Store. Nothing is queued.
func (s *Store) CreateCachedText(str string, size float32) (Handle, error) {
	m := s.metrics(size)
	buf, err := shaping.NewBuffer(s.fs, m)
	if err != nil {
		return 0, fmt.Errorf("text: cache %q: %w", str, err)
	}
	buf.SetText(s.fs, str)

	h := Handle(len(s.cached))
	s.cached = append(s.cached, cachedEntry{buffer: buf, size: m.FontSize})
	return h, nil
}

// QueueCachedText queues a cached buffer for this frame. It reports false,
// and queues nothing, if h was not issued by this Store.
func (s *Store) QueueCachedText(h Handle, pos Point, color geom.Color, scale float32) bool {
	return s.queueCached(h, pos, color, scale, shaping.Bounds{}, false)
}

// QueueCachedTextBounded is QueueCachedText with a clipping rectangle.
func (s *Store) QueueCachedTextBounded(h Handle, pos Point, color geom.Color, scale float32, bounds shaping.Bounds) bool {
	return s.queueCached(h, pos, color, scale, bounds, true)
}

func (s *Store) queueCached(h Handle, pos Point, color geom.Color, scale float32, bounds shaping.Bounds, hasBounds bool) bool {
	if !s.valid(h) {
		return false
	}
	s.queued = append(s.queued, queuedText{
		ref:       bufferRef{cached: true, index: uint64(h)},
		pos:       pos,
		color:     color,
		scale:     s.scale(scale),
		bounds:    bounds,
		hasBounds: hasBounds,
	})
	return true
}

// UpdateCachedText re-shapes a cached buffer in place with new text. When
// size is non-nil the buffer's metrics are reset to that size first.
// An unknown handle is a no-op and reports false.
func (s *Store) UpdateCachedText(h Handle, str string, size *float32) (bool, error) {
	if !s.valid(h) {
		return false, nil
	}
	e := &s.cached[h]
	if size != nil {
		m := s.metrics(*size)
		if err := e.buffer.SetMetrics(m); err != nil {
			return false, fmt.Errorf("text: update %d: %w", h, err)
		}
		e.size = m.FontSize
	}
	e.buffer.SetText(s.fs, str)
	return true, nil
}

func (s *Store) valid(h Handle) bool {
	return uint64(h) < uint64(len(s.cached))
}

// Lookup returns the shaped buffer behind h.
func (s *Store) Lookup(h Handle) (*shaping.Buffer, error) {
	if !s.valid(h) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return s.cached[h].buffer, nil
}

// CachedText returns the text of a cached buffer.
func (s *Store) CachedText(h Handle) (string, bool) {
	if !s.valid(h) {
		return "", false
	}
	return s.cached[h].buffer.Text(), true
}

// CachedSize returns the font size a cached buffer was last shaped at.
func (s *Store) CachedSize(h Handle) (float32, bool) {
	if !s.valid(h) {
		return 0, false
	}
	return s.cached[h].size, true
}

// CachedCount returns the number of cached buffers.
func (s *Store) CachedCount() int { return len(s.cached) }

// ImmediateCount returns the number of immediate buffers this frame.
func (s *Store) ImmediateCount() int { return len(s.immediate) }

// QueuedCount returns the number of draw requests this frame.
func (s *Store) QueuedCount() int { return len(s.queued) }

// resolve returns the buffer a reference points at, or nil.
func (s *Store) resolve(ref bufferRef) *shaping.Buffer {
	if ref.cached {
		if ref.index >= uint64(len(s.cached)) {
			return nil
		}
		return s.cached[ref.index].buffer
	}
	if ref.index >= uint64(len(s.immediate)) {
		return nil
	}
	return s.immediate[ref.index]
}

// Areas resolves the frame's draw list into text areas, in queue order.
// Requests whose buffer cannot be found are skipped. The returned slice is
// reused by the next call.
func (s *Store) Areas() []shaping.TextArea {
	s.areas = s.areas[:0]
	for _, q := range s.queued {
		buf := s.resolve(q.ref)
		if buf == nil {
			continue
		}
		bounds := q.bounds
		if !q.hasBounds {
			bounds = shaping.Unbounded()
		}
		s.areas = append(s.areas, shaping.TextArea{
			Buffer: buf,
			Left:   q.pos.X,
			Top:    q.pos.Y,
			Scale:  q.scale,
			Bounds: bounds,
			Color:  q.color,
		})
	}
	return s.areas
}

// Prepare hands the frame's text areas and the current resolution to p.
// It is called even when nothing is queued so p can drop stale output.
func (s *Store) Prepare(p Preparer) error {
	return p.Prepare(s.Areas(), s.opts.resolution)
}

// ClearFrame drops the immediate pool and the draw list. Cached buffers
// are kept.
func (s *Store) ClearFrame() {
	s.spare = append(s.spare, s.immediate...)
	clear(s.immediate)
	s.immediate = s.immediate[:0]
	s.queued = s.queued[:0]
	clear(s.areas)
	s.areas = s.areas[:0]
}
