// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrZeroSize is returned when a surface is configured with a zero extent.
var ErrZeroSize = errors.New("gpu: surface size must be non-zero")

// AcquireAction tells the frame loop how to react to an acquire failure.
type AcquireAction int

const (
	// AcquireFatal means the device can no longer render.
	AcquireFatal AcquireAction = iota

	// AcquireReconfigure means the swapchain is stale: reconfigure the
	// surface and skip the frame.
	AcquireReconfigure

	// AcquireSkip means no image is available right now: skip the frame
	// and try again next time.
	AcquireSkip
)

// String returns the action name.
func (a AcquireAction) String() string {
	switch a {
	case AcquireFatal:
		return "fatal"
	case AcquireReconfigure:
		return "reconfigure"
	case AcquireSkip:
		return "skip"
	default:
		return fmt.Sprintf("AcquireAction(%d)", int(a))
	}
}

// ClassifyAcquireError maps a surface acquire error to an action.
func ClassifyAcquireError(err error) AcquireAction {
	switch {
	case errors.Is(err, hal.ErrSurfaceLost), errors.Is(err, hal.ErrSurfaceOutdated):
		return AcquireReconfigure
	case errors.Is(err, hal.ErrNotReady), errors.Is(err, hal.ErrTimeout):
		return AcquireSkip
	default:
		return AcquireFatal
	}
}

// ChooseFormat picks the surface format. A defined preferred format wins;
// otherwise the first sRGB format from supported, then the first supported
// format. With no information BGRA8UnormSrgb is assumed.
func ChooseFormat(supported []gputypes.TextureFormat, preferred gputypes.TextureFormat) gputypes.TextureFormat {
	if preferred != gputypes.TextureFormatUndefined {
		return preferred
	}
	for _, f := range supported {
		if f.IsSrgb() {
			return f
		}
	}
	if len(supported) > 0 {
		return supported[0]
	}
	return gputypes.TextureFormatBGRA8UnormSrgb
}

// SurfaceFrame is an acquired swapchain image and a view onto it.
type SurfaceFrame struct {
	Texture    hal.SurfaceTexture
	View       hal.TextureView
	Suboptimal bool
}

// Surface wraps a hal.Surface with its current configuration.
//
// Surface is NOT thread-safe.
type Surface struct {
	device  hal.Device
	surface hal.Surface
	config  hal.SurfaceConfiguration
}

// NewSurface configures surface for rendering with the given format and
// present mode.
func NewSurface(device hal.Device, surface hal.Surface, width, height uint32, format gputypes.TextureFormat, mode gputypes.PresentMode) (*Surface, error) {
	s := &Surface{
		device:  device,
		surface: surface,
		config: hal.SurfaceConfiguration{
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: mode,
			AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		},
	}
	if err := s.Configure(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

// Raw returns the wrapped hal.Surface.
func (s *Surface) Raw() hal.Surface { return s.surface }

// Format returns the configured texture format.
func (s *Surface) Format() gputypes.TextureFormat { return s.config.Format }

// Size returns the configured extent.
func (s *Surface) Size() (width, height uint32) { return s.config.Width, s.config.Height }

// Configure applies a new extent to the surface.
func (s *Surface) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return ErrZeroSize
	}
	cfg := s.config
	cfg.Width, cfg.Height = width, height
	if err := s.surface.Configure(s.device, &cfg); err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", width, height, err)
	}
	s.config = cfg
	slogger().Info("surface configured",
		"width", width, "height", height, "format", cfg.Format, "presentMode", cfg.PresentMode)
	return nil
}

// Reconfigure re-applies the current configuration.
func (s *Surface) Reconfigure() error {
	return s.Configure(s.config.Width, s.config.Height)
}

// Acquire gets the next swapchain image and creates a view onto it.
// Errors from the surface are returned unwrapped so ClassifyAcquireError
// can inspect them.
func (s *Surface) Acquire() (*SurfaceFrame, error) {
	acquired, err := s.surface.AcquireTexture(nil)
	if err != nil {
		return nil, err
	}
	view, err := s.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:         "surface_view",
		Format:        s.config.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		s.surface.DiscardTexture(acquired.Texture)
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	return &SurfaceFrame{Texture: acquired.Texture, View: view, Suboptimal: acquired.Suboptimal}, nil
}

// Release destroys the frame's view. The texture itself belongs to the
// swapchain.
func (s *Surface) Release(f *SurfaceFrame) {
	if f == nil || f.View == nil {
		return
	}
	s.device.DestroyTextureView(f.View)
	f.View = nil
}

// Discard returns an unpresented frame to the swapchain.
func (s *Surface) Discard(f *SurfaceFrame) {
	if f == nil {
		return
	}
	s.Release(f)
	if f.Texture != nil {
		s.surface.DiscardTexture(f.Texture)
		f.Texture = nil
	}
}

// Unconfigure detaches the surface from the device.
func (s *Surface) Unconfigure() {
	s.surface.Unconfigure(s.device)
}
