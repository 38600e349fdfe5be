package headless

import (
	"math"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// surface is the storage behind a renderbuffer, a texture or the default
// framebuffer. Every texel keeps four channels: color uses all of them, depth
// lives in channel 0 and stencil in channel 1. Multisampled storage keeps a
// single value per texel, so a resolve is a plain copy.
type surface struct {
	format  metadata.AttachmentFormat
	samples uint32
	width   uint32
	height  uint32
	texels  [][4]float32
}

func newSurface(format metadata.AttachmentFormat, samples, width, height uint32) *surface {
	return &surface{
		format:  format,
		samples: samples,
		width:   width,
		height:  height,
		texels:  make([][4]float32, int(width)*int(height)),
	}
}

func (s *surface) fillColor(rgba [4]float32) {
	v := s.quantize(rgba)
	for i := range s.texels {
		s.texels[i] = v
	}
}

func (s *surface) fillDepth(depth float32) {
	d := float32(math.Max(0, math.Min(1, float64(depth))))
	for i := range s.texels {
		s.texels[i][0] = d
	}
}

func (s *surface) fillStencil(stencil int32) {
	v := float32(stencil & 0xFF)
	for i := range s.texels {
		s.texels[i][1] = v
	}
}

// quantize stores a value the way the internal format would.
func (s *surface) quantize(rgba [4]float32) [4]float32 {
	switch s.format {
	case metadata.AttachmentFormatRGBA8, metadata.AttachmentFormatSRGBA8:
		for i, c := range rgba {
			c = float32(math.Max(0, math.Min(1, float64(c))))
			rgba[i] = float32(math.Round(float64(c)*255) / 255)
		}
	case metadata.AttachmentFormatR32I:
		rgba = [4]float32{float32(math.Trunc(float64(rgba[0]))), 0, 0, 1}
	}
	return rgba
}

// copyRegion copies the lower left width x height texels of src into s,
// restricted to the channels selected by mask.
func (s *surface) copyRegion(src *surface, width, height uint32, mask metadata.BlitMask) {
	w := min(width, s.width, src.width)
	h := min(height, s.height, src.height)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			from := src.texels[y*src.width+x]
			to := &s.texels[y*s.width+x]
			if mask&metadata.BlitMaskColor != 0 && s.format.IsColorFormat() {
				*to = s.quantize(from)
			}
			if mask&metadata.BlitMaskDepth != 0 && s.format.IsDepthFormat() {
				to[0] = from[0]
			}
			if mask&metadata.BlitMaskStencil != 0 && s.format.IsStencilFormat() {
				to[1] = from[1]
			}
		}
	}
}
