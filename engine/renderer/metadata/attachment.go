package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxColorAttachments is the number of color outputs a framebuffer can hold.
// OpenGL guarantees at least 8.
const MaxColorAttachments = 8

/** @brief The framebuffer attachment point an attachment binds to. */
type AttachmentTarget uint8

const (
	AttachmentTargetUnknown AttachmentTarget = iota
	/** @brief A color output. The output index is assigned by the owning layer. */
	AttachmentTargetColor
	AttachmentTargetDepth
	AttachmentTargetStencil
	AttachmentTargetDepthStencil
)

func (t AttachmentTarget) IsValid() bool {
	return t >= AttachmentTargetColor && t <= AttachmentTargetDepthStencil
}

func (t AttachmentTarget) IsColor() bool {
	return t == AttachmentTargetColor
}

func (t AttachmentTarget) String() string {
	switch t {
	case AttachmentTargetColor:
		return "color"
	case AttachmentTargetDepth:
		return "depth"
	case AttachmentTargetStencil:
		return "stencil"
	case AttachmentTargetDepthStencil:
		return "depth-stencil"
	default:
		return "unknown"
	}
}

// ParseAttachmentTarget reads the "target" field of an attachment node:
// "color", "color-N", "depth", "stencil" or "depth-stencil". For "color-N"
// the requested output index is returned, otherwise the index is -1.
func ParseAttachmentTarget(s string) (AttachmentTarget, int, error) {
	switch s {
	case "color":
		return AttachmentTargetColor, -1, nil
	case "depth":
		return AttachmentTargetDepth, -1, nil
	case "stencil":
		return AttachmentTargetStencil, -1, nil
	case "depth-stencil":
		return AttachmentTargetDepthStencil, -1, nil
	}

	if n, ok := strings.CutPrefix(s, "color-"); ok {
		index, err := strconv.Atoi(n)
		// only the spelling FormatAttachmentTarget writes back is accepted
		if err != nil || strconv.Itoa(index) != n || index < 0 || index >= MaxColorAttachments {
			return AttachmentTargetUnknown, -1, fmt.Errorf("color output index in '%s' must be in [0, %d)", s, MaxColorAttachments)
		}
		return AttachmentTargetColor, index, nil
	}

	return AttachmentTargetUnknown, -1, fmt.Errorf("unknown attachment target '%s'", s)
}

// FormatAttachmentTarget is the inverse of ParseAttachmentTarget.
func FormatAttachmentTarget(t AttachmentTarget, index int) string {
	if t == AttachmentTargetColor && index >= 0 {
		return fmt.Sprintf("color-%d", index)
	}
	return t.String()
}

/** @brief The internal storage format of an attachment. */
type AttachmentFormat uint8

const (
	AttachmentFormatUnknown AttachmentFormat = iota
	AttachmentFormatRGBA8
	AttachmentFormatSRGBA8
	AttachmentFormatRGBA16F
	AttachmentFormatRGBA32F
	AttachmentFormatR32I
	AttachmentFormatDepth24
	AttachmentFormatDepth32F
	AttachmentFormatStencil8
	AttachmentFormatDepth24Stencil8
)

var attachmentFormatNames = map[AttachmentFormat]string{
	AttachmentFormatRGBA8:           "rgba8",
	AttachmentFormatSRGBA8:          "srgba8",
	AttachmentFormatRGBA16F:         "rgba16f",
	AttachmentFormatRGBA32F:         "rgba32f",
	AttachmentFormatR32I:            "r32i",
	AttachmentFormatDepth24:         "depth24",
	AttachmentFormatDepth32F:        "depth32f",
	AttachmentFormatStencil8:        "stencil8",
	AttachmentFormatDepth24Stencil8: "depth24-stencil8",
}

func (f AttachmentFormat) String() string {
	if s, ok := attachmentFormatNames[f]; ok {
		return s
	}
	return "unknown"
}

func ParseAttachmentFormat(s string) (AttachmentFormat, error) {
	for f, name := range attachmentFormatNames {
		if name == s {
			return f, nil
		}
	}
	return AttachmentFormatUnknown, fmt.Errorf("unknown attachment format '%s'", s)
}

func (f AttachmentFormat) IsColorFormat() bool {
	return f >= AttachmentFormatRGBA8 && f <= AttachmentFormatR32I
}

func (f AttachmentFormat) IsDepthFormat() bool {
	return f == AttachmentFormatDepth24 || f == AttachmentFormatDepth32F || f == AttachmentFormatDepth24Stencil8
}

func (f AttachmentFormat) IsStencilFormat() bool {
	return f == AttachmentFormatStencil8 || f == AttachmentFormatDepth24Stencil8
}

// CompatibleWith reports whether storage of this format can be bound to target.
func (f AttachmentFormat) CompatibleWith(t AttachmentTarget) bool {
	switch t {
	case AttachmentTargetColor:
		return f.IsColorFormat()
	case AttachmentTargetDepth:
		return f == AttachmentFormatDepth24 || f == AttachmentFormatDepth32F
	case AttachmentTargetStencil:
		return f == AttachmentFormatStencil8
	case AttachmentTargetDepthStencil:
		return f == AttachmentFormatDepth24Stencil8
	default:
		return false
	}
}

// DefaultAttachmentFormat is the format used when a node does not name one.
func DefaultAttachmentFormat(t AttachmentTarget) AttachmentFormat {
	switch t {
	case AttachmentTargetColor:
		return AttachmentFormatRGBA8
	case AttachmentTargetDepth:
		return AttachmentFormatDepth24
	case AttachmentTargetStencil:
		return AttachmentFormatStencil8
	case AttachmentTargetDepthStencil:
		return AttachmentFormatDepth24Stencil8
	default:
		return AttachmentFormatUnknown
	}
}

// AttachmentSlot is an attachment point of a framebuffer. Index is the color
// output number and is zero for the other targets.
type AttachmentSlot struct {
	Target AttachmentTarget
	Index  uint32
}

func ColorSlot(index uint32) AttachmentSlot {
	return AttachmentSlot{Target: AttachmentTargetColor, Index: index}
}

func (s AttachmentSlot) String() string {
	if s.Target == AttachmentTargetColor {
		return fmt.Sprintf("color%d", s.Index)
	}
	return s.Target.String()
}

/** @brief Which framebuffer binding point an operation refers to. */
type FramebufferBinding uint8

const (
	FramebufferBindingDraw FramebufferBinding = iota
	FramebufferBindingRead
)

func (b FramebufferBinding) String() string {
	if b == FramebufferBindingRead {
		return "read"
	}
	return "draw"
}

/** @brief The buffers copied by a framebuffer blit. Can be combined. */
type BlitMask uint8

const (
	BlitMaskColor   BlitMask = 0x1
	BlitMaskDepth   BlitMask = 0x2
	BlitMaskStencil BlitMask = 0x4
)
