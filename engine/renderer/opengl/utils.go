package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func ConditionalOperator[T any](condition bool, a, b T) T {
	if condition {
		return a
	}
	return b
}

func GLErrorString(code uint32, getExtended bool) string {
	switch code {
	case gl.NO_ERROR:
		return ConditionalOperator(!getExtended, "GL_NO_ERROR", "GL_NO_ERROR No error has been recorded.")
	case gl.INVALID_ENUM:
		return ConditionalOperator(!getExtended, "GL_INVALID_ENUM", "GL_INVALID_ENUM An unacceptable value is specified for an enumerated argument.")
	case gl.INVALID_VALUE:
		return ConditionalOperator(!getExtended, "GL_INVALID_VALUE", "GL_INVALID_VALUE A numeric argument is out of range.")
	case gl.INVALID_OPERATION:
		return ConditionalOperator(!getExtended, "GL_INVALID_OPERATION", "GL_INVALID_OPERATION The specified operation is not allowed in the current state.")
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return ConditionalOperator(!getExtended, "GL_INVALID_FRAMEBUFFER_OPERATION", "GL_INVALID_FRAMEBUFFER_OPERATION The framebuffer object is not complete.")
	case gl.OUT_OF_MEMORY:
		return ConditionalOperator(!getExtended, "GL_OUT_OF_MEMORY", "GL_OUT_OF_MEMORY There is not enough memory left to execute the command.")
	default:
		return fmt.Sprintf("GL error 0x%X", code)
	}
}

func FramebufferStatusString(status uint32) string {
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return "GL_FRAMEBUFFER_COMPLETE"
	case gl.FRAMEBUFFER_UNDEFINED:
		return "GL_FRAMEBUFFER_UNDEFINED"
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return "GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT"
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return "GL_FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT"
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		return "GL_FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER"
	case gl.FRAMEBUFFER_INCOMPLETE_READ_BUFFER:
		return "GL_FRAMEBUFFER_INCOMPLETE_READ_BUFFER"
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return "GL_FRAMEBUFFER_UNSUPPORTED"
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		return "GL_FRAMEBUFFER_INCOMPLETE_MULTISAMPLE"
	case gl.FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS:
		return "GL_FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS"
	default:
		return fmt.Sprintf("framebuffer status 0x%X", status)
	}
}

// checkError drains the GL error queue and reports the first error found.
func checkError(operation string) error {
	first := uint32(gl.NO_ERROR)
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == gl.NO_ERROR {
			first = code
		}
	}
	if first != gl.NO_ERROR {
		return fmt.Errorf("%s: %s", operation, GLErrorString(first, true))
	}
	return nil
}

func glBinding(binding metadata.FramebufferBinding) uint32 {
	if binding == metadata.FramebufferBindingRead {
		return gl.READ_FRAMEBUFFER
	}
	return gl.DRAW_FRAMEBUFFER
}

func glAttachment(slot metadata.AttachmentSlot) uint32 {
	switch slot.Target {
	case metadata.AttachmentTargetColor:
		return gl.COLOR_ATTACHMENT0 + slot.Index
	case metadata.AttachmentTargetDepth:
		return gl.DEPTH_ATTACHMENT
	case metadata.AttachmentTargetStencil:
		return gl.STENCIL_ATTACHMENT
	case metadata.AttachmentTargetDepthStencil:
		return gl.DEPTH_STENCIL_ATTACHMENT
	default:
		return gl.NONE
	}
}

// glFormat describes how an attachment format maps to GL storage.
type glFormat struct {
	internal uint32
	format   uint32
	xtype    uint32
	filter   int32
}

var glFormats = map[metadata.AttachmentFormat]glFormat{
	metadata.AttachmentFormatRGBA8:           {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, gl.LINEAR},
	metadata.AttachmentFormatSRGBA8:          {gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE, gl.LINEAR},
	metadata.AttachmentFormatRGBA16F:         {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT, gl.LINEAR},
	metadata.AttachmentFormatRGBA32F:         {gl.RGBA32F, gl.RGBA, gl.FLOAT, gl.LINEAR},
	metadata.AttachmentFormatR32I:            {gl.R32I, gl.RED_INTEGER, gl.INT, gl.NEAREST},
	metadata.AttachmentFormatDepth24:         {gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT, gl.NEAREST},
	metadata.AttachmentFormatDepth32F:        {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT, gl.NEAREST},
	metadata.AttachmentFormatStencil8:        {gl.STENCIL_INDEX8, gl.STENCIL_INDEX, gl.UNSIGNED_BYTE, gl.NEAREST},
	metadata.AttachmentFormatDepth24Stencil8: {gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8, gl.NEAREST},
}

func lookupFormat(format metadata.AttachmentFormat) (glFormat, error) {
	f, ok := glFormats[format]
	if !ok {
		return glFormat{}, fmt.Errorf("unknown attachment format %d", format)
	}
	return f, nil
}
