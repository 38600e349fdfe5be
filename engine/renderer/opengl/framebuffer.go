package opengl

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func (r *OpenGLRenderer) FramebufferCreate() (uint32, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	if fbo == 0 {
		return 0, fmt.Errorf("failed to generate framebuffer: %w", checkError("glGenFramebuffers"))
	}
	return fbo, nil
}

func (r *OpenGLRenderer) FramebufferDestroy(fbo uint32) {
	if fbo == 0 {
		return
	}
	gl.DeleteFramebuffers(1, &fbo)
}

func (r *OpenGLRenderer) FramebufferBind(binding metadata.FramebufferBinding, fbo uint32) {
	gl.BindFramebuffer(glBinding(binding), fbo)
}

func (r *OpenGLRenderer) FramebufferBound(binding metadata.FramebufferBinding) uint32 {
	var bound int32
	if binding == metadata.FramebufferBindingRead {
		gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &bound)
	} else {
		gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &bound)
	}
	return uint32(bound)
}

// FramebufferStatus temporarily binds fbo for drawing to query it.
func (r *OpenGLRenderer) FramebufferStatus(fbo uint32) error {
	previous := r.FramebufferBound(metadata.FramebufferBindingDraw)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, fbo)
	status := gl.CheckFramebufferStatus(gl.DRAW_FRAMEBUFFER)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, previous)

	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("framebuffer %d: %s", fbo, FramebufferStatusString(status))
	}
	return nil
}

func (r *OpenGLRenderer) FramebufferDrawBuffers(outputs []uint32) {
	if len(outputs) == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	buffers := make([]uint32, len(outputs))
	for i, o := range outputs {
		buffers[i] = gl.COLOR_ATTACHMENT0 + o
	}
	gl.DrawBuffers(int32(len(buffers)), &buffers[0])
}

func (r *OpenGLRenderer) requireDrawFramebuffer() error {
	if r.FramebufferBound(metadata.FramebufferBindingDraw) == 0 {
		return errors.New("no framebuffer object bound for drawing")
	}
	return nil
}

func (r *OpenGLRenderer) FramebufferAttachRenderbuffer(slot metadata.AttachmentSlot, rbo uint32) error {
	if err := r.requireDrawFramebuffer(); err != nil {
		return err
	}
	gl.FramebufferRenderbuffer(gl.DRAW_FRAMEBUFFER, glAttachment(slot), gl.RENDERBUFFER, rbo)
	return checkError(fmt.Sprintf("attach renderbuffer %d at %s", rbo, slot))
}

func (r *OpenGLRenderer) FramebufferAttachTexture(slot metadata.AttachmentSlot, texture *metadata.Texture) error {
	if err := r.requireDrawFramebuffer(); err != nil {
		return err
	}
	if !texture.HasStorage() {
		gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, glAttachment(slot), gl.TEXTURE_2D, 0, 0)
		return nil
	}
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, glAttachment(slot), textureTarget(texture), texture.Handle, 0)
	return checkError(fmt.Sprintf("attach texture '%s' at %s", texture.Name, slot))
}

func (r *OpenGLRenderer) FramebufferClearColor(drawBuffer uint32, rgba [4]float32) {
	gl.ClearBufferfv(gl.COLOR, int32(drawBuffer), &rgba[0])
}

func (r *OpenGLRenderer) FramebufferClearDepth(depth float32) {
	gl.ClearBufferfv(gl.DEPTH, 0, &depth)
}

func (r *OpenGLRenderer) FramebufferClearStencil(stencil int32) {
	gl.ClearBufferiv(gl.STENCIL, 0, &stencil)
}

func (r *OpenGLRenderer) FramebufferClearDepthStencil(depth float32, stencil int32) {
	gl.ClearBufferfi(gl.DEPTH_STENCIL, 0, depth, stencil)
}

func (r *OpenGLRenderer) FramebufferReadPixels(colorIndex uint32, x, y, width, height int32) ([]float32, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid read region %dx%d", width, height)
	}
	attachment := gl.COLOR_ATTACHMENT0 + colorIndex
	if r.FramebufferBound(metadata.FramebufferBindingRead) == 0 {
		attachment = gl.BACK
	}
	gl.ReadBuffer(attachment)

	// integer color buffers can only be read back as integers
	var componentType int32
	gl.GetFramebufferAttachmentParameteriv(gl.READ_FRAMEBUFFER, attachment, gl.FRAMEBUFFER_ATTACHMENT_COMPONENT_TYPE, &componentType)

	count := int(width) * int(height) * 4
	pixels := make([]float32, count)
	if componentType == gl.INT {
		raw := make([]int32, count)
		gl.ReadPixels(x, y, width, height, gl.RGBA_INTEGER, gl.INT, gl.Ptr(&raw[0]))
		for i, v := range raw {
			pixels[i] = float32(v)
		}
	} else {
		gl.ReadPixels(x, y, width, height, gl.RGBA, gl.FLOAT, gl.Ptr(&pixels[0]))
	}

	if err := checkError(fmt.Sprintf("read color%d", colorIndex)); err != nil {
		return nil, err
	}
	return pixels, nil
}

func (r *OpenGLRenderer) FramebufferBlit(width, height uint32, mask metadata.BlitMask) error {
	var bits uint32
	if mask&metadata.BlitMaskColor != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&metadata.BlitMaskDepth != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&metadata.BlitMaskStencil != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	if width > math.MaxInt32 || height > math.MaxInt32 {
		return fmt.Errorf("blit region %dx%d is too large", width, height)
	}
	w, h := int32(width), int32(height)
	// depth and stencil blits require nearest filtering
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, bits, gl.NEAREST)
	if err := checkError("blit framebuffer"); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (r *OpenGLRenderer) RenderbufferCreate(format metadata.AttachmentFormat, samples, width, height uint32) (uint32, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return 0, err
	}

	var rbo uint32
	gl.GenRenderbuffers(1, &rbo)
	if rbo == 0 {
		return 0, fmt.Errorf("failed to generate renderbuffer: %w", checkError("glGenRenderbuffers"))
	}

	gl.BindRenderbuffer(gl.RENDERBUFFER, rbo)
	if samples > 0 {
		gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, int32(samples), f.internal, int32(width), int32(height))
	} else {
		gl.RenderbufferStorage(gl.RENDERBUFFER, f.internal, int32(width), int32(height))
	}
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

	if err := checkError(fmt.Sprintf("renderbuffer storage %s %dx%d x%d", format, width, height, samples)); err != nil {
		gl.DeleteRenderbuffers(1, &rbo)
		return 0, err
	}
	return rbo, nil
}

func (r *OpenGLRenderer) RenderbufferDestroy(rbo uint32) {
	if rbo == 0 {
		return
	}
	gl.DeleteRenderbuffers(1, &rbo)
}
