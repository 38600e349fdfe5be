package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima/engine/core"
)

// OpenGLRenderer drives a GL 4.1 core context. The context must be current on
// the calling goroutine before Initialize and for every following call.
type OpenGLRenderer struct {
	FrameNumber uint64

	framebufferWidth  uint32
	framebufferHeight uint32
	maxSamples        uint32

	debug bool
}

func New() *OpenGLRenderer {
	return &OpenGLRenderer{
		debug: true,
	}
}

func (r *OpenGLRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	if err := gl.Init(); err != nil {
		core.LogError("failed to initialize gl: %s", err)
		return err
	}

	var samples int32
	gl.GetIntegerv(gl.MAX_SAMPLES, &samples)
	r.maxSamples = uint32(max(samples, 0))

	r.framebufferWidth = appWidth
	r.framebufferHeight = appHeight
	gl.Viewport(0, 0, int32(appWidth), int32(appHeight))

	core.LogInfo("OpenGL %s on %s (max samples %d)", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)), r.maxSamples)
	core.LogInfo("OpenGL renderer initialized successfully for '%s'.", appName)
	return checkError("initialize")
}

func (r *OpenGLRenderer) Shutdown() error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	core.LogInfo("OpenGL renderer shut down after %d frames", r.FrameNumber)
	return nil
}

func (r *OpenGLRenderer) Resized(width, height uint32) error {
	if width == 0 || height == 0 {
		// minimized
		return nil
	}
	r.framebufferWidth = width
	r.framebufferHeight = height
	gl.Viewport(0, 0, int32(width), int32(height))
	core.LogDebug("OpenGL renderer backend->resized: w/h: %d/%d", width, height)
	return nil
}

func (r *OpenGLRenderer) BeginFrame(deltaTime float64) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.framebufferWidth), int32(r.framebufferHeight))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
	return nil
}

func (r *OpenGLRenderer) EndFrame(deltaTime float64) error {
	r.FrameNumber++
	if !r.debug {
		return nil
	}
	if err := checkError(fmt.Sprintf("frame %d", r.FrameNumber)); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (r *OpenGLRenderer) MaxSamples() uint32 {
	return r.maxSamples
}
