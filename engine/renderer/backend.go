package renderer

import "github.com/spaghettifunk/anima/engine/renderer/metadata"

// RendererBackend is the GPU API used by attachments and layers. Object names
// are API handles; 0 always means "none" (for framebuffers: the default one).
// Every call must happen on the goroutine that owns the context.
type RendererBackend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
	// MaxSamples is the highest sample count accepted for multisample storage.
	MaxSamples() uint32

	FramebufferCreate() (uint32, error)
	FramebufferDestroy(fbo uint32)
	FramebufferBind(binding metadata.FramebufferBinding, fbo uint32)
	FramebufferBound(binding metadata.FramebufferBinding) uint32
	// FramebufferStatus returns nil when fbo is complete.
	FramebufferStatus(fbo uint32) error
	// FramebufferDrawBuffers selects the color outputs of the bound draw framebuffer.
	FramebufferDrawBuffers(outputs []uint32)
	FramebufferAttachRenderbuffer(slot metadata.AttachmentSlot, rbo uint32) error
	FramebufferAttachTexture(slot metadata.AttachmentSlot, texture *metadata.Texture) error
	// The clear calls act on the bound draw framebuffer. drawBuffer is an index
	// into the list set with FramebufferDrawBuffers.
	FramebufferClearColor(drawBuffer uint32, rgba [4]float32)
	FramebufferClearDepth(depth float32)
	FramebufferClearStencil(stencil int32)
	FramebufferClearDepthStencil(depth float32, stencil int32)
	// FramebufferReadPixels reads RGBA texels of a color output of the bound
	// read framebuffer, bottom row first.
	FramebufferReadPixels(colorIndex uint32, x, y, width, height int32) ([]float32, error)
	// FramebufferBlit copies the bound read framebuffer into the bound draw framebuffer.
	FramebufferBlit(width, height uint32, mask metadata.BlitMask) error

	RenderbufferCreate(format metadata.AttachmentFormat, samples, width, height uint32) (uint32, error)
	RenderbufferDestroy(rbo uint32)

	// TextureCreateWriteable allocates storage described by the texture's
	// Width, Height, Format and Samples and stores the handle in it.
	TextureCreateWriteable(texture *metadata.Texture) error
	TextureDestroy(texture *metadata.Texture)
	TextureActivate(unit uint32)
	TextureBind(texture *metadata.Texture) error
}
