package headless

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

const defaultMaxSamples uint32 = 8

var errOutOfMemory = errors.New("out of memory")

type objectKind uint8

const (
	kindRenderbuffer objectKind = iota
	kindTexture
)

type attachmentRef struct {
	kind objectKind
	name uint32
}

type framebuffer struct {
	// depth-stencil storage is referenced from both the depth and the stencil point
	points      map[metadata.AttachmentSlot]attachmentRef
	drawBuffers []uint32
}

// Backend is a software renderer backend. It keeps framebuffer storage in
// memory so attachment and layer behavior can be exercised without a GPU.
type Backend struct {
	appName string
	width   uint32
	height  uint32

	maxSamples uint32
	// allocations left before storage creation starts failing, -1 for never
	allocationBudget int

	framebufferIDs  *core.IdentifierPool
	renderbufferIDs *core.IdentifierPool
	textureIDs      *core.IdentifierPool

	framebuffers  map[uint32]*framebuffer
	renderbuffers map[uint32]*surface
	textures      map[uint32]*surface

	defaultColor        *surface
	defaultDepthStencil *surface

	boundDraw     uint32
	boundRead     uint32
	activeUnit    uint32
	boundTextures map[uint32]uint32

	clears int
	frames uint64
}

func New() *Backend {
	return &Backend{
		maxSamples:       defaultMaxSamples,
		allocationBudget: -1,
		framebufferIDs:   core.NewIdentifierPool(16),
		renderbufferIDs:  core.NewIdentifierPool(16),
		textureIDs:       core.NewIdentifierPool(16),
		framebuffers:     make(map[uint32]*framebuffer),
		renderbuffers:    make(map[uint32]*surface),
		textures:         make(map[uint32]*surface),
		boundTextures:    make(map[uint32]uint32),
	}
}

func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	if appWidth == 0 || appHeight == 0 {
		return fmt.Errorf("headless backend: invalid default framebuffer size %dx%d", appWidth, appHeight)
	}
	b.appName = appName
	b.createDefaultFramebuffer(appWidth, appHeight)
	core.LogInfo("headless renderer backend initialized for '%s' (%dx%d)", appName, appWidth, appHeight)
	return nil
}

func (b *Backend) createDefaultFramebuffer(width, height uint32) {
	b.width = width
	b.height = height
	b.defaultColor = newSurface(metadata.AttachmentFormatRGBA8, 0, width, height)
	b.defaultDepthStencil = newSurface(metadata.AttachmentFormatDepth24Stencil8, 0, width, height)
}

func (b *Backend) Shutdown() error {
	if leaked := b.LiveObjects(); leaked > 0 {
		core.LogWarn("headless renderer backend shut down with %d live objects", leaked)
	}
	*b = *New()
	return nil
}

func (b *Backend) Resized(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	b.createDefaultFramebuffer(width, height)
	return nil
}

func (b *Backend) BeginFrame(deltaTime float64) error {
	return nil
}

func (b *Backend) EndFrame(deltaTime float64) error {
	b.frames++
	return nil
}

func (b *Backend) MaxSamples() uint32 {
	return b.maxSamples
}

// SetMaxSamples changes the limit reported by MaxSamples.
func (b *Backend) SetMaxSamples(samples uint32) {
	b.maxSamples = samples
}

// FailAllocationsAfter makes every storage allocation after the next n fail.
// A negative n disables the failure.
func (b *Backend) FailAllocationsAfter(n int) {
	b.allocationBudget = n
}

func (b *Backend) allocate() error {
	if b.allocationBudget == 0 {
		return errOutOfMemory
	}
	if b.allocationBudget > 0 {
		b.allocationBudget--
	}
	return nil
}

func (b *Backend) FramebufferCreate() (uint32, error) {
	fb := &framebuffer{
		points:      make(map[metadata.AttachmentSlot]attachmentRef),
		drawBuffers: []uint32{0},
	}
	id := b.framebufferIDs.Acquire(fb)
	b.framebuffers[id] = fb
	return id, nil
}

func (b *Backend) FramebufferDestroy(fbo uint32) {
	if _, ok := b.framebuffers[fbo]; !ok {
		return
	}
	if err := b.framebufferIDs.Release(fbo); err != nil {
		core.LogError(err.Error())
	}
	delete(b.framebuffers, fbo)
	// deleting a bound framebuffer reverts the binding to the default one
	if b.boundDraw == fbo {
		b.boundDraw = 0
	}
	if b.boundRead == fbo {
		b.boundRead = 0
	}
}

func (b *Backend) FramebufferBind(binding metadata.FramebufferBinding, fbo uint32) {
	if _, ok := b.framebuffers[fbo]; fbo != 0 && !ok {
		core.LogError("cannot bind unknown framebuffer %d for %s", fbo, binding)
		return
	}
	if binding == metadata.FramebufferBindingRead {
		b.boundRead = fbo
		return
	}
	b.boundDraw = fbo
}

func (b *Backend) FramebufferBound(binding metadata.FramebufferBinding) uint32 {
	if binding == metadata.FramebufferBindingRead {
		return b.boundRead
	}
	return b.boundDraw
}

func (b *Backend) FramebufferStatus(fbo uint32) error {
	if fbo == 0 {
		return nil
	}
	fb, ok := b.framebuffers[fbo]
	if !ok {
		return fmt.Errorf("framebuffer %d does not exist", fbo)
	}
	if len(fb.points) == 0 {
		return fmt.Errorf("framebuffer %d: incomplete missing attachment", fbo)
	}

	samples := int64(-1)
	for slot, ref := range fb.points {
		s := b.resolve(ref)
		if s == nil {
			return fmt.Errorf("framebuffer %d: incomplete attachment at %s (storage deleted)", fbo, slot)
		}
		if !s.format.CompatibleWith(slot.Target) && !(slot.Target != metadata.AttachmentTargetColor && s.format == metadata.AttachmentFormatDepth24Stencil8) {
			return fmt.Errorf("framebuffer %d: incomplete attachment at %s (format %s)", fbo, slot, s.format)
		}
		if samples >= 0 && int64(s.samples) != samples {
			return fmt.Errorf("framebuffer %d: incomplete multisample", fbo)
		}
		samples = int64(s.samples)
	}

	for _, output := range fb.drawBuffers {
		if _, ok := fb.points[metadata.ColorSlot(output)]; !ok {
			return fmt.Errorf("framebuffer %d: incomplete draw buffer (color%d has no attachment)", fbo, output)
		}
	}
	return nil
}

func (b *Backend) FramebufferDrawBuffers(outputs []uint32) {
	fb, ok := b.framebuffers[b.boundDraw]
	if !ok {
		core.LogError("cannot set draw buffers on the default framebuffer")
		return
	}
	for _, o := range outputs {
		if o >= metadata.MaxColorAttachments {
			core.LogError("draw buffer color%d exceeds the maximum of %d", o, metadata.MaxColorAttachments)
			return
		}
	}
	fb.drawBuffers = append(fb.drawBuffers[:0], outputs...)
}

func (b *Backend) boundDrawFramebuffer() (*framebuffer, error) {
	if b.boundDraw == 0 {
		return nil, errors.New("no framebuffer object bound for drawing")
	}
	return b.framebuffers[b.boundDraw], nil
}

func (b *Backend) setPoint(fb *framebuffer, slot metadata.AttachmentSlot, ref attachmentRef, detach bool) {
	points := []metadata.AttachmentSlot{slot}
	if slot.Target == metadata.AttachmentTargetDepthStencil {
		points = []metadata.AttachmentSlot{{Target: metadata.AttachmentTargetDepth}, {Target: metadata.AttachmentTargetStencil}}
	}
	for _, p := range points {
		if detach {
			delete(fb.points, p)
			continue
		}
		fb.points[p] = ref
	}
}

func (b *Backend) FramebufferAttachRenderbuffer(slot metadata.AttachmentSlot, rbo uint32) error {
	fb, err := b.boundDrawFramebuffer()
	if err != nil {
		return err
	}
	if _, ok := b.renderbuffers[rbo]; rbo != 0 && !ok {
		return fmt.Errorf("renderbuffer %d does not exist", rbo)
	}
	b.setPoint(fb, slot, attachmentRef{kind: kindRenderbuffer, name: rbo}, rbo == 0)
	return nil
}

func (b *Backend) FramebufferAttachTexture(slot metadata.AttachmentSlot, texture *metadata.Texture) error {
	fb, err := b.boundDrawFramebuffer()
	if err != nil {
		return err
	}
	if !texture.HasStorage() {
		b.setPoint(fb, slot, attachmentRef{}, true)
		return nil
	}
	if _, ok := b.textures[texture.Handle]; !ok {
		return fmt.Errorf("texture '%s' (%d) does not exist", texture.Name, texture.Handle)
	}
	b.setPoint(fb, slot, attachmentRef{kind: kindTexture, name: texture.Handle}, false)
	return nil
}

func (b *Backend) resolve(ref attachmentRef) *surface {
	if ref.kind == kindTexture {
		return b.textures[ref.name]
	}
	return b.renderbuffers[ref.name]
}

// surfaceAt returns the storage attached at slot of fbo, the default
// framebuffer included.
func (b *Backend) surfaceAt(fbo uint32, slot metadata.AttachmentSlot) *surface {
	if fbo == 0 {
		if slot.Target == metadata.AttachmentTargetColor {
			if slot.Index == 0 {
				return b.defaultColor
			}
			return nil
		}
		return b.defaultDepthStencil
	}
	fb, ok := b.framebuffers[fbo]
	if !ok {
		return nil
	}
	ref, ok := fb.points[slot]
	if !ok {
		return nil
	}
	return b.resolve(ref)
}

func (b *Backend) drawBuffersOf(fbo uint32) []uint32 {
	if fbo == 0 {
		return []uint32{0}
	}
	if fb, ok := b.framebuffers[fbo]; ok {
		return fb.drawBuffers
	}
	return nil
}

func (b *Backend) FramebufferClearColor(drawBuffer uint32, rgba [4]float32) {
	outputs := b.drawBuffersOf(b.boundDraw)
	if drawBuffer >= uint32(len(outputs)) {
		return
	}
	if s := b.surfaceAt(b.boundDraw, metadata.ColorSlot(outputs[drawBuffer])); s != nil {
		s.fillColor(rgba)
		b.clears++
	}
}

func (b *Backend) FramebufferClearDepth(depth float32) {
	if s := b.surfaceAt(b.boundDraw, metadata.AttachmentSlot{Target: metadata.AttachmentTargetDepth}); s != nil {
		s.fillDepth(depth)
		b.clears++
	}
}

func (b *Backend) FramebufferClearStencil(stencil int32) {
	if s := b.surfaceAt(b.boundDraw, metadata.AttachmentSlot{Target: metadata.AttachmentTargetStencil}); s != nil {
		s.fillStencil(stencil)
		b.clears++
	}
}

func (b *Backend) FramebufferClearDepthStencil(depth float32, stencil int32) {
	b.FramebufferClearDepth(depth)
	b.FramebufferClearStencil(stencil)
}

func (b *Backend) FramebufferReadPixels(colorIndex uint32, x, y, width, height int32) ([]float32, error) {
	s := b.surfaceAt(b.boundRead, metadata.ColorSlot(colorIndex))
	if s == nil {
		return nil, fmt.Errorf("framebuffer %d has no color%d to read from", b.boundRead, colorIndex)
	}
	if s.samples > 0 {
		return nil, fmt.Errorf("framebuffer %d is multisampled and must be resolved before reading", b.boundRead)
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || uint32(x+width) > s.width || uint32(y+height) > s.height {
		return nil, fmt.Errorf("read region %d,%d %dx%d is outside of %dx%d", x, y, width, height, s.width, s.height)
	}

	pixels := make([]float32, 0, int(width)*int(height)*4)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			t := s.texels[uint32(row)*s.width+uint32(col)]
			pixels = append(pixels, t[:]...)
		}
	}
	return pixels, nil
}

func (b *Backend) FramebufferBlit(width, height uint32, mask metadata.BlitMask) error {
	src, dst := b.boundRead, b.boundDraw
	if src == dst {
		return fmt.Errorf("cannot blit framebuffer %d onto itself", src)
	}

	if mask&metadata.BlitMaskColor != 0 {
		from := b.surfaceAt(src, metadata.ColorSlot(0))
		if from == nil {
			return fmt.Errorf("framebuffer %d has no color buffer to blit from", src)
		}
		for _, output := range b.drawBuffersOf(dst) {
			to := b.surfaceAt(dst, metadata.ColorSlot(output))
			if to == nil {
				continue
			}
			if to.samples > 0 {
				return fmt.Errorf("cannot blit into multisampled framebuffer %d", dst)
			}
			to.copyRegion(from, width, height, metadata.BlitMaskColor)
		}
	}

	for _, part := range []struct {
		bit    metadata.BlitMask
		target metadata.AttachmentTarget
	}{
		{metadata.BlitMaskDepth, metadata.AttachmentTargetDepth},
		{metadata.BlitMaskStencil, metadata.AttachmentTargetStencil},
	} {
		if mask&part.bit == 0 {
			continue
		}
		from := b.surfaceAt(src, metadata.AttachmentSlot{Target: part.target})
		to := b.surfaceAt(dst, metadata.AttachmentSlot{Target: part.target})
		if from == nil || to == nil {
			continue
		}
		to.copyRegion(from, width, height, part.bit)
	}
	return nil
}

func (b *Backend) RenderbufferCreate(format metadata.AttachmentFormat, samples, width, height uint32) (uint32, error) {
	if err := b.validateStorage(format, samples, width, height); err != nil {
		return 0, err
	}
	s := newSurface(format, samples, width, height)
	id := b.renderbufferIDs.Acquire(s)
	b.renderbuffers[id] = s
	return id, nil
}

func (b *Backend) RenderbufferDestroy(rbo uint32) {
	if _, ok := b.renderbuffers[rbo]; !ok {
		return
	}
	if err := b.renderbufferIDs.Release(rbo); err != nil {
		core.LogError(err.Error())
	}
	delete(b.renderbuffers, rbo)
}

func (b *Backend) validateStorage(format metadata.AttachmentFormat, samples, width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("invalid storage size %dx%d", width, height)
	}
	if format == metadata.AttachmentFormatUnknown {
		return errors.New("unknown storage format")
	}
	if samples > b.maxSamples {
		return fmt.Errorf("sample count %d exceeds the maximum of %d", samples, b.maxSamples)
	}
	return b.allocate()
}

func (b *Backend) TextureCreateWriteable(texture *metadata.Texture) error {
	if err := b.validateStorage(texture.Format, texture.Samples, texture.Width, texture.Height); err != nil {
		return fmt.Errorf("texture '%s': %w", texture.Name, err)
	}
	s := newSurface(texture.Format, texture.Samples, texture.Width, texture.Height)
	texture.Handle = b.textureIDs.Acquire(s)
	b.textures[texture.Handle] = s
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) {
	if !texture.HasStorage() {
		return
	}
	if _, ok := b.textures[texture.Handle]; ok {
		if err := b.textureIDs.Release(texture.Handle); err != nil {
			core.LogError(err.Error())
		}
		delete(b.textures, texture.Handle)
		for unit, bound := range b.boundTextures {
			if bound == texture.Handle {
				delete(b.boundTextures, unit)
			}
		}
	}
	texture.Handle = 0
}

func (b *Backend) TextureActivate(unit uint32) {
	b.activeUnit = unit
}

func (b *Backend) TextureBind(texture *metadata.Texture) error {
	if !texture.HasStorage() {
		delete(b.boundTextures, b.activeUnit)
		return nil
	}
	if _, ok := b.textures[texture.Handle]; !ok {
		return fmt.Errorf("texture '%s' (%d) does not exist", texture.Name, texture.Handle)
	}
	b.boundTextures[b.activeUnit] = texture.Handle
	return nil
}

// LiveObjects counts framebuffers, renderbuffers and textures not yet destroyed.
func (b *Backend) LiveObjects() int {
	return b.framebufferIDs.InUse() + b.renderbufferIDs.InUse() + b.textureIDs.InUse()
}

func (b *Backend) LiveRenderbuffers() int {
	return b.renderbufferIDs.InUse()
}

func (b *Backend) LiveTextures() int {
	return b.textureIDs.InUse()
}

func (b *Backend) ActiveUnit() uint32 {
	return b.activeUnit
}

// BoundTexture returns the texture handle bound to unit, 0 if none.
func (b *Backend) BoundTexture(unit uint32) uint32 {
	return b.boundTextures[unit]
}

// Attached returns the object name at slot of fbo and whether it is a texture.
func (b *Backend) Attached(fbo uint32, slot metadata.AttachmentSlot) (name uint32, isTexture bool, ok bool) {
	fb, found := b.framebuffers[fbo]
	if !found {
		return 0, false, false
	}
	ref, found := fb.points[slot]
	if !found {
		return 0, false, false
	}
	return ref.name, ref.kind == kindTexture, true
}

func (b *Backend) DrawBuffers(fbo uint32) []uint32 {
	return append([]uint32(nil), b.drawBuffersOf(fbo)...)
}

// Samples reports the sample count of the storage at slot of fbo.
func (b *Backend) Samples(fbo uint32, slot metadata.AttachmentSlot) (uint32, bool) {
	s := b.surfaceAt(fbo, slot)
	if s == nil {
		return 0, false
	}
	return s.samples, true
}

// DepthStencilAt returns the depth and stencil values of a texel.
func (b *Backend) DepthStencilAt(fbo uint32, x, y uint32) (depth float32, stencil int32, ok bool) {
	d := b.surfaceAt(fbo, metadata.AttachmentSlot{Target: metadata.AttachmentTargetDepth})
	s := b.surfaceAt(fbo, metadata.AttachmentSlot{Target: metadata.AttachmentTargetStencil})
	if d == nil && s == nil {
		return 0, 0, false
	}
	if d != nil && x < d.width && y < d.height {
		depth = d.texels[y*d.width+x][0]
	}
	if s != nil && x < s.width && y < s.height {
		stencil = int32(s.texels[y*s.width+x][1])
	}
	return depth, stencil, true
}

// Clears counts clear operations that hit storage.
func (b *Backend) Clears() int {
	return b.clears
}

func (b *Backend) Frames() uint64 {
	return b.frames
}
