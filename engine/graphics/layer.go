package graphics

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type layerNode struct {
	Name        string   `json:"name,omitempty"`
	Attachments []string `json:"attachments"`
}

// Layer is a render pass target. It owns a framebuffer object and composes
// attachments it finds by name in a registry. Attachments are never owned:
// references are looked up again on every start and reset.
type Layer struct {
	backend  renderer.RendererBackend
	registry AttachmentRegistry

	name            string
	key             string
	configured      bool
	attachmentNames []string
	// same length as attachmentNames, nil where the name did not resolve
	attachments []*Attachment

	fbo uint32
	// slots attached during the last bind
	attached      map[metadata.AttachmentSlot]struct{}
	checkComplete bool
}

func NewLayer(backend renderer.RendererBackend, registry AttachmentRegistry) *Layer {
	return &Layer{
		backend:  backend,
		registry: registry,
		attached: make(map[metadata.AttachmentSlot]struct{}),
	}
}

func (l *Layer) TypeName() string { return metadata.LayerTypeName }
func (l *Layer) TypeID() uint32   { return metadata.LayerTypeID }

func (l *Layer) Parse(node Node) error {
	l.configured = false

	var n layerNode
	err := decodeStrict(node, &n)
	if err == nil {
		err = validateAttachmentNames(n.Attachments)
	}
	if err != nil {
		err = fmt.Errorf("%w: render layer '%s': %v", core.ErrConfig, n.Name, err)
		core.LogError(err.Error())
		return err
	}

	l.name = n.Name
	l.key = n.Name
	if l.key == "" {
		l.key = uuid.New().String()
	}
	l.attachmentNames = n.Attachments
	l.attachments = make([]*Attachment, len(n.Attachments))
	l.configured = true
	return nil
}

func validateAttachmentNames(names []string) error {
	if len(names) == 0 {
		return errors.New("'attachments' must list at least one attachment")
	}
	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("attachment name at position %d is empty", i)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("attachment '%s' is listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Configure sets the layer name and its ordered attachment names.
func (l *Layer) Configure(name string, attachmentNames ...string) error {
	node, err := encodeNode(layerNode{Name: name, Attachments: attachmentNames})
	if err != nil {
		return err
	}
	return l.Parse(node)
}

func (l *Layer) Serialize(doc *Document) error {
	if !l.configured {
		return fmt.Errorf("%w: serializing an unconfigured render layer", core.ErrPrecondition)
	}
	return doc.AppendValue(l.TypeName(), layerNode{
		Name:        l.name,
		Attachments: append([]string(nil), l.attachmentNames...),
	})
}

// Resolve looks every attachment name up in registry. Names that are not
// found leave an empty slot that binding skips.
func (l *Layer) Resolve(registry AttachmentRegistry) {
	if registry == nil {
		core.LogWarn("render layer '%s' resolved without a registry", l.key)
	}
	position := 0
	for i, name := range l.attachmentNames {
		l.attachments[i] = nil
		if registry == nil {
			continue
		}
		a, ok := registry.Lookup(name)
		if !ok || a == nil {
			core.LogWarn("render layer '%s': %v: attachment '%s'", l.key, core.ErrResolution, name)
			continue
		}
		l.attachments[i] = a
		if a.Target().IsColor() {
			if requested := a.Config().RequestedIndex; requested >= 0 && requested != position {
				core.LogWarn("render layer '%s': attachment '%s' asks for color output %d but is at position %d", l.key, name, requested, position)
			}
			position++
		}
	}
	l.checkComplete = true
}

// BindToRender binds the framebuffer for drawing and attaches every live
// attachment in declared order. Color outputs are numbered by position among
// the attached color attachments.
func (l *Layer) BindToRender() error {
	if !core.Assert(l.configured, "render layer bound before being configured") {
		return fmt.Errorf("%w: render layer is not configured", core.ErrPrecondition)
	}
	if l.fbo == 0 {
		fbo, err := l.backend.FramebufferCreate()
		if err != nil {
			core.LogError("render layer '%s': %s", l.key, err)
			return err
		}
		l.fbo = fbo
		l.attached = make(map[metadata.AttachmentSlot]struct{})
		l.checkComplete = true
	}
	l.backend.FramebufferBind(metadata.FramebufferBindingDraw, l.fbo)

	live := make([]*Attachment, 0, len(l.attachments))
	outputs := make([]uint32, 0, metadata.MaxColorAttachments)
	slots := make(map[metadata.AttachmentSlot]struct{}, len(l.attachments))
	for i, a := range l.attachments {
		switch {
		case a == nil:
			core.LogWarn("render layer '%s': skipping unresolved attachment '%s'", l.key, l.attachmentNames[i])
			continue
		case !a.IsGenerated():
			core.LogWarn("render layer '%s': skipping attachment '%s' without storage", l.key, l.attachmentNames[i])
			continue
		}
		if a.Target().IsColor() {
			if len(outputs) == metadata.MaxColorAttachments {
				core.LogWarn("render layer '%s': skipping '%s', all %d color outputs are used", l.key, l.attachmentNames[i], metadata.MaxColorAttachments)
				continue
			}
			a.SetOutputNumber(uint32(len(outputs)))
			outputs = append(outputs, uint32(len(outputs)))
		}
		live = append(live, a)
		slots[a.Slot()] = struct{}{}
	}

	// detach what an earlier bind left behind
	for slot := range l.attached {
		if _, ok := slots[slot]; !ok {
			if err := l.backend.FramebufferAttachRenderbuffer(slot, 0); err != nil {
				core.LogWarn("render layer '%s': detaching %s: %s", l.key, slot, err)
			}
		}
	}

	l.backend.FramebufferDrawBuffers(outputs)
	for _, a := range live {
		if err := a.AttachToFBO(); err != nil {
			return fmt.Errorf("render layer '%s': %w", l.key, err)
		}
	}
	l.attached = slots

	if l.checkComplete {
		if err := l.backend.FramebufferStatus(l.fbo); err != nil {
			err = fmt.Errorf("%w: render layer '%s': %v", core.ErrFramebufferIncomplete, l.key, err)
			core.LogError(err.Error())
			return err
		}
		l.checkComplete = false
	}
	return nil
}

// BindToRead binds the framebuffer for reading. Attachments are not touched.
func (l *Layer) BindToRead() error {
	if !core.Assert(l.fbo != 0, "render layer '%s' bound for reading before it was rendered to", l.key) {
		return fmt.Errorf("%w: render layer '%s' has no framebuffer", core.ErrPrecondition, l.key)
	}
	l.backend.FramebufferBind(metadata.FramebufferBindingRead, l.fbo)
	return nil
}

// UnbindFromAll makes the default framebuffer the draw and read target.
func (l *Layer) UnbindFromAll() {
	l.backend.FramebufferBind(metadata.FramebufferBindingDraw, 0)
	l.backend.FramebufferBind(metadata.FramebufferBindingRead, 0)
}

// BlitTo copies the first color output of the layer into dst, resolving
// multisampled storage. A nil dst is the default framebuffer. Depth is copied
// too when both sides have depth storage of the same format.
func (l *Layer) BlitTo(dst *Layer, width, height uint32) error {
	if err := l.BindToRead(); err != nil {
		return err
	}
	mask := metadata.BlitMaskColor
	if dst != nil {
		if err := dst.BindToRender(); err != nil {
			return err
		}
		src, dstDepth := l.depthAttachment(), dst.depthAttachment()
		if src != nil && dstDepth != nil && src.Format() == dstDepth.Format() {
			mask |= metadata.BlitMaskDepth
			if src.Format().IsStencilFormat() {
				mask |= metadata.BlitMaskStencil
			}
		}
	} else {
		l.backend.FramebufferBind(metadata.FramebufferBindingDraw, 0)
	}
	if err := l.backend.FramebufferBlit(width, height, mask); err != nil {
		return fmt.Errorf("render layer '%s': %w", l.key, err)
	}
	return nil
}

func (l *Layer) depthAttachment() *Attachment {
	for _, a := range l.attachments {
		if a == nil || !a.IsGenerated() {
			continue
		}
		if t := a.Target(); t == metadata.AttachmentTargetDepth || t == metadata.AttachmentTargetDepthStencil {
			return a
		}
	}
	return nil
}

// ReadPixels returns RGBA values of a color output, bottom row first.
func (l *Layer) ReadPixels(colorIndex uint32, x, y, width, height int32) ([]float32, error) {
	if err := l.BindToRead(); err != nil {
		return nil, err
	}
	pixels, err := l.backend.FramebufferReadPixels(colorIndex, x, y, width, height)
	if err != nil {
		return nil, fmt.Errorf("render layer '%s': %w", l.key, err)
	}
	return pixels, nil
}

// Destroy deletes the framebuffer. It is created again on the next bind.
func (l *Layer) Destroy() {
	if l.fbo == 0 {
		return
	}
	l.backend.FramebufferDestroy(l.fbo)
	l.fbo = 0
	l.attached = make(map[metadata.AttachmentSlot]struct{})
}

func (l *Layer) SystemStart(props SystemProperties) error {
	l.Resolve(l.registry)
	return nil
}

func (l *Layer) SystemReset(props SystemProperties) error {
	l.Destroy()
	l.Resolve(l.registry)
	return nil
}

func (l *Layer) Key() string  { return l.key }
func (l *Layer) Name() string { return l.name }

func (l *Layer) AttachmentNames() []string {
	return append([]string(nil), l.attachmentNames...)
}

// Attachments returns the resolved references, nil for unresolved names.
func (l *Layer) Attachments() []*Attachment {
	return append([]*Attachment(nil), l.attachments...)
}

func (l *Layer) Framebuffer() uint32 { return l.fbo }
