package graphics

import (
	"errors"
	"fmt"

	"github.com/bloeys/gglm/gglm"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// attachmentNode is the JSON form of an attachment.
type attachmentNode struct {
	Name               string    `json:"name,omitempty"`
	Target             string    `json:"target"`
	Format             string    `json:"format,omitempty"`
	Multisample        bool      `json:"multisample,omitempty"`
	MultisampleTexture bool      `json:"multisample_texture,omitempty"`
	Clear              bool      `json:"clear,omitempty"`
	ClearValues        []float32 `json:"clear_values,omitempty"`
	Texture            *string   `json:"texture,omitempty"`
}

// AttachmentConfig is a validated attachment configuration.
type AttachmentConfig struct {
	Name   string
	Target metadata.AttachmentTarget
	// RequestedIndex is N for a "color-N" target, -1 otherwise. The zero
	// value requests output 0, use NewAttachmentConfig for a plain "color"
	// target. The output index actually used is assigned by the layer.
	RequestedIndex     int
	Format             metadata.AttachmentFormat
	Multisample        bool
	MultisampleTexture bool
	ClearOnUse         bool
	ClearValues        gglm.Vec4
	// TextureName names a shared texture. Empty for private storage.
	TextureName string

	formatGiven      bool
	clearValuesGiven bool
}

// NewAttachmentConfig returns a configuration for target without a requested
// color output and with the default format.
func NewAttachmentConfig(target metadata.AttachmentTarget) AttachmentConfig {
	return AttachmentConfig{
		Target:         target,
		RequestedIndex: -1,
	}
}

// Attachment is one renderable surface of a framebuffer: a renderbuffer or a
// texture, optionally multisampled, optionally cleared whenever it is attached.
type Attachment struct {
	backend  renderer.RendererBackend
	textures TextureProvider

	config     AttachmentConfig
	configured bool
	key        string

	generated    bool
	renderbuffer uint32
	texture      *metadata.Texture
	width        uint32
	height       uint32
	samples      uint32
	outputNumber uint32
}

// NewAttachment returns an unconfigured attachment. textures may be nil when
// no attachment names a shared texture.
func NewAttachment(backend renderer.RendererBackend, textures TextureProvider) *Attachment {
	return &Attachment{
		backend:  backend,
		textures: textures,
	}
}

func (a *Attachment) TypeName() string { return metadata.AttachmentTypeName }
func (a *Attachment) TypeID() uint32   { return metadata.AttachmentTypeID }

// defaultClearValues are used when clearing is enabled without explicit values.
func defaultClearValues(target metadata.AttachmentTarget) gglm.Vec4 {
	switch target {
	case metadata.AttachmentTargetDepth, metadata.AttachmentTargetDepthStencil:
		return gglm.NewVec4(1, 0, 0, 0)
	default:
		return gglm.NewVec4(0, 0, 0, 0)
	}
}

func parseAttachmentNode(n *attachmentNode) (AttachmentConfig, error) {
	cfg := AttachmentConfig{
		Name:               n.Name,
		Multisample:        n.Multisample,
		MultisampleTexture: n.MultisampleTexture,
		ClearOnUse:         n.Clear,
	}

	if n.Target == "" {
		return cfg, errors.New("missing 'target'")
	}
	target, index, err := metadata.ParseAttachmentTarget(n.Target)
	if err != nil {
		return cfg, err
	}
	cfg.Target = target
	cfg.RequestedIndex = index

	cfg.Format = metadata.DefaultAttachmentFormat(target)
	if n.Format != "" {
		if cfg.Format, err = metadata.ParseAttachmentFormat(n.Format); err != nil {
			return cfg, err
		}
		cfg.formatGiven = true
	}
	if !cfg.Format.CompatibleWith(target) {
		return cfg, fmt.Errorf("format '%s' cannot be used for a %s target", cfg.Format, target)
	}

	cfg.ClearValues = defaultClearValues(target)
	if n.ClearValues != nil {
		if len(n.ClearValues) != 4 {
			return cfg, fmt.Errorf("'clear_values' needs exactly 4 numbers, got %d", len(n.ClearValues))
		}
		copy(cfg.ClearValues.Data[:], n.ClearValues)
		cfg.clearValuesGiven = true
	}

	if n.Texture != nil {
		if *n.Texture == "" {
			return cfg, errors.New("'texture' must not be empty")
		}
		cfg.TextureName = *n.Texture
	}
	return cfg, nil
}

// Parse configures the attachment. On failure the attachment is left
// unconfigured and owns no storage.
func (a *Attachment) Parse(node Node) error {
	if a.generated {
		a.Destroy()
	}
	a.configured = false

	var n attachmentNode
	if err := decodeStrict(node, &n); err != nil {
		err = fmt.Errorf("%w: attachment: %v", core.ErrConfig, err)
		core.LogError(err.Error())
		return err
	}
	cfg, err := parseAttachmentNode(&n)
	if err != nil {
		err = fmt.Errorf("%w: attachment '%s': %v", core.ErrConfig, n.Name, err)
		core.LogError(err.Error())
		return err
	}

	a.config = cfg
	a.key = cfg.Name
	if a.key == "" {
		a.key = uuid.New().String()
	}
	a.configured = true
	return nil
}

// Configure applies an already validated configuration.
func (a *Attachment) Configure(cfg AttachmentConfig) error {
	n := attachmentNode{
		Name:               cfg.Name,
		Target:             metadata.FormatAttachmentTarget(cfg.Target, cfg.RequestedIndex),
		Multisample:        cfg.Multisample,
		MultisampleTexture: cfg.MultisampleTexture,
		Clear:              cfg.ClearOnUse,
		ClearValues:        cfg.ClearValues.Data[:],
	}
	if cfg.Format != metadata.AttachmentFormatUnknown {
		n.Format = cfg.Format.String()
	}
	if cfg.TextureName != "" {
		n.Texture = &cfg.TextureName
	}
	node, err := encodeNode(n)
	if err != nil {
		return err
	}
	return a.Parse(node)
}

func (a *Attachment) node() attachmentNode {
	cfg := &a.config
	n := attachmentNode{
		Name:               cfg.Name,
		Target:             metadata.FormatAttachmentTarget(cfg.Target, cfg.RequestedIndex),
		Multisample:        cfg.Multisample,
		MultisampleTexture: cfg.MultisampleTexture,
		Clear:              cfg.ClearOnUse,
	}
	if cfg.formatGiven {
		n.Format = cfg.Format.String()
	}
	if cfg.clearValuesGiven {
		n.ClearValues = append([]float32(nil), cfg.ClearValues.Data[:]...)
	}
	if cfg.TextureName != "" {
		name := cfg.TextureName
		n.Texture = &name
	}
	return n
}

func (a *Attachment) Serialize(doc *Document) error {
	if !a.configured {
		return fmt.Errorf("%w: serializing an unconfigured attachment", core.ErrPrecondition)
	}
	return doc.AppendValue(a.TypeName(), a.node())
}

// Generate allocates storage of the given size. Existing storage is released
// first. sampleCount is ignored unless the attachment is multisampled and is
// clamped to what the backend supports.
func (a *Attachment) Generate(width, height, sampleCount uint32) error {
	if !core.Assert(a.configured, "attachment generated before being configured") {
		return fmt.Errorf("%w: attachment is not configured", core.ErrPrecondition)
	}
	if width == 0 || height == 0 {
		err := fmt.Errorf("%w: attachment '%s': invalid size %dx%d", core.ErrConfig, a.key, width, height)
		core.LogError(err.Error())
		return err
	}
	if a.generated {
		a.Destroy()
	}

	samples := a.effectiveSamples(sampleCount)
	format := a.config.Format

	var err error
	switch {
	case samples > 1 && a.config.MultisampleTexture:
		err = a.generateTexture(width, height, samples)
	case samples > 1:
		a.renderbuffer, err = a.backend.RenderbufferCreate(format, samples, width, height)
	case a.config.TextureName != "":
		err = a.generateTexture(width, height, 0)
	default:
		a.renderbuffer, err = a.backend.RenderbufferCreate(format, 0, width, height)
	}
	if err != nil {
		a.release()
		err = fmt.Errorf("%w: attachment '%s': %v", core.ErrConfig, a.key, err)
		core.LogError(err.Error())
		return err
	}

	a.width = width
	a.height = height
	a.samples = samples
	a.generated = true
	core.LogDebug("attachment '%s' generated: %s %dx%d samples=%d texture=%t", a.key, format, width, height, samples, a.texture != nil)
	return nil
}

func (a *Attachment) effectiveSamples(requested uint32) uint32 {
	if !a.config.Multisample || requested <= 1 {
		return 0
	}
	samples := math.Clamp(requested, 0, a.backend.MaxSamples())
	if samples != requested {
		core.LogWarn("attachment '%s': sample count %d clamped to %d", a.key, requested, samples)
	}
	if samples <= 1 {
		return 0
	}
	if !math.IsPowerOfTwo(samples) {
		floored := math.FloorPowerOfTwo(samples)
		core.LogWarn("attachment '%s': sample count %d rounded down to %d", a.key, samples, floored)
		samples = floored
	}
	return samples
}

func (a *Attachment) generateTexture(width, height, samples uint32) error {
	if a.config.TextureName != "" {
		if a.textures == nil {
			return fmt.Errorf("no texture provider for shared texture '%s'", a.config.TextureName)
		}
		t, err := a.textures.AcquireWriteable(a.config.TextureName, width, height, a.config.Format, samples)
		if err != nil {
			return err
		}
		a.texture = t
		return nil
	}

	t := &metadata.Texture{
		ID:      metadata.InvalidID,
		Name:    a.key,
		Width:   width,
		Height:  height,
		Format:  a.config.Format,
		Samples: samples,
		Flags:   metadata.TextureFlagBits(metadata.TextureFlagIsWriteable),
	}
	if err := a.backend.TextureCreateWriteable(t); err != nil {
		return err
	}
	a.texture = t
	return nil
}

// release frees whatever storage is held, generated or not.
func (a *Attachment) release() {
	if a.renderbuffer != 0 {
		a.backend.RenderbufferDestroy(a.renderbuffer)
		a.renderbuffer = 0
	}
	if a.texture != nil {
		if a.isShared() {
			a.textures.Release(a.config.TextureName)
		} else {
			a.backend.TextureDestroy(a.texture)
		}
		a.texture = nil
	}
}

func (a *Attachment) isShared() bool {
	return a.config.TextureName != "" && a.textures != nil
}

// Destroy releases the storage. A shared texture only loses this
// attachment's reference.
func (a *Attachment) Destroy() {
	if !a.generated {
		return
	}
	a.release()
	a.generated = false
	a.width, a.height, a.samples = 0, 0, 0
	core.LogDebug("attachment '%s' destroyed", a.key)
}

// BindTexture binds the attachment texture to the active texture unit.
func (a *Attachment) BindTexture() error {
	if !core.Assert(a.generated, "attachment '%s' bound for sampling before being generated", a.key) {
		return fmt.Errorf("%w: attachment '%s' is not generated", core.ErrPrecondition, a.key)
	}
	if !core.Assert(a.texture != nil, "attachment '%s' is renderbuffer backed and has no texture", a.key) {
		return fmt.Errorf("%w: attachment '%s' has no texture", core.ErrPrecondition, a.key)
	}
	return a.backend.TextureBind(a.texture)
}

// SetOutputNumber sets the color output this attachment binds to. Layers
// assign it before attaching.
func (a *Attachment) SetOutputNumber(n uint32) {
	a.outputNumber = n
}

func (a *Attachment) OutputNumber() uint32 {
	return a.outputNumber
}

// Slot is the framebuffer attachment point used by AttachToFBO.
func (a *Attachment) Slot() metadata.AttachmentSlot {
	slot := metadata.AttachmentSlot{Target: a.config.Target}
	if a.config.Target.IsColor() {
		slot.Index = a.outputNumber
	}
	return slot
}

// AttachToFBO attaches the storage to the framebuffer bound for drawing and
// clears it when clear-on-use is set.
func (a *Attachment) AttachToFBO() error {
	if !core.Assert(a.generated, "attachment '%s' attached before being generated", a.key) {
		return fmt.Errorf("%w: attachment '%s' is not generated", core.ErrPrecondition, a.key)
	}
	if !core.Assert(a.backend.FramebufferBound(metadata.FramebufferBindingDraw) != 0, "attachment '%s' attached without a bound framebuffer", a.key) {
		return fmt.Errorf("%w: no framebuffer bound for attachment '%s'", core.ErrPrecondition, a.key)
	}

	slot := a.Slot()
	var err error
	if a.texture != nil {
		err = a.backend.FramebufferAttachTexture(slot, a.texture)
	} else {
		err = a.backend.FramebufferAttachRenderbuffer(slot, a.renderbuffer)
	}
	if err != nil {
		core.LogError("attachment '%s': %s", a.key, err)
		return err
	}

	if a.config.ClearOnUse {
		a.clear()
	}
	return nil
}

func (a *Attachment) clear() {
	v := a.config.ClearValues.Data
	switch a.config.Target {
	case metadata.AttachmentTargetColor:
		a.backend.FramebufferClearColor(a.outputNumber, v)
	case metadata.AttachmentTargetDepth:
		a.backend.FramebufferClearDepth(v[0])
	case metadata.AttachmentTargetStencil:
		a.backend.FramebufferClearStencil(int32(v[0]))
	case metadata.AttachmentTargetDepthStencil:
		a.backend.FramebufferClearDepthStencil(v[0], int32(v[1]))
	}
}

func (a *Attachment) SystemStart(props SystemProperties) error {
	return a.Generate(props.Width, props.Height, props.SampleCount)
}

func (a *Attachment) SystemReset(props SystemProperties) error {
	a.Destroy()
	return a.Generate(props.Width, props.Height, props.SampleCount)
}

func (a *Attachment) Key() string                       { return a.key }
func (a *Attachment) Name() string                      { return a.config.Name }
func (a *Attachment) Config() AttachmentConfig          { return a.config }
func (a *Attachment) Target() metadata.AttachmentTarget { return a.config.Target }
func (a *Attachment) Format() metadata.AttachmentFormat { return a.config.Format }
func (a *Attachment) IsConfigured() bool                { return a.configured }
func (a *Attachment) IsGenerated() bool                 { return a.generated }
func (a *Attachment) IsTextureBacked() bool             { return a.texture != nil }
func (a *Attachment) Texture() *metadata.Texture        { return a.texture }
func (a *Attachment) Renderbuffer() uint32              { return a.renderbuffer }
func (a *Attachment) Width() uint32                     { return a.width }
func (a *Attachment) Height() uint32                    { return a.height }
func (a *Attachment) Samples() uint32                   { return a.samples }
