package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
	"github.com/spaghettifunk/anima/engine/renderer"
)

type SystemManager struct {
	backend renderer.RendererBackend
	factory *graphics.Factory
	props   graphics.SystemProperties
	started bool

	jobSystem        *JobSystem
	textureSystem    *TextureSystem
	materialSystem   *MaterialSystem
	attachmentSystem *AttachmentSystem
	layerSystem      *LayerSystem
}

func NewSystemManager(backend renderer.RendererBackend) (*SystemManager, error) {
	js, err := NewJobSystem(2, 16)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: 256,
	}, backend)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: 256,
	}, ts, backend)
	if err != nil {
		return nil, err
	}
	as, err := NewAttachmentSystem(&AttachmentSystemConfig{
		MaxAttachmentCount: 64,
	})
	if err != nil {
		return nil, err
	}
	ls, err := NewLayerSystem(&LayerSystemConfig{
		MaxLayerCount: 64,
	})
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		backend:          backend,
		factory:          graphics.NewFactory(backend, ts, as),
		jobSystem:        js,
		textureSystem:    ts,
		materialSystem:   ms,
		attachmentSystem: as,
		layerSystem:      ls,
	}, nil
}

func (sm *SystemManager) build(doc *graphics.Document) ([]*graphics.Attachment, []*graphics.Layer, error) {
	components, err := sm.factory.Build(doc)
	if err != nil {
		return nil, nil, err
	}
	var attachments []*graphics.Attachment
	var layers []*graphics.Layer
	for _, c := range components {
		switch c := c.(type) {
		case *graphics.Attachment:
			attachments = append(attachments, c)
		case *graphics.Layer:
			layers = append(layers, c)
		}
	}
	return attachments, layers, nil
}

// LoadDocument instantiates and registers every component of doc. Nothing is
// registered when the document is invalid.
func (sm *SystemManager) LoadDocument(doc *graphics.Document) error {
	attachments, layers, err := sm.build(doc)
	if err != nil {
		core.LogError("render document rejected: %s", err)
		return err
	}
	var registeredAttachments, registeredLayers []string
	for _, a := range attachments {
		if err = sm.attachmentSystem.Register(a); err != nil {
			break
		}
		registeredAttachments = append(registeredAttachments, a.Key())
	}
	if err == nil {
		for _, l := range layers {
			if err = sm.layerSystem.Register(l); err != nil {
				break
			}
			registeredLayers = append(registeredLayers, l.Key())
		}
	}
	if err != nil {
		core.LogError("render document rejected: %s", err)
		for _, key := range registeredLayers {
			sm.layerSystem.Unregister(key)
		}
		for _, key := range registeredAttachments {
			sm.attachmentSystem.Unregister(key)
		}
		return err
	}
	core.LogInfo("render document loaded: %d attachments, %d layers", len(attachments), len(layers))
	return nil
}

// Start generates every attachment, then resolves every layer.
func (sm *SystemManager) Start(props graphics.SystemProperties) error {
	sm.props = props
	sm.started = true
	return errors.Join(
		sm.attachmentSystem.Start(props),
		sm.layerSystem.Start(props),
	)
}

// Reset rebuilds all storage for new properties, typically a new resolution.
func (sm *SystemManager) Reset(props graphics.SystemProperties) error {
	if !sm.started {
		return sm.Start(props)
	}
	sm.props = props
	err := errors.Join(
		sm.attachmentSystem.Reset(props),
		sm.layerSystem.Reset(props),
	)
	sm.refreshRequired()
	return err
}

// Reload replaces the current configuration with doc. The current
// configuration stays in place when doc is invalid.
func (sm *SystemManager) Reload(doc *graphics.Document) error {
	attachments, layers, err := sm.build(doc)
	if err != nil {
		core.LogError("render document reload rejected, keeping the current configuration: %s", err)
		return err
	}
	if err := sm.fits(attachments, layers); err != nil {
		core.LogError("render document reload rejected, keeping the current configuration: %s", err)
		return err
	}

	sm.layerSystem.Shutdown()
	sm.attachmentSystem.Shutdown()

	for _, a := range attachments {
		if err := sm.attachmentSystem.Register(a); err != nil {
			return err
		}
	}
	for _, l := range layers {
		if err := sm.layerSystem.Register(l); err != nil {
			return err
		}
	}
	core.LogInfo("render document reloaded: %d attachments, %d layers", len(attachments), len(layers))

	if !sm.started {
		return nil
	}
	err = sm.Start(sm.props)
	sm.refreshRequired()
	return err
}

// fits reports whether a built document can replace the current one without
// exceeding the capacity of the registries.
func (sm *SystemManager) fits(attachments []*graphics.Attachment, layers []*graphics.Layer) error {
	if limit := sm.attachmentSystem.Config.MaxAttachmentCount; uint32(len(attachments)) > limit {
		return fmt.Errorf("%w: %d attachments, the attachment system holds at most %d", core.ErrConfig, len(attachments), limit)
	}
	if limit := sm.layerSystem.Config.MaxLayerCount; uint32(len(layers)) > limit {
		return fmt.Errorf("%w: %d render layers, the layer system holds at most %d", core.ErrConfig, len(layers), limit)
	}
	return nil
}

func (sm *SystemManager) refreshRequired() {
	core.EventFire(core.EVENT_CODE_DEFAULT_RENDERTARGET_REFRESH_REQUIRED, sm, core.EventContext{})
}

// Document serializes the current configuration.
func (sm *SystemManager) Document() (*graphics.Document, error) {
	doc := graphics.NewDocument()
	for _, a := range sm.attachmentSystem.All() {
		if err := a.Serialize(doc); err != nil {
			return nil, err
		}
	}
	for _, l := range sm.layerSystem.All() {
		if err := l.Serialize(doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (sm *SystemManager) Layer(name string) (*graphics.Layer, error) {
	l, ok := sm.layerSystem.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: render layer '%s'", core.ErrResolution, name)
	}
	return l, nil
}

func (sm *SystemManager) Properties() graphics.SystemProperties { return sm.props }
func (sm *SystemManager) JobSystem() *JobSystem                  { return sm.jobSystem }
func (sm *SystemManager) TextureSystem() *TextureSystem          { return sm.textureSystem }
func (sm *SystemManager) MaterialSystem() *MaterialSystem        { return sm.materialSystem }
func (sm *SystemManager) AttachmentSystem() *AttachmentSystem    { return sm.attachmentSystem }
func (sm *SystemManager) LayerSystem() *LayerSystem              { return sm.layerSystem }

func (sm *SystemManager) Shutdown() error {
	// pending jobs may still report back to the other systems
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.layerSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.attachmentSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.materialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	sm.started = false
	return nil
}
