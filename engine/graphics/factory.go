package graphics

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// BuildOrder is the order in which component types are instantiated from a
// document. Layers come last so their attachments exist when they resolve.
var BuildOrder = []string{metadata.AttachmentTypeName, metadata.LayerTypeName}

// Factory instantiates components by registered type name or id.
type Factory struct {
	backend  renderer.RendererBackend
	textures TextureProvider
	registry AttachmentRegistry
}

func NewFactory(backend renderer.RendererBackend, textures TextureProvider, registry AttachmentRegistry) *Factory {
	return &Factory{
		backend:  backend,
		textures: textures,
		registry: registry,
	}
}

func (f *Factory) Create(typeName string) (Component, error) {
	switch typeName {
	case metadata.AttachmentTypeName:
		return NewAttachment(f.backend, f.textures), nil
	case metadata.LayerTypeName:
		return NewLayer(f.backend, f.registry), nil
	default:
		return nil, fmt.Errorf("%w: unknown component type '%s'", core.ErrConfig, typeName)
	}
}

func (f *Factory) CreateByID(id uint32) (Component, error) {
	switch id {
	case metadata.AttachmentTypeID:
		return f.Create(metadata.AttachmentTypeName)
	case metadata.LayerTypeID:
		return f.Create(metadata.LayerTypeName)
	default:
		return nil, fmt.Errorf("%w: unknown component type id %d", core.ErrConfig, id)
	}
}

// Build creates and parses every node of doc, attachments first. It stops at
// the first node that fails to parse or repeats the name of an earlier node
// of the same type.
func (f *Factory) Build(doc *Document) ([]Component, error) {
	known := make(map[string]bool, len(BuildOrder))
	for _, typeName := range BuildOrder {
		known[typeName] = true
	}
	for _, typeName := range doc.TypeNames() {
		if !known[typeName] {
			return nil, fmt.Errorf("%w: unknown component type '%s'", core.ErrConfig, typeName)
		}
	}

	var components []Component
	for _, typeName := range BuildOrder {
		keys := make(map[string]struct{})
		for i, node := range doc.Nodes(typeName) {
			c, err := f.Create(typeName)
			if err != nil {
				return nil, err
			}
			if err := c.Parse(node); err != nil {
				return nil, fmt.Errorf("%s #%d: %w", typeName, i, err)
			}
			if _, ok := keys[c.Key()]; ok {
				return nil, fmt.Errorf("%w: %s #%d: name '%s' is used more than once", core.ErrConfig, typeName, i, c.Key())
			}
			keys[c.Key()] = struct{}{}
			components = append(components, c)
		}
	}
	return components, nil
}
