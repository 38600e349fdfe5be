package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

// Material keeps the ordered list of textures a shader samples. The position
// of a texture in the list is the index shaders refer to.
type Material struct {
	ID   uint32
	Name string
	// Incremented whenever the textures of the material need to be bound again.
	Generation uint32

	textures []*metadata.Texture
	backend  renderer.RendererBackend
}

// AddTexture appends t unless it is already present and returns its index.
func (m *Material) AddTexture(t *metadata.Texture) int {
	for i, existing := range m.textures {
		if existing == t {
			return i
		}
	}
	m.textures = append(m.textures, t)
	return len(m.textures) - 1
}

// GetTextureIndex returns the index of t, adding it when missing.
func (m *Material) GetTextureIndex(t *metadata.Texture) int {
	return m.AddTexture(t)
}

// ActivateTexture makes unit the active texture unit and binds the texture at
// index to it. Indices outside the list are ignored.
func (m *Material) ActivateTexture(index int, unit uint32) error {
	if index < 0 || index >= len(m.textures) {
		return nil
	}
	m.backend.TextureActivate(unit)
	if err := m.backend.TextureBind(m.textures[index]); err != nil {
		return fmt.Errorf("material '%s' texture %d: %w", m.Name, index, err)
	}
	return nil
}

// ActivateAll binds every texture to the unit matching its index.
func (m *Material) ActivateAll() error {
	for i := range m.textures {
		if err := m.ActivateTexture(i, uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Material) Textures() []*metadata.Texture {
	return append([]*metadata.Texture(nil), m.textures...)
}

type MaterialSystemConfig struct {
	MaxMaterialCount uint32
}

type materialReference struct {
	referenceCount uint64
	material       *Material
}

type MaterialSystem struct {
	Config *MaterialSystemConfig

	registered    map[string]*materialReference
	nextID        uint32
	textureSystem *TextureSystem
	backend       renderer.RendererBackend
}

func NewMaterialSystem(config *MaterialSystemConfig, ts *TextureSystem, backend renderer.RendererBackend) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	ms := &MaterialSystem{
		Config:        config,
		registered:    make(map[string]*materialReference),
		textureSystem: ts,
		backend:       backend,
	}
	core.EventRegister(core.EVENT_CODE_DEFAULT_RENDERTARGET_REFRESH_REQUIRED, ms, ms.onRenderTargetRefresh)
	return ms, nil
}

// Acquire returns the material called name, creating an empty one if needed.
func (ms *MaterialSystem) Acquire(name string) (*Material, error) {
	if ref, ok := ms.registered[name]; ok {
		ref.referenceCount++
		return ref.material, nil
	}
	if uint32(len(ms.registered)) >= ms.Config.MaxMaterialCount {
		err := fmt.Errorf("material system cannot hold anymore materials (max %d)", ms.Config.MaxMaterialCount)
		core.LogError(err.Error())
		return nil, err
	}
	m := &Material{
		ID:      ms.nextID,
		Name:    name,
		backend: ms.backend,
	}
	ms.nextID++
	ms.registered[name] = &materialReference{referenceCount: 1, material: m}
	return m, nil
}

// AddTextureByName adds the shared texture called textureName to the
// material and returns its index.
func (ms *MaterialSystem) AddTextureByName(m *Material, textureName string) (int, error) {
	t, ok := ms.textureSystem.Get(textureName)
	if !ok {
		return -1, fmt.Errorf("%w: texture '%s' for material '%s'", core.ErrResolution, textureName, m.Name)
	}
	return m.AddTexture(t), nil
}

func (ms *MaterialSystem) Release(name string) {
	ref, ok := ms.registered[name]
	if !ok {
		core.LogWarn("Tried to release non-existent material: '%s'", name)
		return
	}
	ref.referenceCount--
	if ref.referenceCount == 0 {
		delete(ms.registered, name)
	}
}

func (ms *MaterialSystem) Get(name string) (*Material, bool) {
	ref, ok := ms.registered[name]
	if !ok {
		return nil, false
	}
	return ref.material, true
}

func (ms *MaterialSystem) onRenderTargetRefresh(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	for _, ref := range ms.registered {
		ref.material.Generation++
	}
	// other listeners may care too
	return false
}

func (ms *MaterialSystem) Shutdown() error {
	core.EventUnregister(core.EVENT_CODE_DEFAULT_RENDERTARGET_REFRESH_REQUIRED, ms)
	ms.registered = make(map[string]*materialReference)
	return nil
}
