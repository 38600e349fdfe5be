package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
}

// TextureSystem is a reference counted table of render textures keyed by
// name. Attachments that name a texture share it through this system.
type TextureSystem struct {
	Config *TextureSystemConfig
	// Array of registered textures.
	RegisteredTextures []*metadata.Texture
	// Hashtable for texture lookups.
	RegisteredTextureTable map[string]*metadata.TextureReference

	backend renderer.RendererBackend
}

func NewTextureSystem(config *TextureSystemConfig, backend renderer.RendererBackend) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	ts := &TextureSystem{
		Config:                 config,
		RegisteredTextures:     make([]*metadata.Texture, config.MaxTextureCount),
		RegisteredTextureTable: make(map[string]*metadata.TextureReference),
		backend:                backend,
	}

	// Invalidate all textures in the array.
	for i := uint32(0); i < config.MaxTextureCount; i++ {
		ts.RegisteredTextures[i] = &metadata.Texture{
			ID:         metadata.InvalidID,
			Generation: metadata.InvalidID,
		}
	}
	return ts, nil
}

func (ts *TextureSystem) Shutdown() error {
	// Destroy all loaded textures.
	for _, t := range ts.RegisteredTextures {
		if t.ID != metadata.InvalidID {
			ts.destroyTexture(t)
		}
	}
	ts.RegisteredTextureTable = make(map[string]*metadata.TextureReference)
	return nil
}

// AcquireWriteable returns the render texture called name with storage of the
// requested shape, creating it if needed. Storage of an existing texture is
// recreated, bumping its generation, when the shape changed. Writeable
// textures are never auto-released.
func (ts *TextureSystem) AcquireWriteable(name string, width, height uint32, format metadata.AttachmentFormat, samples uint32) (*metadata.Texture, error) {
	id, ok := ts.processTextureReference(name, 1, false)
	if !ok {
		err := fmt.Errorf("func texture system AcquireWriteable failed to obtain a new texture id for '%s'", name)
		core.LogError(err.Error())
		return nil, err
	}

	texture := ts.RegisteredTextures[id]
	if texture.Matches(width, height, format, samples) {
		return texture, nil
	}

	if texture.HasStorage() {
		core.LogDebug("texture '%s' storage changes from %dx%d %s x%d to %dx%d %s x%d", name,
			texture.Width, texture.Height, texture.Format, texture.Samples, width, height, format, samples)
		ts.backend.TextureDestroy(texture)
	}
	texture.Width = width
	texture.Height = height
	texture.Format = format
	texture.Samples = samples
	texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagIsWriteable)

	if err := ts.backend.TextureCreateWriteable(texture); err != nil {
		// undo the reference taken above, the caller never sees this texture
		ts.processTextureReference(name, -1, false)
		if ts.ReferenceCount(name) == 0 {
			ts.destroyTexture(texture)
			delete(ts.RegisteredTextureTable, name)
		}
		err = fmt.Errorf("texture '%s': %w", name, err)
		core.LogError(err.Error())
		return nil, err
	}
	if texture.Generation == metadata.InvalidID {
		texture.Generation = 0
	} else {
		texture.Generation++
	}
	return texture, nil
}

// Acquire takes a reference on an existing texture.
func (ts *TextureSystem) Acquire(name string) (*metadata.Texture, error) {
	if _, ok := ts.RegisteredTextureTable[name]; !ok {
		err := fmt.Errorf("%w: texture '%s'", core.ErrResolution, name)
		core.LogWarn(err.Error())
		return nil, err
	}
	id, _ := ts.processTextureReference(name, 1, false)
	return ts.RegisteredTextures[id], nil
}

// Get returns the texture called name without taking a reference.
func (ts *TextureSystem) Get(name string) (*metadata.Texture, bool) {
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok || ref.Handle == metadata.InvalidID {
		return nil, false
	}
	return ts.RegisteredTextures[ref.Handle], true
}

func (ts *TextureSystem) Release(name string) {
	// NOTE: Decrement the reference count.
	if _, ok := ts.processTextureReference(name, -1, false); !ok {
		core.LogError("texture system failed to release texture '%s' properly.", name)
	}
}

func (ts *TextureSystem) ReferenceCount(name string) uint64 {
	if ref, ok := ts.RegisteredTextureTable[name]; ok {
		return ref.ReferenceCount
	}
	return 0
}

func (ts *TextureSystem) destroyTexture(t *metadata.Texture) {
	ts.backend.TextureDestroy(t)
	*t = metadata.Texture{
		ID:         metadata.InvalidID,
		Generation: metadata.InvalidID,
	}
}

func (ts *TextureSystem) processTextureReference(name string, referenceDiff int8, autoRelease bool) (uint32, bool) {
	ref, ok := ts.RegisteredTextureTable[name]
	if !ok {
		if referenceDiff < 0 {
			core.LogWarn("Tried to release non-existent texture: '%s'", name)
			return 0, false
		}
		ref = &metadata.TextureReference{
			Handle:      metadata.InvalidID,
			AutoRelease: autoRelease,
		}
	}

	// If decrementing, this means a release.
	if referenceDiff < 0 {
		if ref.ReferenceCount == 0 {
			core.LogWarn("Tried to release texture '%s' where references was already 0.", name)
			// Still count this as a success, but warn about it.
			return ref.Handle, true
		}
		ref.ReferenceCount--
		// Check if the reference count has reached 0. If it has, and the reference
		// is set to auto-release, destroy the texture.
		if ref.ReferenceCount == 0 && ref.AutoRelease {
			ts.destroyTexture(ts.RegisteredTextures[ref.Handle])
			delete(ts.RegisteredTextureTable, name)
			core.LogDebug("Released texture '%s'. Texture unloaded because reference count=0 and AutoRelease=true.", name)
			return metadata.InvalidID, true
		}
		return ref.Handle, true
	}

	// Incrementing. Check if the handle is new or not.
	if ref.Handle == metadata.InvalidID {
		// This means no texture exists here. Find a free index first.
		for i, t := range ts.RegisteredTextures {
			if t.ID == metadata.InvalidID {
				// A free slot has been found. Use its index as the handle.
				ref.Handle = uint32(i)
				t.ID = uint32(i)
				t.Name = name
				t.TextureType = metadata.TextureType2d
				break
			}
		}
		// An empty slot was not found, bleat about it and boot out.
		if ref.Handle == metadata.InvalidID {
			core.LogError("process_texture_reference - Texture system cannot hold anymore textures. Adjust configuration to allow more.")
			return 0, false
		}
	}
	ref.ReferenceCount += uint64(referenceDiff)
	ts.RegisteredTextureTable[name] = ref
	return ref.Handle, true
}
