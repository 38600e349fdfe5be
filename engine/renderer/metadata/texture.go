package metadata

import stdmath "math"

// InvalidID marks an unused registry slot or a texture that has no storage.
const InvalidID uint32 = stdmath.MaxUint32

type TextureReference struct {
	ReferenceCount uint64
	Handle         uint32
	AutoRelease    bool
}

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates if the texture can be written (rendered) to. */
	TextureFlagIsWriteable TextureFlag = 0x2
	/** @brief Indicates if the texture was created via wrapping vs traditional creation. */
	TextureFlagIsWrapped TextureFlag = 0x4
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

func (b TextureFlagBits) Has(f TextureFlag) bool {
	return b&TextureFlagBits(f) == TextureFlagBits(f)
}

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A two-dimensional texture with several samples per texel. */
	TextureType2dMultisample
)

/**
 * @brief Represents a texture.
 */
type Texture struct {
	/** @brief The unique texture identifier inside the texture system. */
	ID uint32
	/** @brief The texture type. */
	TextureType TextureType
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The storage format. */
	Format AttachmentFormat
	/** @brief Samples per texel, 0 for single sampled textures. */
	Samples uint32
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the storage is recreated. */
	Generation uint32
	/** @brief The texture Name. */
	Name string
	/** @brief The renderer API object name, 0 when no storage exists. */
	Handle uint32
}

// HasStorage reports whether the backend currently holds an image for t.
func (t *Texture) HasStorage() bool {
	return t != nil && t.Handle != 0
}

// Matches reports whether t already has storage of the requested shape.
func (t *Texture) Matches(width, height uint32, format AttachmentFormat, samples uint32) bool {
	return t.HasStorage() && t.Width == width && t.Height == height && t.Format == format && t.Samples == samples
}
