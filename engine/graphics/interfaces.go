package graphics

import (
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// SystemProperties are handed to every component when the render systems
// start or reset.
type SystemProperties struct {
	Width       uint32
	Height      uint32
	SampleCount uint32
}

type Configurable interface {
	// Parse configures the component from one node of a render document.
	Parse(node Node) error
}

type Serializable interface {
	// Serialize appends the component configuration to doc.
	Serialize(doc *Document) error
}

type Resettable interface {
	SystemStart(props SystemProperties) error
	SystemReset(props SystemProperties) error
}

// Component is anything the Factory can instantiate from a render document.
type Component interface {
	Configurable
	Serializable
	Resettable
	TypeName() string
	TypeID() uint32
	// Key is the registry key. It is the configured name, or a generated one
	// for unnamed components.
	Key() string
}

// AttachmentRegistry resolves attachment names for layers.
type AttachmentRegistry interface {
	Lookup(name string) (*Attachment, bool)
}

// TextureProvider hands out shared render textures by name. Every successful
// AcquireWriteable must be paired with a Release of the same name.
type TextureProvider interface {
	AcquireWriteable(name string, width, height uint32, format metadata.AttachmentFormat, samples uint32) (*metadata.Texture, error)
	Release(name string)
}
