package renderer

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/renderer/opengl"
)

var (
	_ RendererBackend = (*opengl.OpenGLRenderer)(nil)
	_ RendererBackend = (*headless.Backend)(nil)
)

type RendererType uint8

const (
	OpenGL RendererType = iota
	// Headless keeps all storage in memory. No window or GPU is needed.
	Headless
)

func (t RendererType) String() string {
	switch t {
	case OpenGL:
		return "opengl"
	case Headless:
		return "headless"
	default:
		return "unknown"
	}
}

func ParseRendererType(s string) (RendererType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "opengl", "gl":
		return OpenGL, nil
	case "headless":
		return Headless, nil
	default:
		return OpenGL, fmt.Errorf("unknown renderer type '%s'", s)
	}
}

// NewBackend returns an uninitialized backend of the given type.
func NewBackend(t RendererType) (RendererBackend, error) {
	switch t {
	case OpenGL:
		return opengl.New(), nil
	case Headless:
		return headless.New(), nil
	default:
		return nil, fmt.Errorf("renderer type %d is not supported", t)
	}
}
