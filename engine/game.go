package engine

import (
	"github.com/spaghettifunk/anima/engine/systems"
)

// Game is the application plugged into the engine. SystemManager is set by
// the engine before FnInitialize runs.
type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render draws one frame. Layers are bound and read through sm.
type Render func(sm *systems.SystemManager, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
