package testbed

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/systems"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	// samples the offscreen scene texture in the main layer
	composite *systems.Material
	// closed by the owner to stop the game on the next update
	quit <-chan os.Signal
}

func NewTestGame(config *engine.ApplicationConfig, quit <-chan os.Signal) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				quit: quit,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers ")
	}

	state := g.State.(*gameState)
	m, err := g.SystemManager.MaterialSystem().Acquire("composite")
	if err != nil {
		return err
	}
	state.composite = m
	return g.attachSceneTexture()
}

// attachSceneTexture adds the offscreen color texture to the composite
// material. The texture only exists when the render config declares it.
func (g *TestGame) attachSceneTexture() error {
	state := g.State.(*gameState)
	if _, ok := g.SystemManager.TextureSystem().Get("scene"); !ok {
		core.LogWarn("render config declares no 'scene' texture, composite material stays empty")
		return nil
	}
	index, err := g.SystemManager.MaterialSystem().AddTextureByName(state.composite, "scene")
	if err != nil {
		return err
	}
	core.LogDebug("scene texture sampled at index %d", index)
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	select {
	case sig := <-state.quit:
		core.LogInfo("received %s, quitting", sig)
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, g, core.EventContext{})
	default:
	}
	return nil
}

func (g *TestGame) Render(sm *systems.SystemManager, deltaTime float64) error {
	state := g.State.(*gameState)

	// offscreen pass, cleared on bind
	if offscreen, err := sm.Layer("offscreen"); err == nil {
		if err := offscreen.BindToRender(); err != nil {
			return err
		}
		offscreen.UnbindFromAll()
	}

	main, err := sm.Layer("main")
	if err != nil {
		return err
	}
	if err := main.BindToRender(); err != nil {
		return err
	}
	if err := state.composite.ActivateAll(); err != nil {
		return err
	}
	// resolve into the window
	if err := main.BlitTo(nil, state.width, state.height); err != nil {
		return err
	}
	main.UnbindFromAll()
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	if state.composite != nil {
		g.SystemManager.MaterialSystem().Release(state.composite.Name)
	}
	return nil
}
