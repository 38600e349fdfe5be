package engine

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/containers"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
	"github.com/spaghettifunk/anima/engine/platform"
	"github.com/spaghettifunk/anima/engine/renderer"
	"github.com/spaghettifunk/anima/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// screenshot requests waiting for the end of the frame
const screenshotQueueSize = 8

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *ApplicationConfig
	isRunning     bool
	isSuspended   bool
	platform      *platform.Platform
	backend       renderer.RendererBackend
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	frameNumber   uint64
	screenshots   *containers.RingQueue[string]
}

func New(g *Game) (*Engine, error) {
	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
	}

	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	cfg := g.ApplicationConfig
	if err := cfg.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	level, _ := cfg.Level()
	core.SetLogLevel(level)

	// systems register their listeners while being created
	if !core.EventSystemInitialize() {
		return nil, fmt.Errorf("failed to initialize the event system")
	}
	booted := false
	defer func() {
		if !booted {
			core.EventSystemShutdown()
		}
	}()

	rendererType, _ := cfg.RendererType()
	backend, err := renderer.NewBackend(rendererType)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	sm, err := systems.NewSystemManager(backend)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	g.SystemManager = sm

	e.config = cfg
	e.platform = platform.New(rendererType != renderer.Headless)
	e.backend = backend
	e.assetManager = am
	e.systemManager = sm
	e.width = cfg.StartWidth
	e.height = cfg.StartHeight
	e.clock = core.NewClock()
	e.metrics = core.NewMetrics()
	e.screenshots = containers.NewRingQueue[string](screenshotQueueSize)
	e.isRunning = true
	e.currentStage = EngineStageBootComplete
	booted = true
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SCREENSHOT_REQUESTED, e, e.onScreenshot)

	cfg := e.config
	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}
	// the drawable can be larger than the window
	if w, h, ok := e.platform.FramebufferSize(); ok && w > 0 && h > 0 {
		e.width, e.height = w, h
	}

	if err := e.backend.Initialize(cfg.Name, e.width, e.height); err != nil {
		core.LogError("renderer backend failed to initialize: %s", err)
		return err
	}

	// initialize subsystems
	if cfg.HotReload {
		if err := e.assetManager.Initialize(cfg.AssetsDir); err != nil {
			core.LogError("asset watcher failed to start: %s", err)
			return err
		}
	}

	doc, err := graphics.LoadDocument(cfg.RenderConfig)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := e.systemManager.LoadDocument(doc); err != nil {
		return err
	}
	if err := e.systemManager.Start(e.properties()); err != nil {
		core.LogError("render systems failed to start: %s", err)
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) properties() graphics.SystemProperties {
	return graphics.SystemProperties{
		Width:       e.width,
		Height:      e.height,
		SampleCount: e.config.SampleCount,
	}
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()

	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		// configuration changes are applied between frames only
		e.applyAssetChanges()
		e.systemManager.JobSystem().Update()

		if e.isSuspended {
			e.platform.Sleep(10)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = e.platform.GetAbsoluteTime()

		if err := e.frame(delta); err != nil {
			core.LogError("frame %d failed, shutting down: %s", e.frameNumber, err)
			e.isRunning = false
			return err
		}

		e.takeScreenshots()
		e.platform.SwapBuffers()

		var frameElapsedTime float64 = e.platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		e.frameNumber++
		if e.frameNumber%300 == 0 {
			core.LogDebug("frame %d: %.1f fps, %.3f ms", e.frameNumber, e.metrics.FPS(), e.metrics.FrameTime())
		}
		if e.config.MaxFrames > 0 && e.frameNumber >= e.config.MaxFrames {
			e.isRunning = false
		}

		// Update last time
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) frame(delta float64) error {
	if err := e.backend.BeginFrame(delta); err != nil {
		return err
	}
	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(e.systemManager, delta); err != nil {
			return fmt.Errorf("game render: %w", err)
		}
	}
	return e.backend.EndFrame(delta)
}

func (e *Engine) applyAssetChanges() {
	if !e.config.HotReload {
		return
	}
	renderConfig := filepath.Clean(e.config.RenderConfig)
	for _, c := range e.assetManager.Poll() {
		if c.Type != assets.AssetTypeRenderConfig || c.Path != renderConfig {
			continue
		}
		if c.Removed {
			core.LogWarn("render config '%s' was removed, keeping the current configuration", c.Path)
			continue
		}
		if err := e.ReloadRenderConfig(); err != nil {
			core.LogError("render config reload failed: %s", err)
		}
	}
}

// ReloadRenderConfig reads the render document again and rebuilds every
// attachment and layer from it.
func (e *Engine) ReloadRenderConfig() error {
	doc, err := graphics.LoadDocument(e.config.RenderConfig)
	if err != nil {
		return err
	}
	if err := e.systemManager.Reload(doc); err != nil {
		return err
	}
	context := core.EventContext{}
	context.Data.C[0] = e.config.RenderConfig
	core.EventFire(core.EVENT_CODE_RENDER_CONFIG_CHANGED, e, context)
	core.LogInfo("render config '%s' reloaded", e.config.RenderConfig)
	return nil
}

func (e *Engine) takeScreenshots() {
	for !e.screenshots.IsEmpty() {
		path, err := e.screenshots.Dequeue()
		if err != nil {
			return
		}
		if err := e.Screenshot(path); err != nil {
			core.LogError("screenshot '%s' failed: %s", path, err)
		}
	}
}

// Screenshot captures the first color output of the configured layer and
// writes it as BMP on a worker. The capture itself happens immediately.
func (e *Engine) Screenshot(path string) error {
	layer, err := e.systemManager.Layer(e.config.ScreenshotLayer)
	if err != nil {
		return err
	}
	img, err := layer.Capture(0, e.width, e.height)
	if err != nil {
		return err
	}
	layerName := layer.Name()
	return e.systemManager.JobSystem().Submit(systems.Job{
		Name: "screenshot " + path,
		Run:  func() error { return writeBMP(path, img) },
		OnComplete: func(err error) {
			if err == nil {
				core.LogInfo("screenshot of layer '%s' written to '%s'", layerName, path)
			}
		},
	})
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if err := e.backend.Shutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_RESIZED, e)
	core.EventUnregister(core.EVENT_CODE_SCREENSHOT_REQUESTED, e)
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) Stage() Stage                          { return e.currentStage }
func (e *Engine) FrameNumber() uint64                   { return e.frameNumber }
func (e *Engine) Metrics() *core.Metrics                { return e.metrics }
func (e *Engine) SystemManager() *systems.SystemManager { return e.systemManager }

func (e *Engine) onEvent(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onScreenshot(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	path := data.Data.C[0]
	if path == "" {
		path = e.config.ScreenshotPath
	}
	if err := e.screenshots.Enqueue(path); err != nil {
		core.LogWarn("screenshot '%s' dropped: %s", path, err)
	}
	return true
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	width := data.Data.U32[0]
	height := data.Data.U32[1]

	// Handle minimization
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending application.")
			e.isSuspended = true
		}
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return false
	}

	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	if err := e.backend.Resized(width, height); err != nil {
		core.LogError(err.Error())
	}
	if err := e.systemManager.Reset(e.properties()); err != nil {
		core.LogError("render systems failed to reset: %s", err)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	// other listeners may care too
	return false
}
