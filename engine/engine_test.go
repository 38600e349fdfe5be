package engine

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/systems"
	"github.com/spaghettifunk/anima/engine/test"
)

const engineRenderConfig = `{
  "attachment": [
    {"name": "color0", "target": "color", "clear": true, "clear_values": [1, 0, 0, 1]},
    {"name": "depth0", "target": "depth", "clear": true}
  ],
  "render": [
    {"name": "main", "attachments": ["color0", "depth0"]}
  ]
}`

func headlessGame(t *testing.T, renderConfig string) (*Game, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "render.json")
	test.DemandSuccess(t, os.WriteFile(path, []byte(renderConfig), 0o644))

	cfg := DefaultApplicationConfig()
	cfg.Name = "engine-test"
	cfg.Renderer = "headless"
	cfg.StartWidth = 8
	cfg.StartHeight = 4
	cfg.AssetsDir = dir
	cfg.RenderConfig = path
	cfg.HotReload = false
	cfg.ScreenshotPath = filepath.Join(dir, "screenshot.bmp")
	cfg.MaxFrames = 3

	g := &Game{ApplicationConfig: cfg}
	g.FnRender = func(sm *systems.SystemManager, deltaTime float64) error {
		main, err := sm.Layer("main")
		if err != nil {
			return err
		}
		defer main.UnbindFromAll()
		return main.BindToRender()
	}
	return g, dir
}

func TestEngineRunsHeadless(t *testing.T) {
	g, dir := headlessGame(t, engineRenderConfig)
	resizes := 0
	g.FnOnResize = func(width, height uint32) error {
		resizes++
		return nil
	}

	e, err := New(g)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, e.Initialize())
	test.ExpectEquality(t, e.Stage(), EngineStageInitialized)
	test.ExpectEquality(t, resizes, 1)

	core.EventFire(core.EVENT_CODE_SCREENSHOT_REQUESTED, nil, core.EventContext{})
	test.DemandSuccess(t, e.Run())
	test.ExpectEquality(t, e.FrameNumber(), uint64(3))
	// writing happens on a worker, shutting down waits for it
	test.DemandSuccess(t, e.Shutdown())

	f, err := os.Open(filepath.Join(dir, "screenshot.bmp"))
	test.DemandSuccess(t, err)
	img, err := bmp.Decode(f)
	f.Close()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Bounds().Dx(), 8)
	test.ExpectEquality(t, img.Bounds().Dy(), 4)
	r, g2, b, _ := img.At(3, 2).RGBA()
	test.ExpectEquality(t, r>>8, uint32(255))
	test.ExpectEquality(t, g2, uint32(0))
	test.ExpectEquality(t, b, uint32(0))
}

func TestEngineResizeResetsSystems(t *testing.T) {
	g, _ := headlessGame(t, engineRenderConfig)
	e, err := New(g)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, e.Initialize())
	defer e.Shutdown()

	context := core.EventContext{}
	context.Data.U32[0] = 16
	context.Data.U32[1] = 12
	core.EventFire(core.EVENT_CODE_RESIZED, nil, context)

	w, h := e.GetFramebufferSize()
	test.ExpectEquality(t, w, uint32(16))
	test.ExpectEquality(t, h, uint32(12))
	color0, ok := e.SystemManager().AttachmentSystem().Lookup("color0")
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, color0.Width(), uint32(16))
	test.ExpectEquality(t, color0.Height(), uint32(12))

	// minimizing suspends without touching the attachments
	context.Data.U32[0] = 0
	context.Data.U32[1] = 0
	core.EventFire(core.EVENT_CODE_RESIZED, nil, context)
	test.ExpectSuccess(t, e.isSuspended)
	test.ExpectEquality(t, color0.Width(), uint32(16))
}

func TestEngineReloadRenderConfig(t *testing.T) {
	g, _ := headlessGame(t, engineRenderConfig)
	e, err := New(g)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, e.Initialize())
	defer e.Shutdown()

	next := `{
	  "attachment": [{"name": "color0", "target": "color"}],
	  "render": [{"name": "main", "attachments": ["color0"]}, {"name": "overlay", "attachments": ["color0"]}]
	}`
	test.DemandSuccess(t, os.WriteFile(g.ApplicationConfig.RenderConfig, []byte(next), 0o644))
	test.DemandSuccess(t, e.ReloadRenderConfig())
	_, err = e.SystemManager().Layer("overlay")
	test.ExpectSuccess(t, err)

	// a broken file keeps what is loaded
	test.DemandSuccess(t, os.WriteFile(g.ApplicationConfig.RenderConfig, []byte(`{"render": [{}]}`), 0o644))
	test.ExpectFailure(t, e.ReloadRenderConfig())
	_, err = e.SystemManager().Layer("overlay")
	test.ExpectSuccess(t, err)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	g, _ := headlessGame(t, engineRenderConfig)
	g.ApplicationConfig.Renderer = "software"
	_, err := New(g)
	test.ExpectFailure(t, err)
}

func TestEngineInitializeFailsOnBadRenderConfig(t *testing.T) {
	g, _ := headlessGame(t, `{"attachment": [{"target": "sideways"}]}`)
	e, err := New(g)
	test.DemandSuccess(t, err)
	test.ExpectFailure(t, e.Initialize())
	test.DemandSuccess(t, e.Shutdown())
}
