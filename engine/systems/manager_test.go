package systems_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/systems"
	"github.com/spaghettifunk/anima/engine/test"
)

const managerDocument = `{
  "attachment": [
    {"name": "color0", "target": "color", "clear": true, "clear_values": [0, 0, 0, 1]},
    {"name": "depth0", "target": "depth-stencil", "clear": true},
    {"name": "scene", "target": "color", "texture": "scene"},
    {"name": "msaa", "target": "color", "multisample": true}
  ],
  "render": [
    {"name": "main", "attachments": ["color0", "depth0"]},
    {"name": "offscreen", "attachments": ["scene", "depth0"]},
    {"name": "composite", "attachments": ["scene"]},
    {"name": "antialiased", "attachments": ["msaa"]}
  ]
}`

func canonical(t *testing.T, data []byte) string {
	t.Helper()
	var v any
	test.DemandSuccess(t, json.Unmarshal(data, &v), string(data))
	out, err := json.Marshal(v)
	test.DemandSuccess(t, err)
	return string(out)
}

func document(t *testing.T, data string) *graphics.Document {
	t.Helper()
	doc, err := graphics.ParseDocument([]byte(data))
	test.DemandSuccess(t, err)
	return doc
}

func newManager(t *testing.T) (*systems.SystemManager, *headless.Backend) {
	t.Helper()
	b := newBackend(t)
	sm, err := systems.NewSystemManager(b)
	test.DemandSuccess(t, err)
	t.Cleanup(func() { sm.Shutdown() })
	return sm, b
}

func startedManager(t *testing.T, props graphics.SystemProperties) (*systems.SystemManager, *headless.Backend) {
	t.Helper()
	sm, b := newManager(t)
	test.DemandSuccess(t, sm.LoadDocument(document(t, managerDocument)))
	test.DemandSuccess(t, sm.Start(props))
	return sm, b
}

func TestManagerLoadAndStart(t *testing.T) {
	sm, _ := startedManager(t, graphics.SystemProperties{Width: 16, Height: 16, SampleCount: 4})

	test.ExpectEquality(t, sm.AttachmentSystem().Count(), 4)
	test.ExpectEquality(t, sm.LayerSystem().Count(), 4)
	for _, a := range sm.AttachmentSystem().All() {
		test.ExpectSuccess(t, a.IsGenerated(), a.Key())
		test.ExpectEquality(t, a.Width(), uint32(16), a.Key())
	}
	msaa, ok := sm.AttachmentSystem().Lookup("msaa")
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, msaa.Samples(), uint32(4))
	color0, _ := sm.AttachmentSystem().Lookup("color0")
	test.ExpectEquality(t, color0.Samples(), uint32(0))

	main, err := sm.Layer("main")
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, main.BindToRender())
	pixels, err := main.ReadPixels(0, 0, 0, 1, 1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, fmt.Sprint(pixels), "[0 0 0 1]")

	_, err = sm.Layer("missing")
	test.ExpectSuccess(t, errors.Is(err, core.ErrResolution))
}

func TestManagerSharedTexture(t *testing.T) {
	sm, b := startedManager(t, graphics.SystemProperties{Width: 16, Height: 16})

	scene, ok := sm.TextureSystem().Get("scene")
	test.DemandSuccess(t, ok)
	test.ExpectEquality(t, sm.TextureSystem().ReferenceCount("scene"), uint64(1))

	for _, name := range []string{"offscreen", "composite"} {
		l, err := sm.Layer(name)
		test.DemandSuccess(t, err)
		test.DemandSuccess(t, l.BindToRender(), name)
		handle, isTexture, ok := b.Attached(l.Framebuffer(), l.Attachments()[0].Slot())
		test.ExpectSuccess(t, ok, name)
		test.ExpectSuccess(t, isTexture, name)
		test.ExpectEquality(t, handle, scene.Handle, name)
	}

	m, err := sm.MaterialSystem().Acquire("composite")
	test.DemandSuccess(t, err)
	index, err := sm.MaterialSystem().AddTextureByName(m, "scene")
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, m.ActivateTexture(index, 2))
	test.ExpectEquality(t, b.BoundTexture(2), scene.Handle)
}

func TestManagerReset(t *testing.T) {
	sm, b := startedManager(t, graphics.SystemProperties{Width: 16, Height: 16, SampleCount: 4})
	m, err := sm.MaterialSystem().Acquire("composite")
	test.DemandSuccess(t, err)
	generation := m.Generation

	b.SetMaxSamples(2)
	test.DemandSuccess(t, sm.Reset(graphics.SystemProperties{Width: 32, Height: 8, SampleCount: 4}))
	test.ExpectEquality(t, sm.Properties().Width, uint32(32))
	test.ExpectEquality(t, m.Generation, generation+1)

	for _, a := range sm.AttachmentSystem().All() {
		test.ExpectEquality(t, a.Width(), uint32(32), a.Key())
		test.ExpectEquality(t, a.Height(), uint32(8), a.Key())
	}
	msaa, _ := sm.AttachmentSystem().Lookup("msaa")
	test.ExpectEquality(t, msaa.Samples(), uint32(2))
	scene, _ := sm.TextureSystem().Get("scene")
	test.ExpectEquality(t, scene.Width, uint32(32))

	for _, l := range sm.LayerSystem().All() {
		test.ExpectEquality(t, l.Framebuffer(), uint32(0), l.Key())
		test.ExpectSuccess(t, l.BindToRender(), l.Key())
	}
}

func TestManagerResetBeforeStart(t *testing.T) {
	sm, _ := newManager(t)
	test.DemandSuccess(t, sm.LoadDocument(document(t, managerDocument)))
	test.DemandSuccess(t, sm.Reset(graphics.SystemProperties{Width: 4, Height: 4}))
	color0, _ := sm.AttachmentSystem().Lookup("color0")
	test.ExpectSuccess(t, color0.IsGenerated())
}

func TestManagerRejectsInvalidDocument(t *testing.T) {
	sm, _ := newManager(t)
	bad := []string{
		`{"mesh": [{}]}`,
		`{"attachment": [{"name": "a", "target": "sideways"}]}`,
		`{"attachment": [{"name": "a", "target": "color"}, {"name": "a", "target": "depth"}]}`,
		`{"render": [{"name": "main", "attachments": []}]}`,
	}
	for _, data := range bad {
		err := sm.LoadDocument(document(t, data))
		test.ExpectSuccess(t, errors.Is(err, core.ErrConfig), data)
		test.ExpectEquality(t, sm.AttachmentSystem().Count(), 0, data)
		test.ExpectEquality(t, sm.LayerSystem().Count(), 0, data)
	}
}

func TestManagerLoadKeepsEarlierDocuments(t *testing.T) {
	sm, _ := newManager(t)
	test.DemandSuccess(t, sm.LoadDocument(document(t, managerDocument)))

	// color0 collides with the loaded document
	err := sm.LoadDocument(document(t, `{"attachment": [{"name": "extra", "target": "depth"}, {"name": "color0", "target": "color"}]}`))
	test.ExpectSuccess(t, errors.Is(err, core.ErrConfig))
	test.ExpectEquality(t, sm.AttachmentSystem().Count(), 4)
	_, ok := sm.AttachmentSystem().Lookup("extra")
	test.ExpectFailure(t, ok)
}

func TestManagerReload(t *testing.T) {
	sm, _ := startedManager(t, graphics.SystemProperties{Width: 16, Height: 16})

	err := sm.Reload(document(t, `{"render": [{"attachments": "color0"}]}`))
	test.ExpectFailure(t, err)
	_, err = sm.Layer("main")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, sm.AttachmentSystem().Count(), 4)

	next := `{
	  "attachment": [{"name": "hdr", "target": "color", "format": "rgba16f"}],
	  "render": [{"name": "tonemap", "attachments": ["hdr"]}]
	}`
	test.DemandSuccess(t, sm.Reload(document(t, next)))
	_, err = sm.Layer("main")
	test.ExpectFailure(t, err)
	_, ok := sm.TextureSystem().Get("scene")
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, sm.TextureSystem().ReferenceCount("scene"), uint64(0))

	hdr, ok := sm.AttachmentSystem().Lookup("hdr")
	test.DemandSuccess(t, ok)
	test.ExpectSuccess(t, hdr.IsGenerated())
	tonemap, err := sm.Layer("tonemap")
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, tonemap.BindToRender())
}

func TestManagerReloadKeepsConfigurationWhenRegistrationWouldFail(t *testing.T) {
	sm, b := startedManager(t, graphics.SystemProperties{Width: 16, Height: 16})
	main, err := sm.Layer("main")
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, main.BindToRender())
	main.UnbindFromAll()
	live := b.LiveObjects()

	nodes := make([]string, 65)
	for i := range nodes {
		nodes[i] = fmt.Sprintf(`{"name": "c%d", "target": "color"}`, i)
	}
	for name, data := range map[string]string{
		"same attachment name": `{
		  "attachment": [{"name": "c", "target": "color"}, {"name": "c", "target": "depth"}],
		  "render": [{"name": "x", "attachments": ["c"]}]
		}`,
		"same layer name": `{
		  "attachment": [{"name": "c", "target": "color"}],
		  "render": [{"name": "x", "attachments": ["c"]}, {"name": "x", "attachments": ["c"]}]
		}`,
		"too many attachments": `{"attachment": [` + strings.Join(nodes, ",") + `]}`,
	} {
		err := sm.Reload(document(t, data))
		test.ExpectSuccess(t, errors.Is(err, core.ErrConfig), name)
		test.ExpectEquality(t, sm.AttachmentSystem().Count(), 4, name)
		test.ExpectEquality(t, sm.LayerSystem().Count(), 4, name)
		test.ExpectEquality(t, b.LiveObjects(), live, name)

		main, err = sm.Layer("main")
		test.DemandSuccess(t, err, name)
		test.DemandSuccess(t, main.BindToRender(), name)
		pixels, err := main.ReadPixels(0, 0, 0, 1, 1)
		test.DemandSuccess(t, err, name)
		test.ExpectEquality(t, fmt.Sprint(pixels), "[0 0 0 1]", name)
		main.UnbindFromAll()
	}
}

func TestManagerDocumentRoundTrip(t *testing.T) {
	sm, _ := newManager(t)
	test.DemandSuccess(t, sm.LoadDocument(document(t, managerDocument)))

	doc, err := sm.Document()
	test.DemandSuccess(t, err)
	data, err := doc.Bytes()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, canonical(t, data), canonical(t, []byte(managerDocument)))
}

func TestManagerShutdownReleasesStorage(t *testing.T) {
	sm, b := startedManager(t, graphics.SystemProperties{Width: 16, Height: 16, SampleCount: 4})
	for _, l := range sm.LayerSystem().All() {
		test.DemandSuccess(t, l.BindToRender(), l.Key())
	}
	test.ExpectInequality(t, b.LiveObjects(), 0)

	test.DemandSuccess(t, sm.Shutdown())
	test.ExpectEquality(t, b.LiveObjects(), 0)
	test.ExpectEquality(t, sm.AttachmentSystem().Count(), 0)
}
