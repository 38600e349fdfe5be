package graphics_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	"github.com/spaghettifunk/anima/engine/test"
)

// skipIfAssertsPanic skips tests that drive components through failed
// assertions, which panic in debug builds.
func skipIfAssertsPanic(t *testing.T) {
	t.Helper()
	if core.AssertsPanic {
		t.Skip("assertions panic in debug builds")
	}
}

type registry map[string]*graphics.Attachment

func (r registry) Lookup(name string) (*graphics.Attachment, bool) {
	a, ok := r[name]
	return a, ok
}

// textures is a minimal shared texture cache backed by the headless backend.
type textures struct {
	backend *headless.Backend
	entries map[string]*metadata.Texture
	refs    map[string]int
}

func newTextures(b *headless.Backend) *textures {
	return &textures{backend: b, entries: make(map[string]*metadata.Texture), refs: make(map[string]int)}
}

func (ts *textures) AcquireWriteable(name string, width, height uint32, format metadata.AttachmentFormat, samples uint32) (*metadata.Texture, error) {
	t, ok := ts.entries[name]
	if !ok {
		t = &metadata.Texture{Name: name}
		ts.entries[name] = t
	}
	if !t.Matches(width, height, format, samples) {
		ts.backend.TextureDestroy(t)
		t.Width, t.Height, t.Format, t.Samples = width, height, format, samples
		if err := ts.backend.TextureCreateWriteable(t); err != nil {
			return nil, err
		}
		t.Generation++
	}
	ts.refs[name]++
	return t, nil
}

func (ts *textures) Release(name string) {
	ts.refs[name]--
}

type fixture struct {
	backend  *headless.Backend
	textures *textures
	registry registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := headless.New()
	test.DemandSuccess(t, b.Initialize("graphics-test", 8, 8))
	return &fixture{backend: b, textures: newTextures(b), registry: make(registry)}
}

func (f *fixture) attachment(t *testing.T, node string) *graphics.Attachment {
	t.Helper()
	a := graphics.NewAttachment(f.backend, f.textures)
	test.DemandSuccess(t, a.Parse(graphics.Node(node)), node)
	f.registry[a.Key()] = a
	return a
}

func (f *fixture) generated(t *testing.T, node string, width, height, samples uint32) *graphics.Attachment {
	t.Helper()
	a := f.attachment(t, node)
	test.DemandSuccess(t, a.Generate(width, height, samples), node)
	return a
}

func (f *fixture) layer(t *testing.T, name string, attachments ...string) *graphics.Layer {
	t.Helper()
	l := graphics.NewLayer(f.backend, f.registry)
	test.DemandSuccess(t, l.Configure(name, attachments...))
	test.DemandSuccess(t, l.SystemStart(graphics.SystemProperties{}))
	return l
}

// canonical re-encodes JSON so that equivalent documents compare equal.
func canonical(t *testing.T, data []byte) string {
	t.Helper()
	var v any
	test.DemandSuccess(t, json.Unmarshal(data, &v), string(data))
	out, err := json.Marshal(v)
	test.DemandSuccess(t, err)
	return string(out)
}

func pixel(values []float32) string {
	return fmt.Sprint(values)
}
