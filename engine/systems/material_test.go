package systems_test

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/headless"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	"github.com/spaghettifunk/anima/engine/systems"
	"github.com/spaghettifunk/anima/engine/test"
)

type materialFixture struct {
	backend   *headless.Backend
	textures  *systems.TextureSystem
	materials *systems.MaterialSystem
}

func newMaterialFixture(t *testing.T) *materialFixture {
	t.Helper()
	b := newBackend(t)
	ts, err := systems.NewTextureSystem(&systems.TextureSystemConfig{MaxTextureCount: 8}, b)
	test.DemandSuccess(t, err)
	ms, err := systems.NewMaterialSystem(&systems.MaterialSystemConfig{MaxMaterialCount: 2}, ts, b)
	test.DemandSuccess(t, err)
	t.Cleanup(func() { ms.Shutdown() })
	return &materialFixture{backend: b, textures: ts, materials: ms}
}

func (f *materialFixture) texture(t *testing.T, name string) *metadata.Texture {
	t.Helper()
	tex, err := f.textures.AcquireWriteable(name, 4, 4, metadata.AttachmentFormatRGBA8, 0)
	test.DemandSuccess(t, err)
	return tex
}

func TestMaterialTextureIndices(t *testing.T) {
	f := newMaterialFixture(t)
	m, err := f.materials.Acquire("composite")
	test.DemandSuccess(t, err)

	albedo := f.texture(t, "albedo")
	normals := f.texture(t, "normals")

	test.ExpectEquality(t, m.AddTexture(albedo), 0)
	test.ExpectEquality(t, m.AddTexture(normals), 1)
	// adding again returns the existing position
	test.ExpectEquality(t, m.AddTexture(albedo), 0)
	test.ExpectEquality(t, len(m.Textures()), 2)

	// an unknown texture is appended
	emissive := f.texture(t, "emissive")
	test.ExpectEquality(t, m.GetTextureIndex(emissive), 2)
	test.ExpectEquality(t, m.GetTextureIndex(normals), 1)
	test.ExpectEquality(t, len(m.Textures()), 3)
}

func TestMaterialActivateTexture(t *testing.T) {
	f := newMaterialFixture(t)
	m, err := f.materials.Acquire("composite")
	test.DemandSuccess(t, err)

	albedo := f.texture(t, "albedo")
	normals := f.texture(t, "normals")
	m.AddTexture(albedo)
	m.AddTexture(normals)

	test.DemandSuccess(t, m.ActivateTexture(1, 3))
	test.ExpectEquality(t, f.backend.ActiveUnit(), uint32(3))
	test.ExpectEquality(t, f.backend.BoundTexture(3), normals.Handle)

	// out of range indices leave the state alone
	test.ExpectSuccess(t, m.ActivateTexture(5, 0))
	test.ExpectSuccess(t, m.ActivateTexture(-1, 0))
	test.ExpectEquality(t, f.backend.ActiveUnit(), uint32(3))

	test.DemandSuccess(t, m.ActivateAll())
	test.ExpectEquality(t, f.backend.BoundTexture(0), albedo.Handle)
	test.ExpectEquality(t, f.backend.BoundTexture(1), normals.Handle)
}

func TestMaterialSystemAcquireRelease(t *testing.T) {
	f := newMaterialFixture(t)

	a, err := f.materials.Acquire("a")
	test.DemandSuccess(t, err)
	again, err := f.materials.Acquire("a")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, again, a)

	_, err = f.materials.Acquire("b")
	test.DemandSuccess(t, err)
	_, err = f.materials.Acquire("c")
	test.ExpectFailure(t, err)

	f.materials.Release("a")
	_, ok := f.materials.Get("a")
	test.ExpectSuccess(t, ok)
	f.materials.Release("a")
	_, ok = f.materials.Get("a")
	test.ExpectFailure(t, ok)
	f.materials.Release("a")
}

func TestMaterialAddTextureByName(t *testing.T) {
	f := newMaterialFixture(t)
	m, err := f.materials.Acquire("composite")
	test.DemandSuccess(t, err)

	scene := f.texture(t, "scene")
	index, err := f.materials.AddTextureByName(m, "scene")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, index, 0)
	test.ExpectEquality(t, m.Textures()[0], scene)

	_, err = f.materials.AddTextureByName(m, "missing")
	test.ExpectSuccess(t, errors.Is(err, core.ErrResolution))
}

func TestMaterialRefreshOnRenderTargetChange(t *testing.T) {
	f := newMaterialFixture(t)
	m, err := f.materials.Acquire("composite")
	test.DemandSuccess(t, err)
	before := m.Generation

	core.EventFire(core.EVENT_CODE_DEFAULT_RENDERTARGET_REFRESH_REQUIRED, nil, core.EventContext{})
	test.ExpectEquality(t, m.Generation, before+1)
}
