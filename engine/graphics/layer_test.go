package graphics_test

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	"github.com/spaghettifunk/anima/engine/test"
)

var depthSlot = metadata.AttachmentSlot{Target: metadata.AttachmentTargetDepth}

func TestLayerParse(t *testing.T) {
	f := newFixture(t)

	l := graphics.NewLayer(f.backend, f.registry)
	test.DemandSuccess(t, l.Parse(graphics.Node(`{"name":"main","attachments":["color0","depth0"]}`)))
	test.ExpectEquality(t, l.Key(), "main")
	test.ExpectEquality(t, len(l.AttachmentNames()), 2)

	bad := map[string]string{
		"missing list":  `{"name":"main"}`,
		"empty list":    `{"attachments":[]}`,
		"empty name":    `{"attachments":["color0",""]}`,
		"duplicate":     `{"attachments":["color0","color0"]}`,
		"wrong type":    `{"attachments":"color0"}`,
		"unknown field": `{"attachments":["color0"],"clear":true}`,
	}
	for name, node := range bad {
		err := graphics.NewLayer(f.backend, f.registry).Parse(graphics.Node(node))
		test.ExpectSuccess(t, errors.Is(err, core.ErrConfig), name)
	}
}

func TestLayerRoundTrip(t *testing.T) {
	f := newFixture(t)
	for _, node := range []string{
		`{"name":"main","attachments":["color0","depth0"]}`,
		`{"attachments":["shadow"]}`,
	} {
		l := graphics.NewLayer(f.backend, f.registry)
		test.DemandSuccess(t, l.Parse(graphics.Node(node)))
		doc := graphics.NewDocument()
		test.DemandSuccess(t, l.Serialize(doc))
		test.ExpectEquality(t, canonical(t, doc.Nodes(metadata.LayerTypeName)[0]), canonical(t, []byte(node)))
	}
}

func TestLayerBindsAttachmentsInOrder(t *testing.T) {
	f := newFixture(t)
	color0 := f.generated(t, `{"name":"color0","target":"color"}`, 8, 8, 0)
	depth0 := f.generated(t, `{"name":"depth0","target":"depth","multisample":false}`, 8, 8, 0)

	main := f.layer(t, "main", "color0", "depth0")
	test.DemandSuccess(t, main.BindToRender())

	fbo := main.Framebuffer()
	test.ExpectInequality(t, fbo, uint32(0))
	test.ExpectEquality(t, f.backend.FramebufferBound(metadata.FramebufferBindingDraw), fbo)

	attachments := main.Attachments()
	test.DemandEquality(t, len(attachments), 2)
	test.ExpectEquality(t, attachments[0], color0)
	test.ExpectEquality(t, attachments[1], depth0)

	name, _, ok := f.backend.Attached(fbo, metadata.ColorSlot(0))
	test.ExpectSuccess(t, ok, "color0 attached")
	test.ExpectEquality(t, name, color0.Renderbuffer())
	name, _, ok = f.backend.Attached(fbo, depthSlot)
	test.ExpectSuccess(t, ok, "depth0 attached")
	test.ExpectEquality(t, name, depth0.Renderbuffer())
	_, _, ok = f.backend.Attached(fbo, metadata.ColorSlot(1))
	test.ExpectEquality(t, ok, false, "no second color output")

	test.ExpectEquality(t, color0.OutputNumber(), uint32(0))
	test.ExpectEquality(t, len(f.backend.DrawBuffers(fbo)), 1)
}

func TestLayerClearOnUse(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"color0","target":"color","clear":true,"clear_values":[0,0,0,1]}`, 8, 8, 0)
	main := f.layer(t, "main", "color0")

	test.DemandSuccess(t, main.BindToRender())
	pixels, err := main.ReadPixels(0, 0, 0, 8, 8)
	test.DemandSuccess(t, err)
	for i := 0; i < len(pixels); i += 4 {
		test.DemandEquality(t, pixel(pixels[i:i+4]), pixel([]float32{0, 0, 0, 1}), "texel ", i/4)
	}
}

func TestLayerColorNumbering(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"depth","target":"depth"}`, 8, 8, 0)
	albedo := f.generated(t, `{"name":"albedo","target":"color","clear":true,"clear_values":[1,0,0,1]}`, 8, 8, 0)
	normal := f.generated(t, `{"name":"normal","target":"color-1","clear":true,"clear_values":[0,1,0,1]}`, 8, 8, 0)

	gbuffer := f.layer(t, "gbuffer", "depth", "albedo", "missing", "normal")
	test.DemandSuccess(t, gbuffer.BindToRender())

	test.ExpectEquality(t, albedo.OutputNumber(), uint32(0))
	test.ExpectEquality(t, normal.OutputNumber(), uint32(1))
	drawBuffers := f.backend.DrawBuffers(gbuffer.Framebuffer())
	test.DemandEquality(t, len(drawBuffers), 2)
	test.ExpectEquality(t, drawBuffers[1], uint32(1))

	pixels, err := gbuffer.ReadPixels(1, 0, 0, 1, 1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, pixel(pixels), pixel([]float32{0, 1, 0, 1}))
}

func TestLayerMissingAttachment(t *testing.T) {
	f := newFixture(t)
	color0 := f.generated(t, `{"name":"color0","target":"color"}`, 8, 8, 0)

	main := f.layer(t, "main", "color0", "ghost")
	attachments := main.Attachments()
	test.ExpectEquality(t, attachments[0], color0)
	test.ExpectSuccess(t, attachments[1] == nil, "ghost stays unresolved")

	test.ExpectSuccess(t, main.BindToRender())
	_, _, ok := f.backend.Attached(main.Framebuffer(), metadata.ColorSlot(0))
	test.ExpectSuccess(t, ok)
}

func TestLayerWithoutAnyAttachmentIsIncomplete(t *testing.T) {
	f := newFixture(t)
	l := f.layer(t, "empty", "ghost")
	err := l.BindToRender()
	test.ExpectSuccess(t, errors.Is(err, core.ErrFramebufferIncomplete))
}

func TestLayerUnbindWithoutBind(t *testing.T) {
	f := newFixture(t)
	l := graphics.NewLayer(f.backend, f.registry)
	l.UnbindFromAll()
	test.ExpectEquality(t, f.backend.FramebufferBound(metadata.FramebufferBindingDraw), uint32(0))
	test.ExpectEquality(t, f.backend.FramebufferBound(metadata.FramebufferBindingRead), uint32(0))
}

func TestLayerUnbindFromAll(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"color0","target":"color"}`, 8, 8, 0)
	main := f.layer(t, "main", "color0")
	test.DemandSuccess(t, main.BindToRender())
	test.DemandSuccess(t, main.BindToRead())
	test.ExpectEquality(t, f.backend.FramebufferBound(metadata.FramebufferBindingRead), main.Framebuffer())

	main.UnbindFromAll()
	test.ExpectEquality(t, f.backend.FramebufferBound(metadata.FramebufferBindingDraw), uint32(0))
	test.ExpectEquality(t, f.backend.FramebufferBound(metadata.FramebufferBindingRead), uint32(0))
}

func TestLayerBindToReadBeforeRender(t *testing.T) {
	skipIfAssertsPanic(t)
	f := newFixture(t)
	l := f.layer(t, "main", "color0")
	test.ExpectSuccess(t, errors.Is(l.BindToRead(), core.ErrPrecondition))
}

func TestLayersShareAttachments(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"color0","target":"color"}`, 8, 8, 0)
	f.generated(t, `{"name":"shadow-color","target":"color"}`, 8, 8, 0)
	f.generated(t, `{"name":"depth0","target":"depth"}`, 8, 8, 0)

	shadow := f.layer(t, "shadow", "shadow-color", "depth0")
	main := f.layer(t, "main", "color0", "depth0")
	test.ExpectEquality(t, shadow.Attachments()[1], main.Attachments()[1])

	test.DemandSuccess(t, shadow.BindToRender())
	test.DemandSuccess(t, main.BindToRender())
	a, _, _ := f.backend.Attached(shadow.Framebuffer(), depthSlot)
	b, _, _ := f.backend.Attached(main.Framebuffer(), depthSlot)
	test.ExpectEquality(t, a, b)
}

func TestLayerSkipsDestroyedAttachment(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"color0","target":"color"}`, 8, 8, 0)
	depth0 := f.generated(t, `{"name":"depth0","target":"depth"}`, 8, 8, 0)
	main := f.layer(t, "main", "color0", "depth0")
	test.DemandSuccess(t, main.BindToRender())

	depth0.Destroy()
	test.ExpectSuccess(t, main.BindToRender())
	_, _, ok := f.backend.Attached(main.Framebuffer(), depthSlot)
	test.ExpectEquality(t, ok, false, "stale depth slot detached")
}

func TestLayerReset(t *testing.T) {
	f := newFixture(t)
	color0 := f.generated(t, `{"name":"color0","target":"color","clear":true,"clear_values":[0,0,1,1]}`, 8, 8, 0)
	main := f.layer(t, "main", "color0")
	test.DemandSuccess(t, main.BindToRender())

	props := graphics.SystemProperties{Width: 4, Height: 4}
	test.DemandSuccess(t, color0.SystemReset(props))
	test.DemandSuccess(t, main.SystemReset(props))
	test.ExpectEquality(t, main.Framebuffer(), uint32(0))

	test.DemandSuccess(t, main.BindToRender())
	pixels, err := main.ReadPixels(0, 3, 3, 1, 1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, pixel(pixels), pixel([]float32{0, 0, 1, 1}))
	_, err = main.ReadPixels(0, 7, 7, 1, 1)
	test.ExpectFailure(t, err, "old size is gone")

	main.Destroy()
	color0.Destroy()
	test.ExpectEquality(t, f.backend.LiveObjects(), 0)
}

func TestLayerBlitResolvesMultisample(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"msaa","target":"color","multisample":true,"clear":true,"clear_values":[1,0,0,1]}`, 8, 8, 4)
	f.generated(t, `{"name":"msaa-depth","target":"depth","multisample":true}`, 8, 8, 4)
	f.generated(t, `{"name":"resolved","target":"color"}`, 8, 8, 0)

	scene := f.layer(t, "scene", "msaa", "msaa-depth")
	resolve := f.layer(t, "resolve", "resolved")
	test.DemandSuccess(t, scene.BindToRender())

	_, err := scene.ReadPixels(0, 0, 0, 1, 1)
	test.ExpectFailure(t, err, "multisampled storage cannot be read")

	test.DemandSuccess(t, scene.BlitTo(resolve, 8, 8))
	pixels, err := resolve.ReadPixels(0, 2, 5, 1, 1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, pixel(pixels), pixel([]float32{1, 0, 0, 1}))

	test.DemandSuccess(t, scene.BlitTo(nil, 8, 8))
	scene.UnbindFromAll()
	screen, err := f.backend.FramebufferReadPixels(0, 0, 0, 1, 1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, pixel(screen), pixel([]float32{1, 0, 0, 1}))
}

func TestLayerCapture(t *testing.T) {
	f := newFixture(t)
	f.generated(t, `{"name":"color0","target":"color","clear":true,"clear_values":[1,1,1,1]}`, 8, 8, 0)
	main := f.layer(t, "main", "color0")
	test.DemandSuccess(t, main.BindToRender())

	img, err := main.Capture(0, 8, 8)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Bounds().Dx(), 8)
	c := img.RGBAAt(0, 7)
	test.ExpectEquality(t, [4]uint8{c.R, c.G, c.B, c.A}, [4]uint8{255, 255, 255, 255})
}

func TestPixelsToImageFlipsRows(t *testing.T) {
	// bottom row red, top row blue
	pixels := []float32{
		1, 0, 0, 1,
		0, 0, 1, 1,
	}
	img := graphics.PixelsToImage(pixels, 1, 2)
	test.ExpectEquality(t, img.RGBAAt(0, 0).B, uint8(255))
	test.ExpectEquality(t, img.RGBAAt(0, 1).R, uint8(255))
}
