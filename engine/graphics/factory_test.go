package graphics_test

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/graphics"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
	"github.com/spaghettifunk/anima/engine/test"
)

const renderDocument = `{
  "attachment": [
    {"name": "color0", "target": "color", "clear": true, "clear_values": [0, 0, 0, 1]},
    {"name": "depth0", "target": "depth-stencil", "clear": true, "clear_values": [1, 0, 0, 0]},
    {"name": "shadowmap", "target": "depth", "format": "depth32f", "texture": "shadowmap"}
  ],
  "render": [
    {"name": "shadow", "attachments": ["shadowmap"]},
    {"name": "main", "attachments": ["color0", "depth0"]}
  ]
}`

func TestFactoryCreate(t *testing.T) {
	f := newFixture(t)
	factory := graphics.NewFactory(f.backend, f.textures, f.registry)

	c, err := factory.Create("attachment")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.TypeID(), uint32(402))

	c, err = factory.CreateByID(403)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, c.TypeName(), "render")

	_, err = factory.Create("mesh")
	test.ExpectSuccess(t, errors.Is(err, core.ErrConfig))
	_, err = factory.CreateByID(7)
	test.ExpectSuccess(t, errors.Is(err, core.ErrConfig))
}

func TestFactoryBuildRoundTrip(t *testing.T) {
	f := newFixture(t)
	doc, err := graphics.ParseDocument([]byte(renderDocument))
	test.DemandSuccess(t, err)

	components, err := graphics.NewFactory(f.backend, f.textures, f.registry).Build(doc)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(components), 5)
	test.ExpectEquality(t, components[0].TypeName(), metadata.AttachmentTypeName)
	test.ExpectEquality(t, components[4].Key(), "main")

	out := graphics.NewDocument()
	for _, c := range components {
		test.DemandSuccess(t, c.Serialize(out))
	}
	data, err := out.Bytes()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, canonical(t, data), canonical(t, []byte(renderDocument)))
}

func TestFactoryBuildErrors(t *testing.T) {
	f := newFixture(t)
	factory := graphics.NewFactory(f.backend, f.textures, f.registry)

	for name, data := range map[string]string{
		"unknown type":         `{"camera": [{}]}`,
		"bad attachment":       `{"attachment": [{"name": "c"}]}`,
		"bad layer":            `{"render": [{"attachments": []}]}`,
		"same attachment name": `{"attachment": [{"name": "c", "target": "color"}, {"name": "c", "target": "depth"}]}`,
		"same layer name":      `{"render": [{"name": "l", "attachments": ["a"]}, {"name": "l", "attachments": ["b"]}]}`,
	} {
		doc, err := graphics.ParseDocument([]byte(data))
		test.DemandSuccess(t, err, name)
		_, err = factory.Build(doc)
		test.ExpectSuccess(t, errors.Is(err, core.ErrConfig), name)
	}

	_, err := graphics.ParseDocument([]byte(`{"attachment": {}}`))
	test.ExpectSuccess(t, errors.Is(err, core.ErrConfig), "sections are arrays")
}
