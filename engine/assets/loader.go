package assets

import (
	"fmt"
	"image"
	"os"

	// decoders for the image assets that can be indexed
	_ "image/png"

	_ "golang.org/x/image/bmp"

	"github.com/spaghettifunk/anima/engine/graphics"
)

type Loader interface {
	Load(path string) (any, error)
}

// RenderConfigLoader reads a render document.
type RenderConfigLoader struct{}

func (l *RenderConfigLoader) Load(path string) (any, error) {
	return graphics.LoadDocument(path)
}

// ImageLoader decodes png and bmp images, captures included.
type ImageLoader struct{}

func (l *ImageLoader) Load(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image '%s': %w", path, err)
	}
	return img, nil
}
