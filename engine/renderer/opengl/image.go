package opengl

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func textureTarget(texture *metadata.Texture) uint32 {
	if texture.TextureType == metadata.TextureType2dMultisample {
		return gl.TEXTURE_2D_MULTISAMPLE
	}
	return gl.TEXTURE_2D
}

func (r *OpenGLRenderer) TextureCreateWriteable(texture *metadata.Texture) error {
	f, err := lookupFormat(texture.Format)
	if err != nil {
		return err
	}
	if texture.Format == metadata.AttachmentFormatStencil8 {
		// stencil-only textures need GL 4.4
		return errors.New("stencil8 textures are not supported on a 4.1 context, use a renderbuffer")
	}

	if texture.Samples > 0 {
		texture.TextureType = metadata.TextureType2dMultisample
	} else {
		texture.TextureType = metadata.TextureType2d
	}
	target := textureTarget(texture)

	var handle uint32
	gl.GenTextures(1, &handle)
	if handle == 0 {
		return fmt.Errorf("failed to generate texture: %w", checkError("glGenTextures"))
	}

	gl.BindTexture(target, handle)
	if texture.Samples > 0 {
		gl.TexImage2DMultisample(target, int32(texture.Samples), f.internal, int32(texture.Width), int32(texture.Height), true)
	} else {
		gl.TexImage2D(target, 0, int32(f.internal), int32(texture.Width), int32(texture.Height), 0, f.format, f.xtype, nil)
		gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, f.filter)
		gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, f.filter)
		gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	gl.BindTexture(target, 0)

	if err := checkError(fmt.Sprintf("texture '%s' storage", texture.Name)); err != nil {
		gl.DeleteTextures(1, &handle)
		return err
	}
	texture.Handle = handle
	return nil
}

func (r *OpenGLRenderer) TextureDestroy(texture *metadata.Texture) {
	if !texture.HasStorage() {
		return
	}
	gl.DeleteTextures(1, &texture.Handle)
	texture.Handle = 0
}

func (r *OpenGLRenderer) TextureActivate(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
}

func (r *OpenGLRenderer) TextureBind(texture *metadata.Texture) error {
	if !texture.HasStorage() {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return nil
	}
	gl.BindTexture(textureTarget(texture), texture.Handle)
	return checkError(fmt.Sprintf("bind texture '%s'", texture.Name))
}
