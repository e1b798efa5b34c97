package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/engine/renderer/metadata"
)

// TextureLoader decodes image files into RGBA8 pixel data.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	flip := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}
	data, err := LoadImage(path, flip)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeTexture,
		DataSize: data.Size(),
		Data:     data,
	}, nil
}

func (tl *TextureLoader) Unload(*metadata.Resource) error {
	return nil
}

// LoadImage decodes any registered image format and converts it to RGBA8.
func LoadImage(path string, flipY bool) (*metadata.ImageResourceData, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.Mark(err, core.ErrAssetNotFound)
		}
		err = errors.Wrapf(err, "failed to open texture %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		err = errors.Wrapf(err, "failed to decode texture %s", path)
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("decoded %s texture %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())

	return ToRGBA(img, flipY), nil
}

// ToRGBA copies img into a tightly packed RGBA8 buffer.
func ToRGBA(img image.Image, flipY bool) *metadata.ImageResourceData {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	if flipY {
		stride := rgba.Stride
		row := make([]byte, stride)
		for y := 0; y < b.Dy()/2; y++ {
			top := rgba.Pix[y*stride : (y+1)*stride]
			bottom := rgba.Pix[(b.Dy()-1-y)*stride : (b.Dy()-y)*stride]
			copy(row, top)
			copy(top, bottom)
			copy(bottom, row)
		}
	}

	return &metadata.ImageResourceData{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: rgba.Pix,
	}
}

// WhiteImage is the 1x1 fallback used when no default texture is on disk.
func WhiteImage() *metadata.ImageResourceData {
	return &metadata.ImageResourceData{Width: 1, Height: 1, Pixels: []uint8{255, 255, 255, 255}}
}
