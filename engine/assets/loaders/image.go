package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type ImageLoader struct{}

// decodeImage reads path into a flat RGBA8 pixel buffer, flipping rows
// when requested so texture uploads don't need their own y-flip pass.
func decodeImage(path string, flipY bool) ([]uint8, int, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, 0, 0, 0, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	const channels = 4
	pixels := make([]uint8, width*height*channels)

	for y := 0; y < height; y++ {
		srcY := y
		if flipY {
			srcY = height - 1 - y
		}
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+srcY).RGBA()
			o := (y*width + x) * channels
			pixels[o+0] = uint8(r >> 8)
			pixels[o+1] = uint8(g >> 8)
			pixels[o+2] = uint8(b >> 8)
			pixels[o+3] = uint8(a >> 8)
		}
	}

	return pixels, width, height, channels, nil
}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flipY := false
	if typedParams, ok := params.(*metadata.ImageResourceParams); ok && typedParams != nil {
		flipY = typedParams.FlipY
	}

	pixels, width, height, channels, err := decodeImage(path, flipY)
	if err != nil {
		return nil, err
	}

	return &metadata.Resource{
		Name:     "image",
		FullPath: path,
		DataSize: uint64(len(pixels)),
		Data: &metadata.ImageResourceData{
			ChannelCount: uint8(channels),
			Width:        uint32(width),
			Height:       uint32(height),
			Pixels:       pixels,
		},
	}, nil
}

func (il *ImageLoader) Unload(*metadata.Resource) error {
	return nil
}
