package assets

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// TextureLoadFunc loads one resident texture from disk, the
// TextureSystem.Acquire callback. Its decoding goes through the same
// AssetManager/loaders.ImageLoader path every other asset type uses, so
// a texture path participates in the fsnotify hot-reload watch like any
// other tracked asset.
func (am *AssetManager) TextureLoadFunc(path string, flipY bool) (*metadata.Texture, error) {
	resource, err := am.LoadAsset(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: flipY})
	if err != nil {
		return nil, err
	}

	data, ok := resource.Data.(*metadata.ImageResourceData)
	if !ok {
		return nil, fmt.Errorf("asset %q did not decode to image data", path)
	}

	pixelBytes := uint64(len(data.Pixels))
	return &metadata.Texture{
		Name:         path,
		Width:        data.Width,
		Height:       data.Height,
		ChannelCount: data.ChannelCount,
		InternalData: data.Pixels,
		CPUBytes:     pixelBytes,
		// Uncompressed RGBA8 upload; the GPU copy is the same size as the
		// decoded CPU buffer until a compressed-format path exists.
		GPUBytes: pixelBytes,
		Resident: true,
	}, nil
}
