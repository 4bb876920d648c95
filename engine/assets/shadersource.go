package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileShaderSourceProvider implements glbackend.ShaderSourceProvider by
// reading raw GLSL off disk under <root>/shaders/<programFamily>.{vert,frag,geom}.glsl,
// the same directory convention AssetManager scans for every other
// resource type. It is the next stage down from ShaderLoader's
// .shadercfg parsing (engine/assets/loaders/shader.go): that loader
// resolves a shader config's StageFilenames, this provider resolves the
// GLSL text a program-family name needs to compile a variant.
type FileShaderSourceProvider struct {
	Root string
}

func NewFileShaderSourceProvider(root string) *FileShaderSourceProvider {
	return &FileShaderSourceProvider{Root: root}
}

func (p *FileShaderSourceProvider) read(programFamily, ext string) (string, error) {
	path := filepath.Join(p.Root, "shaders", fmt.Sprintf("%s.%s.glsl", programFamily, ext))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading shader source %s: %w", path, err)
	}
	return string(data), nil
}

func (p *FileShaderSourceProvider) VertexSource(programFamily string) (string, error) {
	return p.read(programFamily, "vert")
}

func (p *FileShaderSourceProvider) FragmentSource(programFamily string) (string, error) {
	return p.read(programFamily, "frag")
}

func (p *FileShaderSourceProvider) GeometrySource(programFamily string) (string, bool, error) {
	path := filepath.Join(p.Root, "shaders", fmt.Sprintf("%s.geom.glsl", programFamily))
	if _, err := os.Stat(path); err != nil {
		return "", false, nil
	}
	src, err := p.read(programFamily, "geom")
	return src, true, err
}
