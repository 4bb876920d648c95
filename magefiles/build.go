//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// buildShaders validates that the GLSL sources FileShaderSourceProvider
// resolves at runtime (engine/assets/shadersource.go) are present under
// assetsDir/shaders. Unlike the Vulkan pipeline this replaces, GLSL text
// is compiled in-process by glbackend.ProgramCompiler on first use, so
// there is no offline glslc/SPIR-V step left to run; this just catches a
// missing shaders directory before Run.Engine starts the window.
func buildShaders() error {
	fmt.Println("Checking shader sources...")
	root := "assets/shaders"
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("shader source directory %s not found: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", root)
	}
	return nil
}

// Checks that shader sources are in place for the runtime GLSL compiler.
func (Build) Shaders() error {
	return buildShaders()
}
