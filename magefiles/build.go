//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const (
	shaderSourceDir = "shaders"
	shaderOutputDir = "assets/shaders"
	modelDir        = "assets/models"
)

var shaderOutputs = map[string]string{
	"shader.vert": "vert.spv",
	"shader.frag": "frag.spv",
}

// Compiles the GLSL sources to SPIR-V with glslc.
func (Build) Shaders() error {
	if err := os.MkdirAll(shaderOutputDir, 0o755); err != nil {
		return err
	}
	for src, out := range shaderOutputs {
		args := withArgs(filepath.Join(shaderSourceDir, src), "-o", filepath.Join(shaderOutputDir, out))
		if _, err := executeCmd("glslc", args, withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Converts every OBJ model under assets/models to a binary mesh file.
func (Build) Meshes() error {
	models, err := filepath.Glob(filepath.Join(modelDir, "*.obj"))
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Println("no models to convert")
		return nil
	}
	_, err = executeCmd("go", withArgs(append([]string{"run", "./cmd/meshc"}, models...)...), withStream())
	return err
}

// Builds the engine binary.
func (Build) Engine() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/leap", "."), withStream())
	return err
}
