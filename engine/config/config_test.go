package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/leap/engine/core"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"width": 1280, "height": 720, "model": "models/uh60.bin"}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.Model != "models/uh60.bin" {
		t.Errorf("model = %q", cfg.Model)
	}
	// Fields missing from the file keep their defaults.
	if cfg.Renderer.FramesInFlight != DefaultFramesInFlight || cfg.Renderer.MaxObjects != DefaultMaxObjects {
		t.Errorf("renderer defaults lost: %+v", cfg.Renderer)
	}
	if cfg.ModelPath() != filepath.Join(".", "models/uh60.bin") {
		t.Errorf("ModelPath = %q", cfg.ModelPath())
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
width = 800
height = 600
model = "models/cube.bin"
assets_dir = "/srv/assets"
log_level = "debug"

[renderer]
frames_in_flight = 3
max_objects = 5
front_face = "cw"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer.FramesInFlight != 3 || cfg.Renderer.MaxObjects != 5 || cfg.Renderer.FrontFace != "cw" {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.ModelPath() != "/srv/assets/models/cube.bin" {
		t.Errorf("ModelPath = %q", cfg.ModelPath())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no-model.json":    `{"width": 10, "height": 10}`,
		"zero-size.json":   `{"width": 0, "height": 10, "model": "m.bin"}`,
		"no-frames.json":   `{"width": 10, "height": 10, "model": "m.bin", "renderer": {"frames_in_flight": 0}}`,
		"bad-face.json":    `{"width": 10, "height": 10, "model": "m.bin", "renderer": {"front_face": "up"}}`,
		"broken.json":      `{"width": `,
		"unsupported.yaml": `width: 10`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name, content))
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Fatalf("Load(%s) error = %v, want ErrInvalidConfig", name, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
