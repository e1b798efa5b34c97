package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/leap/engine/core"
)

const (
	DefaultFramesInFlight = 2
	DefaultMaxObjects     = 20
)

// RendererConfig holds the values the Vulkan backend takes at construction
// time instead of compile time constants.
type RendererConfig struct {
	// Number of frames the CPU may record ahead of the GPU.
	FramesInFlight uint32 `json:"frames_in_flight" toml:"frames_in_flight"`
	// Capacity of the texture descriptor pool.
	MaxObjects uint32 `json:"max_objects" toml:"max_objects"`
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool       `json:"validation" toml:"validation"`
	ClearColor [4]float32 `json:"clear_color" toml:"clear_color"`
	// "ccw" or "cw".
	FrontFace string `json:"front_face" toml:"front_face"`
}

type Config struct {
	Title     string         `json:"title" toml:"title"`
	Width     uint32         `json:"width" toml:"width"`
	Height    uint32         `json:"height" toml:"height"`
	Resizable bool           `json:"resizable" toml:"resizable"`
	Model     string         `json:"model" toml:"model"`
	AssetsDir string         `json:"assets_dir" toml:"assets_dir"`
	LogLevel  string         `json:"log_level" toml:"log_level"`
	Renderer  RendererConfig `json:"renderer" toml:"renderer"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	return &Config{
		Title:     "Leap Of Faith",
		Width:     1366,
		Height:    768,
		AssetsDir: ".",
		LogLevel:  "info",
		Renderer: RendererConfig{
			FramesInFlight: DefaultFramesInFlight,
			MaxObjects:     DefaultMaxObjects,
			ClearColor:     [4]float32{0.6, 0.65, 0.4, 1.0},
			FrontFace:      "ccw",
		},
	}
}

// Load reads a JSON or TOML document, picked by file extension, on top of
// the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read config %s", path)
		core.LogError(err.Error())
		return nil, err
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = errors.Newf("unsupported config format %q", ext)
	}
	if err != nil {
		err = errors.Wrapf(errors.Mark(err, core.ErrInvalidConfig), "failed to parse config %s", path)
		core.LogError(err.Error())
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the renderer cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Width == 0 || c.Height == 0:
		return errors.Wrapf(core.ErrInvalidConfig, "window size %dx%d", c.Width, c.Height)
	case c.Model == "":
		return errors.Wrap(core.ErrInvalidConfig, "model path is empty")
	case c.Renderer.FramesInFlight == 0:
		return errors.Wrap(core.ErrInvalidConfig, "frames_in_flight must be at least 1")
	case c.Renderer.MaxObjects == 0:
		return errors.Wrap(core.ErrInvalidConfig, "max_objects must be at least 1")
	case c.Renderer.FrontFace != "ccw" && c.Renderer.FrontFace != "cw":
		return errors.Wrapf(core.ErrInvalidConfig, "front_face %q", c.Renderer.FrontFace)
	}
	return nil
}

// ModelPath resolves the model file against the assets directory.
func (c *Config) ModelPath() string {
	if filepath.IsAbs(c.Model) {
		return c.Model
	}
	return filepath.Join(c.AssetsDir, c.Model)
}
