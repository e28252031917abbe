// Package config holds the runtime settings of the bootstrap. Values come from an
// optional YAML file, then command-line flags.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"gopkg.in/yaml.v3"
)

// Backend selects how, if at all, images are presented.
type Backend string

const (
	// BackendSDL2 opens an SDL2 window and builds a surface and swapchain for it.
	BackendSDL2 Backend = "sdl2"
	// BackendNone skips windowing: only devices and queues are set up.
	BackendNone Backend = "none"
)

func (b Backend) Valid() bool {
	return b == BackendSDL2 || b == BackendNone
}

func (b Backend) Presents() bool {
	return b == BackendSDL2
}

const (
	DefaultWidth         = 800
	DefaultHeight        = 600
	DefaultMinImageCount = 3

	FenceTimeout = 100 * time.Millisecond
)

type Window struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type Surface struct {
	Format        string `yaml:"format"`
	ColorSpace    string `yaml:"color_space"`
	PresentMode   string `yaml:"present_mode"`
	MinImageCount int    `yaml:"min_image_count"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Backend          Backend  `yaml:"backend"`
	Window           Window   `yaml:"window"`
	Validation       bool     `yaml:"validation"`
	ValidationLayers []string `yaml:"validation_layers"`
	DeviceExtensions []string `yaml:"device_extensions"`
	PreferredDevice  string   `yaml:"preferred_device"`
	Surface          Surface  `yaml:"surface"`
	Log              Log      `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Backend: BackendSDL2,
		Window: Window{
			Title:  "Vulkan",
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
		DeviceExtensions: []string{khr_swapchain.ExtensionName},
		Surface: Surface{
			Format:        "B8G8R8A8_SRGB",
			ColorSpace:    "SRGB_NONLINEAR",
			PresentMode:   "mailbox",
			MinImageCount: DefaultMinImageCount,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their default.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}

	return cfg, nil
}

// Validate checks every value the bootstrap will later rely on.
func (c *Config) Validate() error {
	if !c.Backend.Valid() {
		return errors.Newf("unknown backend %q", c.Backend)
	}

	if c.Backend.Presents() {
		if c.Window.Width <= 0 || c.Window.Height <= 0 {
			return errors.Newf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
		}
		if c.Surface.MinImageCount < 1 {
			return errors.Newf("min_image_count must be positive, got %d", c.Surface.MinImageCount)
		}
	}

	if _, err := ParseSurfaceFormat(c.Surface.Format); err != nil {
		return err
	}
	if _, err := ParseColorSpace(c.Surface.ColorSpace); err != nil {
		return err
	}
	if _, err := ParsePresentMode(c.Surface.PresentMode); err != nil {
		return err
	}

	return nil
}

// BindFlags registers overrides for the most common settings on fs. Flags are applied
// to c when fs is parsed.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.Func("backend", "presentation backend: sdl2 or none", func(s string) error {
		b := Backend(s)
		if !b.Valid() {
			return errors.Newf("unknown backend %q", s)
		}
		c.Backend = b
		return nil
	})
	fs.StringVar(&c.PreferredDevice, "device", c.PreferredDevice, "name of the physical device to prefer")
	fs.BoolVar(&c.Validation, "validation", c.Validation, "enable validation layers and the debug messenger")
	fs.IntVar(&c.Window.Width, "width", c.Window.Width, "window width")
	fs.IntVar(&c.Window.Height, "height", c.Window.Height, "window height")
	fs.StringVar(&c.Surface.PresentMode, "present-mode", c.Surface.PresentMode, "desired present mode")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn or error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "text or json")
}
