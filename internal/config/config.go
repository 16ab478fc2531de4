// Package config loads the application configuration. Values come from the
// built in defaults, then a TOML file, then CUBES_* environment variables
// (optionally seeded from a .env file), then command line flags.
package config

import (
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid marks configuration that was read successfully but cannot be used.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Vulkan   VulkanConfig   `toml:"vulkan"`
	Scene    SceneConfig    `toml:"scene"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

type RendererConfig struct {
	// FramesInFlight is how many frames the CPU may record ahead of the GPU.
	FramesInFlight int `toml:"frames_in_flight"`
	// PoolSizing is "frames-in-flight" or "image-count".
	PoolSizing string     `toml:"pool_sizing"`
	ForceFIFO  bool       `toml:"force_fifo"`
	ClearColor [4]float32 `toml:"clear_color"`
}

type VulkanConfig struct {
	Validation bool   `toml:"validation"`
	ShaderDir  string `toml:"shader_dir"`
	// PipelineCache is where the pipeline cache is kept between runs. Empty
	// disables it.
	PipelineCache string `toml:"pipeline_cache"`
}

type MeshConfig struct {
	Path  string     `toml:"path"`
	Color [3]float32 `toml:"color"`
}

type SceneConfig struct {
	// Meshes are OBJ files drawn alongside the built in cube.
	Meshes []MeshConfig `toml:"meshes"`
	// SpinSpeed is the rotation speed of every object in radians per second.
	SpinSpeed float32 `toml:"spin_speed"`
	// StatsInterval is how often frame statistics are logged, in seconds. Zero
	// disables them.
	StatsInterval float64 `toml:"stats_interval"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     "cubes",
			Width:     800,
			Height:    600,
			Resizable: true,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			PoolSizing:     "frames-in-flight",
			ClearColor:     [4]float32{0.01, 0.01, 0.01, 1},
		},
		Vulkan: VulkanConfig{
			ShaderDir: "shaders",
		},
		Scene: SceneConfig{
			SpinSpeed:     0.5,
			StatsInterval: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Decode overlays the TOML document in r onto cfg. Keys that do not belong to
// any setting are an error.
func Decode(r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	err := dec.Decode(cfg)
	if err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.Mark(errors.Newf("%s", strict.String()), ErrInvalid)
		}
		return errors.Wrap(err, "decode toml")
	}
	return nil
}

func DecodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config file")
	}
	defer f.Close()

	return errors.Wrapf(Decode(f, cfg), "config file %s", path)
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// ApplyEnv overrides cfg from CUBES_* variables found through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "%s", name), ErrInvalid)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "%s", name), ErrInvalid)
		}
		*dst = b
		return nil
	}

	str("CUBES_TITLE", &cfg.Window.Title)
	str("CUBES_POOL_SIZING", &cfg.Renderer.PoolSizing)
	str("CUBES_SHADER_DIR", &cfg.Vulkan.ShaderDir)
	str("CUBES_PIPELINE_CACHE", &cfg.Vulkan.PipelineCache)
	str("CUBES_LOG_LEVEL", &cfg.Log.Level)
	str("CUBES_LOG_FORMAT", &cfg.Log.Format)

	var err error
	for _, e := range []error{
		integer("CUBES_WIDTH", &cfg.Window.Width),
		integer("CUBES_HEIGHT", &cfg.Window.Height),
		integer("CUBES_FRAMES_IN_FLIGHT", &cfg.Renderer.FramesInFlight),
		boolean("CUBES_VALIDATION", &cfg.Vulkan.Validation),
		boolean("CUBES_FORCE_FIFO", &cfg.Renderer.ForceFIFO),
	} {
		err = errors.CombineErrors(err, e)
	}
	return err
}

func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Mark(errors.Newf("window size %dx%d must be positive", c.Window.Width, c.Window.Height), ErrInvalid)
	case c.Renderer.FramesInFlight < 1:
		return errors.Mark(errors.Newf("frames in flight %d must be at least 1", c.Renderer.FramesInFlight), ErrInvalid)
	case c.Renderer.PoolSizing != "frames-in-flight" && c.Renderer.PoolSizing != "image-count":
		return errors.Mark(errors.Newf("unknown pool sizing %q", c.Renderer.PoolSizing), ErrInvalid)
	case c.Log.Format != "text" && c.Log.Format != "json":
		return errors.Mark(errors.Newf("unknown log format %q", c.Log.Format), ErrInvalid)
	case c.Scene.StatsInterval < 0:
		return errors.Mark(errors.Newf("stats interval %v must not be negative", c.Scene.StatsInterval), ErrInvalid)
	}

	for i, mesh := range c.Scene.Meshes {
		if mesh.Path == "" {
			return errors.Mark(errors.Newf("mesh %d has no path", i), ErrInvalid)
		}
	}
	return nil
}
