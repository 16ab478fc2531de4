package config

import (
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DefaultConfigFile = "cubes.toml"
	DefaultEnvFile    = ".env"
)

// Load builds the configuration for a run from the command line arguments
// (without the program name). A missing default config or .env file is not an
// error; a missing file named on the command line is. pflag.ErrHelp is
// returned unwrapped when -h was given.
func Load(args []string) (Config, error) {
	cfg := Default()

	flags := pflag.NewFlagSet("cubes", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", DefaultConfigFile, "TOML configuration file")
	envFile := flags.String("env-file", DefaultEnvFile, "file of CUBES_* environment variables")
	width := flags.Int("width", cfg.Window.Width, "initial window width")
	height := flags.Int("height", cfg.Window.Height, "initial window height")
	framesInFlight := flags.Int("frames-in-flight", cfg.Renderer.FramesInFlight, "frames recorded ahead of the GPU")
	poolSizing := flags.String("pool-sizing", cfg.Renderer.PoolSizing, "command buffer pool sizing: frames-in-flight or image-count")
	forceFIFO := flags.Bool("fifo", cfg.Renderer.ForceFIFO, "always use FIFO presentation (vsync)")
	validation := flags.Bool("validation", cfg.Vulkan.Validation, "enable the Khronos validation layer")
	shaderDir := flags.String("shaders", cfg.Vulkan.ShaderDir, "directory of compiled SPIR-V shaders")
	pipelineCache := flags.String("pipeline-cache", cfg.Vulkan.PipelineCache, "pipeline cache file, empty to disable")
	logLevel := flags.String("log-level", cfg.Log.Level, "log level")
	logFormat := flags.String("log-format", cfg.Log.Format, "log format: text or json")

	err := flags.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return cfg, pflag.ErrHelp
	}
	if err != nil {
		return cfg, errors.Mark(errors.Wrap(err, "parse flags"), ErrInvalid)
	}

	err = DecodeFile(*configFile, &cfg)
	if err != nil && (flags.Changed("config") || !errors.Is(err, fs.ErrNotExist)) {
		return cfg, err
	}

	// godotenv never overrides variables already set in the environment.
	err = godotenv.Load(*envFile)
	if err != nil && (flags.Changed("env-file") || !errors.Is(err, fs.ErrNotExist)) {
		return cfg, errors.Wrapf(err, "load env file %s", *envFile)
	}

	err = ApplyEnv(&cfg, os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	changed := func(name string) bool { return flags.Changed(name) }
	if changed("width") {
		cfg.Window.Width = *width
	}
	if changed("height") {
		cfg.Window.Height = *height
	}
	if changed("frames-in-flight") {
		cfg.Renderer.FramesInFlight = *framesInFlight
	}
	if changed("pool-sizing") {
		cfg.Renderer.PoolSizing = *poolSizing
	}
	if changed("fifo") {
		cfg.Renderer.ForceFIFO = *forceFIFO
	}
	if changed("validation") {
		cfg.Vulkan.Validation = *validation
	}
	if changed("shaders") {
		cfg.Vulkan.ShaderDir = *shaderDir
	}
	if changed("pipeline-cache") {
		cfg.Vulkan.PipelineCache = *pipelineCache
	}
	if changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = *logFormat
	}

	return cfg, cfg.Validate()
}
