package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/cubes/internal/config"
)

const sampleTOML = `
[window]
title = "spinning"
width = 1280
height = 720

[renderer]
frames_in_flight = 3
pool_sizing = "image-count"
clear_color = [0.1, 0.2, 0.3, 1.0]

[vulkan]
validation = true
pipeline_cache = "cache.bin"

[[scene.meshes]]
path = "models/teapot.obj"
color = [0.8, 0.1, 0.1]

[log]
level = "debug"
format = "json"
`

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Renderer.FramesInFlight)
	assert.Equal(t, "frames-in-flight", cfg.Renderer.PoolSizing)
}

func TestDecode(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, config.Decode(strings.NewReader(sampleTOML), &cfg))

	assert.Equal(t, "spinning", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.True(t, cfg.Window.Resizable, "untouched keys keep their defaults")
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.Equal(t, "image-count", cfg.Renderer.PoolSizing)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, cfg.Renderer.ClearColor)
	assert.True(t, cfg.Vulkan.Validation)
	assert.Equal(t, "shaders", cfg.Vulkan.ShaderDir)
	assert.Equal(t, "cache.bin", cfg.Vulkan.PipelineCache)
	assert.Equal(t, []config.MeshConfig{{Path: "models/teapot.obj", Color: [3]float32{0.8, 0.1, 0.1}}}, cfg.Scene.Meshes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := config.Default()
	err := config.Decode(strings.NewReader("[window]\nwidht = 3\n"), &cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	err = config.Decode(strings.NewReader("[window\n"), &cfg)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Scene.Meshes = []config.MeshConfig{{Path: "a.obj", Color: [3]float32{1, 0, 0}}}

	buf := &bytes.Buffer{}
	require.NoError(t, config.Encode(buf, cfg))

	decoded := config.Config{}
	require.NoError(t, config.Decode(buf, &decoded))
	assert.Equal(t, cfg, decoded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CUBES_WIDTH":            "1024",
		"CUBES_FRAMES_IN_FLIGHT": "3",
		"CUBES_VALIDATION":       "true",
		"CUBES_LOG_LEVEL":        "warn",
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cfg := config.Default()
	require.NoError(t, config.ApplyEnv(&cfg, lookup))
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.True(t, cfg.Vulkan.Validation)
	assert.Equal(t, "warn", cfg.Log.Level)

	env["CUBES_HEIGHT"] = "tall"
	env["CUBES_FORCE_FIFO"] = "maybe"
	err := config.ApplyEnv(&cfg, lookup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{"zero width", func(cfg *config.Config) { cfg.Window.Width = 0 }},
		{"negative height", func(cfg *config.Config) { cfg.Window.Height = -1 }},
		{"no frames in flight", func(cfg *config.Config) { cfg.Renderer.FramesInFlight = 0 }},
		{"pool sizing", func(cfg *config.Config) { cfg.Renderer.PoolSizing = "swapchain" }},
		{"log format", func(cfg *config.Config) { cfg.Log.Format = "xml" }},
		{"stats interval", func(cfg *config.Config) { cfg.Scene.StatsInterval = -1 }},
		{"mesh without path", func(cfg *config.Config) { cfg.Scene.Meshes = []config.MeshConfig{{}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalid))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load([]string{
		"--config", filepath.Join(dir, "missing.toml"),
	})
	require.Error(t, err, "a config file named on the command line must exist")

	cfg, err = config.Load([]string{"--env-file", filepath.Join(dir, "none.env"), "--width", "640"})
	require.Error(t, err, "an env file named on the command line must exist")

	cfg, err = config.Load([]string{"--width", "640"})
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "cubes.toml")
	require.NoError(t, os.WriteFile(configFile, []byte(sampleTOML), 0o644))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CUBES_HEIGHT=700\nCUBES_LOG_LEVEL=error\n"), 0o644))

	t.Setenv("CUBES_LOG_LEVEL", "trace")
	// godotenv sets what it loads in the process environment.
	t.Setenv("CUBES_HEIGHT", "")
	require.NoError(t, os.Unsetenv("CUBES_HEIGHT"))

	cfg, err := config.Load([]string{
		"-c", configFile,
		"--env-file", envFile,
		"--frames-in-flight", "1",
		"--fifo",
	})
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Window.Width, "from file")
	assert.Equal(t, 700, cfg.Window.Height, "from env file")
	assert.Equal(t, "trace", cfg.Log.Level, "process environment beats env file")
	assert.Equal(t, 1, cfg.Renderer.FramesInFlight, "flag beats file")
	assert.True(t, cfg.Renderer.ForceFIFO)
	assert.Equal(t, "image-count", cfg.Renderer.PoolSizing)
}

func TestLoadFlagErrors(t *testing.T) {
	_, err := config.Load([]string{"--help"})
	assert.True(t, errors.Is(err, pflag.ErrHelp))

	_, err = config.Load([]string{"--no-such-flag"})
	assert.True(t, errors.Is(err, config.ErrInvalid))

	_, err = config.Load([]string{"--log-format", "xml"})
	assert.True(t, errors.Is(err, config.ErrInvalid))
}
