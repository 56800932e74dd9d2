package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodface.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
target_fps: 15
stabilize_frames: 4
status_interval: 500ms
log_level: debug
`), 0o644))
	t.Setenv("MOODFACE_JPEG_QUALITY", "60")
	t.Setenv("MOODFACE_TARGET_FPS", "10")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 10, cfg.TargetFPS, "env beats file")
	assert.Equal(t, 60, cfg.JPEGQuality)
	assert.Equal(t, 4, cfg.StabilizeFrames)
	assert.Equal(t, 500*time.Millisecond, cfg.StatusInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.KeepaliveInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateClamps(t *testing.T) {
	cfg := Config{Addr: ":1", TargetFPS: -5, JPEGQuality: 500, StabilizeFrames: 0, LogLevel: "warn"}
	require.NoError(t, cfg.Validate())

	def := DefaultConfig()
	assert.Equal(t, def.TargetFPS, cfg.TargetFPS)
	assert.Equal(t, def.JPEGQuality, cfg.JPEGQuality)
	assert.Equal(t, 1, cfg.StabilizeFrames)
	assert.Equal(t, def.StatusInterval, cfg.StatusInterval)
	assert.Equal(t, def.MJPEGIdleInterval, cfg.MJPEGIdleInterval)
}

func TestValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "chatty"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Addr = " "
	assert.Error(t, cfg.Validate())
}
