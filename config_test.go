package lai

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "lai.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, uint64(vk.MaxUint64), cfg.fenceTimeout(), "no limit by default")

	cfg.FenceTimeout = time.Second
	assert.Equal(t, uint64(1e9), cfg.fenceTimeout())
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lai.toml")
	data := `
validation = true
wireframe = true
shader_dir = "shaders"
default_width = 1024
log_level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Validation)
	assert.True(t, cfg.Wireframe)
	assert.Equal(t, "shaders", cfg.ShaderDir)
	assert.Equal(t, uint32(1024), cfg.DefaultWidth)
	assert.Equal(t, uint32(600), cfg.DefaultHeight, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfigSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lai.toml")
	cfg := DefaultConfig()
	cfg.ApplicationName = "sandbox"
	cfg.DiscreteGPU = true
	cfg.ClearColor = [4]float32{1, 0.5, 0.25, 1}

	require.NoError(t, cfg.Save(path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "validation = = true"},
		{"empty shader dir", `shader_dir = ""`},
		{"zero width", "default_width = 0"},
		{"zero vertices", "max_geometry_vertices = 0"},
		{"negative timeout", "fence_timeout = -1"},
		{"bad level", `log_level = "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lai.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0o644))
			cfg, err := LoadConfig(path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestConfigValidateSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultHeight = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidSize)
}
