package lai

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	vk "github.com/vulkan-go/vulkan"
)

// Config holds the renderer settings an application may override from a
// TOML file.
type Config struct {
	// ApplicationName is reported to the driver in the application info.
	ApplicationName string `toml:"application_name"`

	// EngineName is reported to the driver in the application info.
	EngineName string `toml:"engine_name"`

	// Validation enables VK_LAYER_KHRONOS_validation and routes its reports
	// into the log.
	Validation bool `toml:"validation"`

	// DiscreteGPU rejects every physical device that is not a discrete GPU.
	DiscreteGPU bool `toml:"discrete_gpu"`

	// Wireframe rasterizes the object shader with line polygons.
	Wireframe bool `toml:"wireframe"`

	// ShaderDir is where compiled shader modules are loaded from.
	ShaderDir string `toml:"shader_dir"`

	// ShaderHotReload rebuilds the object pipeline when its modules change on disk.
	ShaderHotReload bool `toml:"shader_hot_reload"`

	ClearColor [4]float32 `toml:"clear_color"`

	// DefaultWidth and DefaultHeight are used when the window reports an
	// empty framebuffer at startup.
	DefaultWidth  uint32 `toml:"default_width"`
	DefaultHeight uint32 `toml:"default_height"`

	// MaxGeometryVertices sizes the vertex and index buffers, in elements.
	MaxGeometryVertices uint64 `toml:"max_geometry_vertices"`

	// FenceTimeout bounds every in-flight fence wait, in nanoseconds. Zero
	// waits without a limit.
	FenceTimeout time.Duration `toml:"fence_timeout"`

	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		ApplicationName:     "Lai",
		EngineName:          "Lai Engine",
		ShaderDir:           "assets/shaders",
		ClearColor:          [4]float32{0, 0, 0.2, 1},
		DefaultWidth:        800,
		DefaultHeight:       600,
		MaxGeometryVertices: 1024 * 1024,
		LogLevel:            "warn",
	}
}

// LoadConfig reads path on top of DefaultConfig. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the values the renderer cannot work around.
func (c *Config) Validate() error {
	if c.ShaderDir == "" {
		return errors.New("shader_dir must not be empty")
	}
	if c.DefaultWidth == 0 || c.DefaultHeight == 0 {
		return fmt.Errorf("default size %dx%d: %w", c.DefaultWidth, c.DefaultHeight, ErrInvalidSize)
	}
	if c.MaxGeometryVertices == 0 {
		return errors.New("max_geometry_vertices must be positive")
	}
	if c.FenceTimeout < 0 {
		return errors.New("fence_timeout must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// fenceTimeout is FenceTimeout in the form the driver expects.
func (c *Config) fenceTimeout() uint64 {
	if c.FenceTimeout == 0 {
		return vk.MaxUint64
	}
	return uint64(c.FenceTimeout)
}
