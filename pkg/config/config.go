// Package config provides configuration loading and management for obliqueslice.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"obliqueslice/internal/logging"
	"obliqueslice/internal/models"
	"obliqueslice/pkg/coloring"
	"obliqueslice/pkg/geometry"
	"obliqueslice/pkg/render"
	"obliqueslice/pkg/sampler"
)

// ErrUnknownFormat is returned for configuration files that are neither
// YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown configuration format")

// Config represents the application configuration
type Config struct {
	// Render parameters
	Render struct {
		// Masking is the edge masking policy of cubic samples: off, loose or tight
		Masking string `yaml:"masking" toml:"masking"`

		// StepSource selects the grid sizing the cells: underlay or layer
		StepSource string `yaml:"stepSource" toml:"step_source"`

		// Identify renders pick ids instead of colors
		Identify bool `yaml:"identify" toml:"identify"`

		// DisplayGroup scopes label selection: tab, a, b, c or d
		DisplayGroup string `yaml:"displayGroup" toml:"display_group"`

		// Tab is the tab index used with the tab display group
		Tab int `yaml:"tab" toml:"tab"`

		// AllStructuresScale enlarges the bounds of all-structures views
		AllStructuresScale float64 `yaml:"allStructuresScale" toml:"all_structures_scale"`
	} `yaml:"render" toml:"render"`

	// View parameters
	View struct {
		// Mode is single, montage or all
		Mode string `yaml:"mode" toml:"mode"`

		// Axis is axial, coronal or parasagittal
		Axis string `yaml:"axis" toml:"axis"`

		// Rotation holds oblique rotations about X, Y and Z in degrees
		Rotation []float64 `yaml:"rotation" toml:"rotation"`

		// Center overrides the slice center; empty means the grid center
		Center []float64 `yaml:"center" toml:"center"`

		// Zoom shrinks the viewed region
		Zoom float64 `yaml:"zoom" toml:"zoom"`
	} `yaml:"view" toml:"view"`

	// Montage parameters
	Montage struct {
		Rows    int     `yaml:"rows" toml:"rows"`
		Columns int     `yaml:"columns" toml:"columns"`
		Spacing float64 `yaml:"spacing" toml:"spacing"`
	} `yaml:"montage" toml:"montage"`

	// Volume parameters of the generated phantom layers
	Volume struct {
		// Kind of the underlay: scalar, label, rgb or rgba
		Kind string `yaml:"kind" toml:"kind"`

		// Overlay adds a second phantom layer of this kind when set
		Overlay string `yaml:"overlay" toml:"overlay"`

		// OverlayOpacity is the opacity of the overlay layer
		OverlayOpacity float64 `yaml:"overlayOpacity" toml:"overlay_opacity"`

		// Size is the number of voxels per side
		Size int `yaml:"size" toml:"size"`

		// Spacing is the voxel edge length in mm
		Spacing float64 `yaml:"spacing" toml:"spacing"`

		// Palette colors scalar layers
		Palette string `yaml:"palette" toml:"palette"`

		// Storage is dense or block
		Storage string `yaml:"storage" toml:"storage"`

		// BlockSize is the edge of compressed blocks in voxels
		BlockSize int `yaml:"blockSize" toml:"block_size"`

		// CacheBytes sizes the decoded block cache
		CacheBytes int `yaml:"cacheBytes" toml:"cache_bytes"`
	} `yaml:"volume" toml:"volume"`

	// Output parameters
	Output struct {
		// Width and Height of the rendered image in pixels
		Width  int `yaml:"width" toml:"width"`
		Height int `yaml:"height" toml:"height"`

		// Scale is the integer upscale factor of saved images
		Scale int `yaml:"scale" toml:"scale"`

		// SaveSequences writes every slice of every axis as JPEG images
		SaveSequences bool `yaml:"saveSequences" toml:"save_sequences"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose" toml:"verbose"`

		// Logging sends diagnostic logs to a rotating file
		Logging LogConfig `yaml:"logging" toml:"logging"`
	} `yaml:"output" toml:"output"`
}

// LogConfig describes a rotating log file.
type LogConfig struct {
	Logfile string `yaml:"logfile" toml:"logfile"`

	// MaxSize is the size in megabytes that triggers rotation
	MaxSize int `yaml:"maxLogSize" toml:"max_log_size"`

	// MaxAge is the number of days rotated files are kept
	MaxAge int `yaml:"maxLogAge" toml:"max_log_age"`

	// Level is debug, info, warn or error
	Level string `yaml:"level" toml:"level"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default render parameters
	cfg.Render.Masking = sampler.MaskLoose.String()
	cfg.Render.StepSource = render.StepUnderlay.String()
	cfg.Render.DisplayGroup = coloring.DisplayGroupTab.String()
	cfg.Render.AllStructuresScale = 1.2

	// Set default view parameters
	cfg.View.Mode = render.ViewSingle.String()
	cfg.View.Axis = geometry.Axial.String()
	cfg.View.Rotation = []float64{0, 0, 0}
	cfg.View.Zoom = 1

	// Set default montage parameters
	cfg.Montage.Rows = 2
	cfg.Montage.Columns = 3

	// Set default volume parameters
	cfg.Volume.Kind = "scalar"
	cfg.Volume.OverlayOpacity = 0.5
	cfg.Volume.Size = 64
	cfg.Volume.Spacing = 1.0
	cfg.Volume.Palette = coloring.PaletteGrayInterpPositive
	cfg.Volume.Storage = "dense"
	cfg.Volume.BlockSize = 16
	cfg.Volume.CacheBytes = 32 << 20

	// Set default output parameters
	cfg.Output.Width = 512
	cfg.Output.Height = 512
	cfg.Output.Scale = 1
	cfg.Output.Verbose = true
	cfg.Output.Logging.MaxSize = 100
	cfg.Output.Logging.MaxAge = 7
	cfg.Output.Logging.Level = "info"

	return cfg
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	format, err := formatOf(configPath)
	if err != nil {
		return nil, err
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse the file over the defaults
	switch format {
	case "toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension.
func SaveConfig(cfg *Config, configPath string) error {
	format, err := formatOf(configPath)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config
	var data []byte
	switch format {
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	default:
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks every enumerated setting and size.
func (c *Config) Validate() error {
	if _, err := c.RenderOptions(); err != nil {
		return err
	}
	if _, err := c.RenderView(r3.Vec{}); err != nil {
		return err
	}
	if _, err := ParseKind(c.Volume.Kind); err != nil {
		return err
	}
	if c.Volume.Overlay != "" {
		if _, err := ParseKind(c.Volume.Overlay); err != nil {
			return err
		}
	}
	if c.Volume.Size < 2 {
		return fmt.Errorf("volume size must be at least 2, got %d", c.Volume.Size)
	}
	if c.Volume.Spacing <= 0 {
		return fmt.Errorf("volume spacing must be positive, got %f", c.Volume.Spacing)
	}
	if _, err := coloring.LookupPalette(c.Volume.Palette); err != nil {
		return err
	}
	switch c.Volume.Storage {
	case "dense":
	case "block":
		if c.Volume.BlockSize <= 0 {
			return fmt.Errorf("block size must be positive, got %d", c.Volume.BlockSize)
		}
	default:
		return fmt.Errorf("unknown volume storage %q", c.Volume.Storage)
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", c.Output.Width, c.Output.Height)
	}
	if c.Output.Scale < 1 {
		return fmt.Errorf("output scale must be at least 1, got %d", c.Output.Scale)
	}
	if _, err := logging.ParseLevel(c.Output.Logging.Level); err != nil {
		return err
	}
	return nil
}

// FileConfig converts the logging section for logging.NewFileLogger.
func (l LogConfig) FileConfig() logging.FileConfig {
	return logging.FileConfig{
		Filename: l.Logfile,
		MaxSize:  l.MaxSize,
		MaxAge:   l.MaxAge,
		Level:    l.Level,
	}
}

// RenderOptions converts the render section to pipeline options.
func (c *Config) RenderOptions() (render.Options, error) {
	opts := render.DefaultOptions()
	var err error
	if opts.Masking, err = sampler.ParseMaskingPolicy(c.Render.Masking); err != nil {
		return opts, err
	}
	if opts.StepSource, err = render.ParseStepSource(c.Render.StepSource); err != nil {
		return opts, err
	}
	if opts.DisplayGroup, err = coloring.ParseDisplayGroup(c.Render.DisplayGroup); err != nil {
		return opts, err
	}
	opts.Identify = c.Render.Identify
	opts.Tab = c.Render.Tab
	if c.Render.AllStructuresScale > 0 {
		opts.AllStructuresScale = c.Render.AllStructuresScale
	}
	return opts, nil
}

// RenderView converts the view and montage sections to a view. center is
// used unless the configuration sets its own.
func (c *Config) RenderView(center r3.Vec) (render.View, error) {
	var view render.View
	var err error
	if view.Mode, err = render.ParseViewMode(c.View.Mode); err != nil {
		return view, err
	}
	if view.Axis, err = geometry.ParseAxis(c.View.Axis); err != nil {
		return view, err
	}

	switch len(c.View.Rotation) {
	case 0:
	case 3:
		x, y, z := c.View.Rotation[0], c.View.Rotation[1], c.View.Rotation[2]
		if x != 0 || y != 0 || z != 0 {
			view.Rotation = geometry.RotationFromEuler(x, y, z)
		}
	default:
		return view, fmt.Errorf("rotation needs 3 angles, got %d", len(c.View.Rotation))
	}

	switch len(c.View.Center) {
	case 0:
		view.Center = center
	case 3:
		view.Center = r3.Vec{X: c.View.Center[0], Y: c.View.Center[1], Z: c.View.Center[2]}
	default:
		return view, fmt.Errorf("center needs 3 coordinates, got %d", len(c.View.Center))
	}

	view.Zoom = c.View.Zoom
	view.Montage = render.Montage{
		Rows:    c.Montage.Rows,
		Columns: c.Montage.Columns,
		Spacing: c.Montage.Spacing,
	}
	return view, nil
}

// ParseKind converts a volume kind name to a value kind.
func ParseKind(s string) (models.ValueKind, error) {
	switch strings.ToLower(s) {
	case "scalar", "palette":
		return models.PaletteScalar, nil
	case "label":
		return models.LabelIndex, nil
	case "rgb":
		return models.RGB, nil
	case "rgba":
		return models.RGBA, nil
	}
	return 0, fmt.Errorf("unknown volume kind %q", s)
}
