// Package config provides configuration loading and management for compressbench.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Methods lists the codec identifiers to benchmark, in plotting order
	Methods []string `yaml:"methods"`

	// Ratios are the requested compression ratios, in sweep order
	Ratios []float64 `yaml:"ratios"`

	// PatchSize is the tile size of the patched codecs. A single integer
	// means a square patch.
	PatchSize Pair `yaml:"patchSize"`

	// Metrics lists the metric identifiers computed for every reconstruction
	Metrics []string `yaml:"metrics"`

	// SummaryReducers reduce per-image values to one scalar per ratio
	SummaryReducers []string `yaml:"summaryReducers"`

	// Dataset input parameters
	Dataset struct {
		// Dir is the dataset root, either flat or one subdirectory per label
		Dir string `yaml:"dir"`

		// Size resizes every image on load; zero keeps the original size
		Size Pair `yaml:"size"`

		// Limit caps the number of images; zero means all
		Limit int `yaml:"limit"`

		// Grayscale loads single-channel images
		Grayscale bool `yaml:"grayscale"`
	} `yaml:"dataset"`

	// Processing parameters
	Processing struct {
		// Workers is the number of images processed concurrently
		Workers int `yaml:"workers"`

		// Bitrate enables the bits-per-pixel estimate of every payload
		Bitrate bool `yaml:"bitrate"`
	} `yaml:"processing"`

	// Rescale codec parameters
	Rescale struct {
		// Interpolation is one of nearest, bilinear, bicubic, mitchell, lanczos2, lanczos3
		Interpolation string `yaml:"interpolation"`
	} `yaml:"rescale"`

	// Plot parameters
	Plot PlotConfig `yaml:"plot"`

	// Output parameters
	Output struct {
		// Dir receives results, summaries and figures
		Dir string `yaml:"dir"`

		// TaskName prefixes every output file
		TaskName string `yaml:"taskName"`

		// SaveReconstructions writes the reconstructions of the first image
		SaveReconstructions bool `yaml:"saveReconstructions"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Preprocess configures the classifier-facing compression wrapper
	Preprocess struct {
		OriginalSize Pair   `yaml:"originalSize"`
		NewSize      Sizes  `yaml:"newSize"`
		Domain       string `yaml:"domain"`
		Seed         int64  `yaml:"seed"`
	} `yaml:"preprocess"`
}

// PlotConfig describes the comparison figures
type PlotConfig struct {
	// Axis selects the x values: "ratio" for achieved ratio, "bpp" for bits per pixel
	Axis string `yaml:"axis"`

	// GridStart, GridStop and GridNum define the shared x axis
	GridStart float64 `yaml:"gridStart"`
	GridStop  float64 `yaml:"gridStop"`
	GridNum   int     `yaml:"gridNum"`

	Title  string `yaml:"title"`
	XLabel string `yaml:"xLabel"`

	// XLim and YLim fix the axis ranges when both bounds are set
	XLim []float64 `yaml:"xLim,omitempty"`
	YLim []float64 `yaml:"yLim,omitempty"`

	// Width and Height of the figure in inches
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Methods = []string{"rescale", "dct", "patch_dct", "svd", "patch_svd"}
	cfg.Ratios = []float64{1.25}
	for r := 2.0; r < 20; r++ {
		cfg.Ratios = append(cfg.Ratios, r)
	}
	cfg.PatchSize = Pair{H: 8, W: 8}
	cfg.Metrics = []string{"psnr", "ssim"}
	cfg.SummaryReducers = []string{"mean"}

	cfg.Dataset.Dir = "datasets"

	cfg.Processing.Workers = 1
	cfg.Processing.Bitrate = true

	cfg.Rescale.Interpolation = "bilinear"

	cfg.Plot.Axis = "ratio"
	cfg.Plot.GridStart = 1
	cfg.Plot.GridStop = 20
	cfg.Plot.GridNum = 50
	cfg.Plot.Title = "Comparison of Different Compression Methods"
	cfg.Plot.Width = 6
	cfg.Plot.Height = 4.5

	cfg.Output.Dir = "results"
	cfg.Output.TaskName = "compression_comparison"
	cfg.Output.Verbose = true

	cfg.Preprocess.OriginalSize = Pair{H: 224, W: 224}
	cfg.Preprocess.Domain = "decompressed"

	return cfg
}

// Validate reports configuration values that no sweep can run with
func (c *Config) Validate() error {
	if len(c.Methods) == 0 {
		return errors.New("config: no methods configured")
	}
	if len(c.Ratios) == 0 {
		return errors.New("config: no ratios configured")
	}
	for _, r := range c.Ratios {
		if !(r > 0) {
			return errors.Errorf("config: ratio %v must be positive", r)
		}
	}
	if c.PatchSize.H <= 0 || c.PatchSize.W <= 0 {
		return errors.Errorf("config: invalid patch size %v", c.PatchSize)
	}
	if len(c.Metrics) == 0 {
		return errors.New("config: no metrics configured")
	}
	if c.Processing.Workers < 0 {
		return errors.Errorf("config: negative worker count %d", c.Processing.Workers)
	}
	switch c.Plot.Axis {
	case "ratio", "bpp":
	default:
		return errors.Errorf("config: unknown plot axis %q", c.Plot.Axis)
	}
	if c.Plot.Axis == "bpp" && !c.Processing.Bitrate {
		return errors.New("config: plotting against bpp requires processing.bitrate")
	}
	if c.Plot.GridNum < 1 {
		return errors.Errorf("config: grid needs at least one point, got %d", c.Plot.GridNum)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
