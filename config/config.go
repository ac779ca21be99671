package config

import (
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/nvr-ai/go-blockseg/detector"
	"github.com/nvr-ai/go-blockseg/images"
	"github.com/nvr-ai/go-blockseg/layout"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = "blockseg.yaml"

// Config holds every block segmenter setting.
type Config struct {
	// Th is the Mask Refiner neighbourhood radius.
	Th int `yaml:"th"`
	// Overwrite removes pre-existing regions instead of keeping them.
	Overwrite bool `yaml:"overwrite"`
	// MinConfidence is the detection score threshold.
	MinConfidence float32 `yaml:"min_confidence"`
	// MaxRefineIterations caps the Mask Refiner scans.
	MaxRefineIterations int `yaml:"max_refine_iterations"`
	// MaxDilationRounds is the Polygon Extractor round budget.
	MaxDilationRounds int `yaml:"max_dilation_rounds"`
	// Workers is the number of pages processed in parallel.
	Workers int `yaml:"workers"`
	// ParagraphLeftNudge and ParagraphRightNudge are the reading-order margin
	// corrections for paragraphs.
	ParagraphLeftNudge  int `yaml:"paragraph_left_nudge"`
	ParagraphRightNudge int `yaml:"paragraph_right_nudge"`
}

// Default returns the built-in settings.
func Default() *Config {
	lc := layout.DefaultConfig()
	return &Config{
		Th:                  lc.Th,
		MinConfidence:       detector.DefaultMinConfidence,
		MaxRefineIterations: lc.MaxRefineIterations,
		MaxDilationRounds:   images.DefaultMaxDilationRounds,
		Workers:             runtime.NumCPU(),
		ParagraphLeftNudge:  lc.Nudge.Left,
		ParagraphRightNudge: lc.Nudge.Right,
	}
}

// LoadFile reads a YAML file on top of the defaults. Keys missing from the
// file keep their default value. If the file does not exist, it returns
// ErrConfigNotFound.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Load builds the effective configuration.
//
// The YAML file at path is optional when path is empty: DefaultConfigFile is
// used if it exists in the working directory. An explicit path that does not
// exist is an error. envFile, when non-empty, names a .env file whose
// variables are loaded into the environment (existing variables win) before
// the BLOCKSEG_* overrides are applied.
//
// Arguments:
//   - path: YAML configuration file, or "".
//   - envFile: .env file, or "".
//
// Returns:
//   - *Config: The validated configuration.
//   - error: ErrConfigNotFound, a parse error, or a wrapped ErrInvalidConfig.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	switch {
	case path != "":
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		loaded, err := LoadFile(DefaultConfigFile)
		if err == nil {
			cfg = loaded
		} else if !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "loading %s", envFile)
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from BLOCKSEG_* environment variables. Values
// that do not parse are ignored.
func (c *Config) ApplyEnv() {
	c.Th = getEnvAsInt("BLOCKSEG_TH", c.Th)
	c.Overwrite = getEnvAsBool("BLOCKSEG_OVERWRITE", c.Overwrite)
	c.MinConfidence = getEnvAsFloat32("BLOCKSEG_MIN_CONFIDENCE", c.MinConfidence)
	c.MaxRefineIterations = getEnvAsInt("BLOCKSEG_MAX_REFINE_ITERATIONS", c.MaxRefineIterations)
	c.MaxDilationRounds = getEnvAsInt("BLOCKSEG_MAX_DILATION_ROUNDS", c.MaxDilationRounds)
	c.Workers = getEnvAsInt("BLOCKSEG_WORKERS", c.Workers)
	c.ParagraphLeftNudge = getEnvAsInt("BLOCKSEG_PARAGRAPH_LEFT_NUDGE", c.ParagraphLeftNudge)
	c.ParagraphRightNudge = getEnvAsInt("BLOCKSEG_PARAGRAPH_RIGHT_NUDGE", c.ParagraphRightNudge)
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch {
	case c.Th < 1:
		return errors.Wrapf(ErrInvalidConfig, "th must be >= 1, got %d", c.Th)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return errors.Wrapf(ErrInvalidConfig, "min_confidence must be in [0, 1], got %v", c.MinConfidence)
	case c.MaxRefineIterations < 1:
		return errors.Wrapf(ErrInvalidConfig, "max_refine_iterations must be >= 1, got %d", c.MaxRefineIterations)
	case c.MaxDilationRounds < 1:
		return errors.Wrapf(ErrInvalidConfig, "max_dilation_rounds must be >= 1, got %d", c.MaxDilationRounds)
	case c.Workers < 1:
		return errors.Wrapf(ErrInvalidConfig, "workers must be >= 1, got %d", c.Workers)
	case c.ParagraphLeftNudge < 0 || c.ParagraphRightNudge < 0:
		return errors.Wrap(ErrInvalidConfig, "paragraph nudges must be non-negative")
	}
	return nil
}

// Layout returns the resolver settings.
func (c *Config) Layout() layout.Config {
	return layout.Config{
		Th:                  c.Th,
		MaxRefineIterations: c.MaxRefineIterations,
		MaxDilationRounds:   c.MaxDilationRounds,
		Overwrite:           c.Overwrite,
		Nudge:               layout.MarginNudge{Left: c.ParagraphLeftNudge, Right: c.ParagraphRightNudge},
	}
}
