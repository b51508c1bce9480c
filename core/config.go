package core

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries the engine's runtime settings. The embedding layer may
// populate it directly, or load it from a YAML file with environment
// overrides via LoadConfig.
type Config struct {
	// OutputDir is the durable, user-visible location cleaned files are
	// written to. It must be distinct from the working area.
	OutputDir string `yaml:"output_dir" env:"REDACT_OUTPUT_DIR" env-required:"true"`

	// WorkDir is the private working area for intermediate remux buffers.
	// Every intermediate placed here is securely erased before the
	// coordinator advances to the next item.
	WorkDir string `yaml:"work_dir" env:"REDACT_WORK_DIR" env-required:"true"`

	// ErasePasses is the number of overwrite passes the secure eraser
	// performs before deleting an intermediate artifact.
	ErasePasses int `yaml:"erase_passes" env:"REDACT_ERASE_PASSES" env-default:"1"`
}

// LoadConfig reads a YAML configuration file into a Config, applying
// environment variable overrides and defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the directory settings and creates missing directories.
func (c *Config) Validate() error {
	if c.OutputDir == "" || c.WorkDir == "" {
		return fmt.Errorf("output_dir and work_dir must both be set")
	}
	if c.OutputDir == c.WorkDir {
		return fmt.Errorf("output_dir and work_dir must be distinct")
	}
	if c.ErasePasses < 1 {
		c.ErasePasses = 1
	}
	for _, dir := range []string{c.OutputDir, c.WorkDir} {
		info, err := os.Stat(dir)
		switch {
		case err == nil:
			if !info.IsDir() {
				return fmt.Errorf("'%s' is not a directory", dir)
			}
		case os.IsNotExist(err):
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("could not create directory '%s': %w", dir, err)
			}
		default:
			return fmt.Errorf("directory '%s' could not be accessed: %w", dir, err)
		}
	}
	return nil
}
