// Package config loads and validates the scanparser configuration file.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/scanparser/internal/errors"
	"github.com/anstrom/scanparser/internal/logging"
	"github.com/anstrom/scanparser/internal/render"
	"github.com/anstrom/scanparser/internal/store"
)

// Output formats understood by the render section.
const (
	FormatHTML  = "html"
	FormatTable = "table"
)

const (
	configDirPerm  = 0o755
	configFilePerm = 0o644
)

// Config represents the complete scanparser configuration
type Config struct {
	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Service reference table
	Services ServicesConfig `yaml:"services" json:"services" mapstructure:"services"`

	// Relational store
	Store store.Config `yaml:"store" json:"store" mapstructure:"store"`

	// Output artifacts
	Render RenderConfig `yaml:"render" json:"render" mapstructure:"render"`

	// Run metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" mapstructure:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output" mapstructure:"output" validate:"required"`

	// Include source locations
	AddSource bool `yaml:"add_source" json:"add_source" mapstructure:"add_source"`
}

// ServicesConfig selects the port to service reference table.
type ServicesConfig struct {
	// File in nmap-services format; empty uses the built-in table
	File string `yaml:"file" json:"file" mapstructure:"file" validate:"omitempty,file"`
}

// RenderConfig holds output artifact settings
type RenderConfig struct {
	// Renderers to run (html, table)
	Formats []string `yaml:"formats" json:"formats" mapstructure:"formats" validate:"dive,oneof=html table"`

	// Directory for artifacts; empty places them next to the input
	OutputDir string `yaml:"output_dir" json:"output_dir" mapstructure:"output_dir"`

	// Chart file extension
	Extension string `yaml:"extension" json:"extension" mapstructure:"extension" validate:"omitempty,startswith=."`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	// Prometheus textfile written after each run; empty disables it
	Textfile string `yaml:"textfile" json:"textfile" mapstructure:"textfile"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	log := logging.DefaultConfig()
	return &Config{
		Logging: LoggingConfig{
			Level:     string(log.Level),
			Format:    string(log.Format),
			Output:    log.Output,
			AddSource: log.AddSource,
		},
		Store: store.DefaultConfig(),
		Render: RenderConfig{
			Formats:   []string{FormatHTML},
			Extension: render.DefaultExtension,
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// yaml.v3 also reads JSON documents.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their yaml names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate validates the configuration. The first offending field is
// reported as a CodeValidation error named by its yaml path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
	}

	first := fieldErrs[0]
	_, field, _ := strings.Cut(first.Namespace(), ".")
	invalid := errors.ErrConfigInvalid(field, first.Value())
	invalid.Cause = first
	return invalid
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     logging.LogLevel(c.Logging.Level),
		Format:    logging.LogFormat(c.Logging.Format),
		Output:    c.Logging.Output,
		AddSource: c.Logging.AddSource,
	}
}

// HasFormat reports whether the render section enables format.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.Render.Formats, format)
}
