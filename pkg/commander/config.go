package commander

import (
	"io/ioutil"
	"time"
	"unicode/utf8"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/process"

	"gopkg.in/yaml.v3"
)

// Config represents the generator configuration file structure
type Config struct {
	Input    InputConfig   `yaml:"input"`
	Output   OutputConfig  `yaml:"output"`
	Process  ProcessConfig `yaml:"process"`
	LogLevel string        `yaml:"log_level,omitempty"`
}

// InputConfig configures the command row source
type InputConfig struct {
	Delimiter string `yaml:"delimiter,omitempty"`
}

// OutputConfig configures the audit record sink
type OutputConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ProcessConfig configures the process lifecycle manager
type ProcessConfig struct {
	GraceWindow time.Duration `yaml:"grace_window,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{}
	setConfigDefaults(config)
	return config
}

// LoadConfigFromFile loads generator configuration from a YAML file
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewInputFormatError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setConfigDefaults(config *Config) {
	if config.Input.Delimiter == "" {
		config.Input.Delimiter = ","
	}
	if config.Output.Path == "" {
		config.Output.Path = "log.csv"
	}
	if config.Process.GraceWindow == 0 {
		config.Process.GraceWindow = process.DefaultGraceWindow
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

// ValidateConfig validates the configuration structure
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewInputFormatError("configuration cannot be nil", nil)
	}
	if utf8.RuneCountInString(config.Input.Delimiter) != 1 {
		return errors.NewInputFormatError("input delimiter must be a single character", nil).
			WithContext("delimiter", config.Input.Delimiter)
	}
	if config.Process.GraceWindow < 0 {
		return errors.NewInputFormatError("grace window cannot be negative", nil)
	}
	return nil
}

// DelimiterRune returns the configured input delimiter as a rune
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Input.Delimiter)
	return r
}
