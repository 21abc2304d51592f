// Package config provides configuration management for the leapseq CLI.
package config

import "github.com/leapstack-labs/leapseq/pkg/seq"

// Config holds all CLI configuration options.
type Config struct {
	MarkerPolicy  seq.MarkerPolicy `koanf:"marker_policy"`
	MaxIterations int64            `koanf:"max_iterations"`
	OutputFormat  string           `koanf:"output"`
	Pretty        bool             `koanf:"pretty"`
	Verbose       bool             `koanf:"verbose"`
	LogLevel      string           `koanf:"log_level"`
	Workers       int              `koanf:"workers"`
	Markdown      MarkdownConfig   `koanf:"markdown"`

	// ProjectRoot is the directory holding the config file, or the working
	// directory when none was found.
	ProjectRoot string `koanf:"-"`
}

// MarkdownConfig holds settings for templates embedded in markdown files.
type MarkdownConfig struct {
	Lang string `koanf:"lang"`
}

// Default configuration values
const (
	DefaultPolicy        = "first"
	DefaultMaxIterations = 100000
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel      = "warn"
	DefaultMarkdownLang  = "seq"
	DefaultWorkers       = 4
)

// Default returns the configuration used when nothing was loaded.
func Default() *Config {
	return &Config{
		MarkerPolicy:  seq.PolicyFirst,
		MaxIterations: DefaultMaxIterations,
		OutputFormat:  DefaultOutput,
		LogLevel:      DefaultLogLevel,
		Workers:       DefaultWorkers,
		Markdown:      MarkdownConfig{Lang: DefaultMarkdownLang},
	}
}

// EngineConfig returns the expansion engine settings.
func (c *Config) EngineConfig() seq.Config {
	return seq.Config{
		Policy:        c.MarkerPolicy,
		MaxIterations: c.MaxIterations,
	}
}
