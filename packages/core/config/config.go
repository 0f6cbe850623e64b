package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the postspec configuration
type Config struct {
	BaseURI         string            `json:"baseUri,omitempty" yaml:"baseUri,omitempty"`
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Output          string            `json:"output,omitempty" yaml:"output,omitempty"`   // console, json, junit, tap or xlsx
	OutputDir       string            `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	Parallel        *bool             `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	Concurrency     int               `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Bail            *bool             `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	RateLimit       float64           `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second
	TraceDB         string            `json:"traceDb,omitempty" yaml:"traceDb,omitempty"`     // sqlite file for request traces
	TraceBodies     *bool             `json:"traceBodies,omitempty" yaml:"traceBodies,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetParallel returns the parallel setting, defaulting to false
func (c *Config) GetParallel() bool {
	return getBool(c.Parallel, false)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetTraceBodies returns whether trace sinks store bodies, defaulting to true
func (c *Config) GetTraceBodies() bool {
	return getBool(c.TraceBodies, true)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".postspec.json",
	"postspec.json",
	".postspec.yaml",
	"postspec.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate rejects values no run can use.
func (c *Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative")
	case c.MaxRedirects < 0:
		return fmt.Errorf("maxRedirects must not be negative")
	case c.Concurrency < 0:
		return fmt.Errorf("concurrency must not be negative")
	case c.RateLimit < 0:
		return fmt.Errorf("rateLimit must not be negative")
	}

	switch c.Output {
	case "", "console", "json", "junit", "tap", "xlsx":
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURI != "" {
		result.BaseURI = other.BaseURI
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.OutputDir != "" {
		result.OutputDir = other.OutputDir
	}
	if other.Concurrency > 0 {
		result.Concurrency = other.Concurrency
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.TraceDB != "" {
		result.TraceDB = other.TraceDB
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Parallel != nil {
		result.Parallel = other.Parallel
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.TraceBodies != nil {
		result.TraceBodies = other.TraceBodies
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML when the path says so
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
