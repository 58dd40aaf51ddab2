// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/cdn"
	"github.com/titlepack/titlepack/lib/title"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "TITLEPACK_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete titlepack configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Listen    ListenConfig    `yaml:"listen"`
	CDN       CDNConfig       `yaml:"cdn"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Per-environment overrides, applied after the base values.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment may override. Only
// non-zero fields replace base values, except booleans, which always
// apply when their section is present.
type Overrides struct {
	Listen    *ListenConfig    `yaml:"listen,omitempty"`
	CDN       *CDNConfig       `yaml:"cdn,omitempty"`
	Archive   *ArchiveConfig   `yaml:"archive,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// ListenConfig configures the relay's HTTP listener.
type ListenConfig struct {
	// Address is the TCP listen address. Default: 127.0.0.1:8080
	Address string `yaml:"address"`

	// AllowOrigin is sent as Access-Control-Allow-Origin. Default: *
	AllowOrigin string `yaml:"allow_origin"`

	// ReadHeaderTimeout bounds how long a client may take to send
	// request headers. Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// ShutdownTimeout bounds graceful shutdown. In-flight downloads
	// still running when it expires are cut off. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CDNConfig configures the content source.
type CDNConfig struct {
	// BaseURL is prefixed to every CDN path.
	BaseURL string `yaml:"base_url"`

	// InsecureSkipVerify disables TLS certificate verification. The
	// public CDN has historically served certificates that fail
	// verification, so development defaults to true.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// UserAgent is sent on every CDN request.
	UserAgent string `yaml:"user_agent"`

	// Timeout bounds the wait for CDN response headers. Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRecordSize bounds metadata and ticket fetches in bytes.
	MaxRecordSize int64 `yaml:"max_record_size"`
}

// ArchiveConfig configures archive output.
type ArchiveConfig struct {
	// DefaultFormat is used when a request names none: zip, tar,
	// tar.zst, or tar.lz4. Default: zip
	DefaultFormat string `yaml:"default_format"`

	// ZipMethod is store or deflate. Default: store
	ZipMethod string `yaml:"zip_method"`
}

// DecoderConfig configures record decoding.
type DecoderConfig struct {
	// Layout is the metadata record layout: default, ctr, or wii.
	Layout string `yaml:"layout"`
}

// RateLimitConfig configures per-client request limiting in the relay.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client address. Zero
	// disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests a client may make at once.
	Burst int `yaml:"burst"`

	// IdleTTL is how long an idle client's limiter is kept.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// Default returns the configuration used before a file is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Listen: ListenConfig{
			Address:           "127.0.0.1:8080",
			AllowOrigin:       "*",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		CDN: CDNConfig{
			BaseURL:            cdn.DefaultBaseURL,
			InsecureSkipVerify: true,
			UserAgent:          cdn.DefaultUserAgent,
			Timeout:            30 * time.Second,
			MaxRecordSize:      cdn.DefaultMaxRecordSize,
		},
		Archive: ArchiveConfig{
			DefaultFormat: archive.FormatZip.String(),
			ZipMethod:     archive.ZipStore.String(),
		},
		Decoder: DecoderConfig{
			Layout: "default",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             10,
			IdleTTL:           10 * time.Minute,
		},
	}
}

// Load loads the file named by TITLEPACK_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your titlepack.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// Resolve picks the configuration for a command: the --config flag
// value when set, then TITLEPACK_CONFIG, then Default. The returned
// source names where the configuration came from, for logging.
func Resolve(flagPath string) (cfg *Config, source string, err error) {
	switch {
	case flagPath != "":
		cfg, err = LoadFile(flagPath)
		source = flagPath
	case os.Getenv(EnvironmentVariable) != "":
		cfg, err = Load()
		source = os.Getenv(EnvironmentVariable)
	default:
		cfg, source = Default(), "defaults"
	}
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration from %s: %w", source, err)
	}
	return cfg, source, nil
}

// LoadFile loads configuration from path on top of Default, then
// applies environment overrides and variable expansion. It does not
// validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc", ".json":
		// JSON is valid YAML, so the yaml tags serve both syntaxes.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{
				CDN: &CDNConfig{InsecureSkipVerify: false},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Listen != nil {
		override := overrides.Listen
		if override.Address != "" {
			c.Listen.Address = override.Address
		}
		if override.AllowOrigin != "" {
			c.Listen.AllowOrigin = override.AllowOrigin
		}
		if override.ReadHeaderTimeout != 0 {
			c.Listen.ReadHeaderTimeout = override.ReadHeaderTimeout
		}
		if override.ShutdownTimeout != 0 {
			c.Listen.ShutdownTimeout = override.ShutdownTimeout
		}
	}

	if overrides.CDN != nil {
		override := overrides.CDN
		if override.BaseURL != "" {
			c.CDN.BaseURL = override.BaseURL
		}
		c.CDN.InsecureSkipVerify = override.InsecureSkipVerify
		if override.UserAgent != "" {
			c.CDN.UserAgent = override.UserAgent
		}
		if override.Timeout != 0 {
			c.CDN.Timeout = override.Timeout
		}
		if override.MaxRecordSize != 0 {
			c.CDN.MaxRecordSize = override.MaxRecordSize
		}
	}

	if overrides.Archive != nil {
		if overrides.Archive.DefaultFormat != "" {
			c.Archive.DefaultFormat = overrides.Archive.DefaultFormat
		}
		if overrides.Archive.ZipMethod != "" {
			c.Archive.ZipMethod = overrides.Archive.ZipMethod
		}
	}

	if overrides.RateLimit != nil {
		override := overrides.RateLimit
		if override.RequestsPerSecond != 0 {
			c.RateLimit.RequestsPerSecond = override.RequestsPerSecond
		}
		if override.Burst != 0 {
			c.RateLimit.Burst = override.Burst
		}
		if override.IdleTTL != 0 {
			c.RateLimit.IdleTTL = override.IdleTTL
		}
	}
}

func (c *Config) expandVariables() {
	c.Listen.Address = expandVars(c.Listen.Address, nil)
	c.CDN.BaseURL = expandVars(c.CDN.BaseURL, nil)
	c.CDN.UserAgent = expandVars(c.CDN.UserAgent, nil)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, looking in vars first
// and then the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Listen.Address == "" {
		errs = append(errs, errors.New("listen.address is required"))
	}
	if c.Listen.ReadHeaderTimeout < 0 || c.Listen.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("listen timeouts must not be negative"))
	}

	if parsed, err := url.Parse(c.CDN.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("cdn.base_url: %w", err))
	} else if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("cdn.base_url must be an absolute http or https URL, got %q", c.CDN.BaseURL))
	}
	if c.CDN.Timeout < 0 {
		errs = append(errs, errors.New("cdn.timeout must not be negative"))
	}
	if c.CDN.MaxRecordSize < 0 {
		errs = append(errs, errors.New("cdn.max_record_size must not be negative"))
	}

	if _, err := archive.ParseFormat(c.Archive.DefaultFormat); err != nil {
		errs = append(errs, fmt.Errorf("archive.default_format: %w", err))
	}
	if _, err := archive.ParseZipMethod(c.Archive.ZipMethod); err != nil {
		errs = append(errs, fmt.Errorf("archive.zip_method: %w", err))
	}

	if _, err := title.ParseLayout(c.Decoder.Layout); err != nil {
		errs = append(errs, fmt.Errorf("decoder.layout: %w", err))
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_second must not be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1 when limiting is enabled"))
	}
	if c.RateLimit.IdleTTL < 0 {
		errs = append(errs, errors.New("rate_limit.idle_ttl must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CDNClientConfig returns the cdn.Config for this configuration.
func (c *Config) CDNClientConfig(logger *slog.Logger) cdn.Config {
	return cdn.Config{
		BaseURL:               c.CDN.BaseURL,
		InsecureSkipVerify:    c.CDN.InsecureSkipVerify,
		ResponseHeaderTimeout: c.CDN.Timeout,
		UserAgent:             c.CDN.UserAgent,
		MaxRecordSize:         c.CDN.MaxRecordSize,
		Logger:                logger,
	}
}

// ArchiveFormat returns the parsed default archive format.
func (c *Config) ArchiveFormat() (archive.Format, error) {
	return archive.ParseFormat(c.Archive.DefaultFormat)
}

// ZipMethod returns the parsed zip method.
func (c *Config) ZipMethod() (archive.ZipMethod, error) {
	return archive.ParseZipMethod(c.Archive.ZipMethod)
}

// Layout returns the parsed metadata record layout.
func (c *Config) Layout() (title.Layout, error) {
	return title.ParseLayout(c.Decoder.Layout)
}
