// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/titlepack/titlepack/lib/archive"
	"github.com/titlepack/titlepack/lib/cdn"
	"github.com/titlepack/titlepack/lib/title"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.CDN.BaseURL != cdn.DefaultBaseURL {
		t.Errorf("expected base_url=%s, got %s", cdn.DefaultBaseURL, cfg.CDN.BaseURL)
	}
	if !cfg.CDN.InsecureSkipVerify {
		t.Error("expected insecure_skip_verify=true for development")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_RequiresTitlepackConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TITLEPACK_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "TITLEPACK_CONFIG environment variable not set") {
		t.Errorf("unexpected error message %q", err.Error())
	}
}

func TestLoad_WithTitlepackConfig(t *testing.T) {
	path := writeConfig(t, "titlepack.yaml", `
environment: staging
listen:
  address: 0.0.0.0:9000
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Listen.Address != "0.0.0.0:9000" {
		t.Errorf("expected address=0.0.0.0:9000, got %s", cfg.Listen.Address)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "titlepack.yaml", `
environment: staging

listen:
  address: 127.0.0.1:7070
  allow_origin: https://example.test
  shutdown_timeout: 5s

cdn:
  base_url: https://mirror.example.test/ccs/download/
  insecure_skip_verify: false
  timeout: 1m30s
  max_record_size: 1048576

archive:
  default_format: tar.zst
  zip_method: deflate

decoder:
  layout: ctr

rate_limit:
  requests_per_second: 0.5
  burst: 3
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Listen.AllowOrigin != "https://example.test" || cfg.Listen.ShutdownTimeout != 5*time.Second {
		t.Errorf("listen = %+v", cfg.Listen)
	}
	// Unset fields keep their defaults.
	if cfg.Listen.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("expected default read_header_timeout, got %s", cfg.Listen.ReadHeaderTimeout)
	}
	if cfg.CDN.Timeout != 90*time.Second || cfg.CDN.InsecureSkipVerify || cfg.CDN.MaxRecordSize != 1<<20 {
		t.Errorf("cdn = %+v", cfg.CDN)
	}
	if format, _ := cfg.ArchiveFormat(); format != archive.FormatTarZstd {
		t.Errorf("expected tar.zst, got %s", format)
	}
	if method, _ := cfg.ZipMethod(); method != archive.ZipDeflate {
		t.Errorf("expected deflate, got %s", method)
	}
	if layout, _ := cfg.Layout(); layout != title.CTRLayout {
		t.Errorf("expected ctr layout, got %+v", layout)
	}
	if cfg.RateLimit.RequestsPerSecond != 0.5 || cfg.RateLimit.Burst != 3 || cfg.RateLimit.IdleTTL != 10*time.Minute {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}

	clientConfig := cfg.CDNClientConfig(nil)
	if clientConfig.BaseURL != cfg.CDN.BaseURL || clientConfig.ResponseHeaderTimeout != 90*time.Second {
		t.Errorf("CDNClientConfig = %+v", clientConfig)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	path := writeConfig(t, "titlepack.jsonc", `{
  // Comments and trailing commas are allowed.
  "environment": "development",
  "cdn": {
    "base_url": "http://127.0.0.1:9999/", /* local mirror */
    "timeout": "2s",
  },
  "archive": {"default_format": "tar.lz4"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CDN.BaseURL != "http://127.0.0.1:9999/" || cfg.CDN.Timeout != 2*time.Second {
		t.Errorf("cdn = %+v", cfg.CDN)
	}
	if cfg.Archive.DefaultFormat != "tar.lz4" {
		t.Errorf("expected tar.lz4, got %s", cfg.Archive.DefaultFormat)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	path := writeConfig(t, "broken.yaml", "listen: [unterminated\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "titlepack.yaml", `
environment: production

cdn:
  base_url: https://dev.example.test/
  insecure_skip_verify: true

rate_limit:
  requests_per_second: 5

production:
  cdn:
    base_url: https://prod.example.test/
    insecure_skip_verify: false
  rate_limit:
    requests_per_second: 1
  archive:
    zip_method: deflate
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CDN.BaseURL != "https://prod.example.test/" {
		t.Errorf("expected production base_url, got %s", cfg.CDN.BaseURL)
	}
	if cfg.CDN.InsecureSkipVerify {
		t.Error("expected insecure_skip_verify=false from production override")
	}
	if cfg.RateLimit.RequestsPerSecond != 1 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}
	if cfg.Archive.ZipMethod != "deflate" {
		t.Errorf("expected zip_method=deflate, got %s", cfg.Archive.ZipMethod)
	}
}

func TestProductionDefaultOverride(t *testing.T) {
	path := writeConfig(t, "titlepack.yaml", "environment: production\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.CDN.InsecureSkipVerify {
		t.Error("production without overrides should verify TLS")
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("TITLEPACK_CDN_BASE_URL", "https://env.example.test/")
	t.Setenv("TITLEPACK_ENVIRONMENT", "staging")

	path := writeConfig(t, "titlepack.yaml", `
environment: development
cdn:
  base_url: https://file.example.test/
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Environment != Development {
		t.Errorf("expected environment=development from file, got %s", cfg.Environment)
	}
	if cfg.CDN.BaseURL != "https://file.example.test/" {
		t.Errorf("expected base_url from file, got %s", cfg.CDN.BaseURL)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("TITLEPACK_TEST_PORT", "9443")
	path := writeConfig(t, "titlepack.yaml", `
listen:
  address: 0.0.0.0:${TITLEPACK_TEST_PORT}
cdn:
  user_agent: titlepack/${TITLEPACK_TEST_UNSET:-dev}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Listen.Address != "0.0.0.0:9443" {
		t.Errorf("address = %s", cfg.Listen.Address)
	}
	if cfg.CDN.UserAgent != "titlepack/dev" {
		t.Errorf("user_agent = %s", cfg.CDN.UserAgent)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{"${HOST}:8080", map[string]string{"HOST": "relay"}, "relay:8080"},
		{"${MISSING_TITLEPACK_VAR:-default}", map[string]string{}, "default"},
		{"${PRESENT:-default}", map[string]string{"PRESENT": "value"}, "value"},
		{"${A}/${B}", map[string]string{"A": "first", "B": "second"}, "first/second"},
		{"no variables here", map[string]string{}, "no variables here"},
	}
	for _, tt := range tests {
		if result := expandVars(tt.input, tt.vars); result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	cfg, source, err := Resolve("")
	if err != nil || source != "defaults" || cfg.Environment != Development {
		t.Fatalf("Resolve() = %v, %q, %v", cfg, source, err)
	}

	fromEnv := writeConfig(t, "env.yaml", "environment: staging\n")
	t.Setenv(EnvironmentVariable, fromEnv)
	cfg, source, err = Resolve("")
	if err != nil || source != fromEnv || cfg.Environment != Staging {
		t.Fatalf("Resolve() with env = %v, %q, %v", cfg, source, err)
	}

	fromFlag := writeConfig(t, "flag.yaml", "environment: production\n")
	cfg, source, err = Resolve(fromFlag)
	if err != nil || source != fromFlag || cfg.Environment != Production {
		t.Fatalf("Resolve(flag) = %v, %q, %v", cfg, source, err)
	}

	invalid := writeConfig(t, "invalid.yaml", "archive:\n  default_format: rar\n")
	if _, _, err := Resolve(invalid); err == nil || !strings.Contains(err.Error(), "archive.default_format") {
		t.Errorf("Resolve(invalid) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"invalid environment", func(c *Config) { c.Environment = "invalid" }, true},
		{"empty listen address", func(c *Config) { c.Listen.Address = "" }, true},
		{"relative base url", func(c *Config) { c.CDN.BaseURL = "/ccs/download" }, true},
		{"ftp base url", func(c *Config) { c.CDN.BaseURL = "ftp://cdn.example.test/" }, true},
		{"negative timeout", func(c *Config) { c.CDN.Timeout = -time.Second }, true},
		{"unknown format", func(c *Config) { c.Archive.DefaultFormat = "7z" }, true},
		{"unknown zip method", func(c *Config) { c.Archive.ZipMethod = "lzma" }, true},
		{"unknown layout", func(c *Config) { c.Decoder.Layout = "psp" }, true},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, true},
		{"limiting disabled", func(c *Config) { c.RateLimit.RequestsPerSecond, c.RateLimit.Burst = 0, 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
