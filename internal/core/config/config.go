package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xlo-tools/xlo/internal/core/model"
)

const PackageFileName = "xlo-package.yml"
const EnvFileName = ".env"

const (
	DefaultConcurrency = 8
	DefaultTimeout     = "60s"
)

// PackageConfig is the content of xlo-package.yml. It is loaded once and not
// modified by the pipeline.
type PackageConfig struct {
	Host        string         `yaml:"host"`
	User        string         `yaml:"user"`
	Package     *PackageSpec   `yaml:"package,omitempty"`
	RunEnv      string         `yaml:"runEnv,omitempty"`
	Concurrency int            `yaml:"concurrency,omitempty"`
	Timeout     string         `yaml:"timeout,omitempty"`
	Publish     *PublishConfig `yaml:"publish,omitempty"`

	// Password is only ever read from the environment.
	Password string `yaml:"-"`
}

// PackageSpec selects the learning objects to export.
type PackageSpec struct {
	ProductType string         `yaml:"productType"`
	Contract    string         `yaml:"contract,omitempty"`
	Filter      map[string]any `yaml:"filter,omitempty"`
}

// PublishConfig points at an S3-compatible bucket that receives the ZIPs.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    bool   `yaml:"useSSL,omitempty"`
	AccessKey string `yaml:"accessKey,omitempty"`
	SecretKey string `yaml:"secretKey,omitempty"`
}

// Enabled reports whether a publish target is configured.
func (p *PublishConfig) Enabled() bool {
	return p != nil && strings.TrimSpace(p.Bucket) != ""
}

// ParsedTimeout returns the HTTP timeout, falling back to the default.
func (c *PackageConfig) ParsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// DefaultRunEnv returns the configured run environment, if any.
func (c *PackageConfig) DefaultRunEnv() (model.RunEnv, bool) {
	if strings.TrimSpace(c.RunEnv) == "" {
		return 0, false
	}
	env, err := model.ParseRunEnv(c.RunEnv)
	if err != nil {
		return 0, false
	}
	return env, true
}

// Read parses xlo-package.yml from dirPath and applies defaults. Nothing
// from the environment is merged, so the result is safe to write back.
func Read(dirPath string) (*PackageConfig, error) {
	fullPath := filepath.Join(dirPath, PackageFileName)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	cfg := &PackageConfig{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fullPath, err)
	}
	return cfg, nil
}

// Load reads xlo-package.yml from dirPath, overlays the optional .env file
// and validates the result.
func Load(dirPath string) (*PackageConfig, error) {
	cfg, err := Read(dirPath)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(dirPath, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv loads dirPath/.env (if any) without overriding variables already
// set in the process, then lets the environment fill in secrets.
func applyEnv(dirPath string, cfg *PackageConfig) error {
	envPath := filepath.Join(dirPath, EnvFileName)
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	cfg.Host = firstNonEmpty(strings.TrimSpace(os.Getenv("XLO_HOST")), cfg.Host)
	cfg.Password = os.Getenv("XLO_PASSWORD")
	if cfg.Publish != nil {
		cfg.Publish.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("XLO_S3_ACCESS_KEY")), cfg.Publish.AccessKey)
		cfg.Publish.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("XLO_S3_SECRET_KEY")), cfg.Publish.SecretKey)
	}
	return nil
}

// Validate checks a loaded config.
func Validate(cfg *PackageConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("config error: host is required")
	}
	if strings.TrimSpace(cfg.User) == "" {
		return fmt.Errorf("config error: user is required")
	}
	if cfg.Package != nil && strings.TrimSpace(cfg.Package.ProductType) == "" {
		return fmt.Errorf("config error: package.productType is required")
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("config error: concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if _, err := time.ParseDuration(cfg.Timeout); err != nil {
		return fmt.Errorf("config error: invalid timeout %q: %w", cfg.Timeout, err)
	}
	if cfg.RunEnv != "" {
		if _, err := model.ParseRunEnv(cfg.RunEnv); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if cfg.Publish != nil && cfg.Publish.Enabled() && strings.TrimSpace(cfg.Publish.Endpoint) == "" {
		return fmt.Errorf("config error: publish.bucket is set but publish.endpoint is empty")
	}
	return nil
}

// Write marshals cfg into dirPath/xlo-package.yml, overwriting any existing file.
func Write(dirPath string, cfg *PackageConfig) error {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	fullPath := filepath.Join(dirPath, PackageFileName)
	return os.WriteFile(fullPath, buf.Bytes(), 0644)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
