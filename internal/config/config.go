package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veldtix/icingactl/pkg/icinga2"
)

const (
	envConfigPath     = "ICINGACTL_CONFIG"
	DefaultConfigPath = "/etc/icingactl/config.yaml"
)

type Config struct {
	API    APIConfig    `yaml:"api"`
	Checks ChecksConfig `yaml:"checks"`
}

type APIConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
	// TimeoutSec bounds each request, in seconds.
	TimeoutSec int `yaml:"timeout_sec"`
}

type ChecksConfig struct {
	File        string  `yaml:"file"`
	Concurrency int     `yaml:"concurrency"`
	SubmitRPS   float64 `yaml:"submit_rps"`
}

// ClientConfig maps the api section onto the client configuration.
func (c Config) ClientConfig() icinga2.Config {
	return icinga2.Config{
		BaseURL:  c.API.Server,
		Username: c.API.Username,
		Password: c.API.Password,
		CertFile: c.API.CertFile,
		KeyFile:  c.API.KeyFile,
		CAFile:   c.API.CAFile,
		Timeout:  time.Duration(c.API.TimeoutSec) * time.Second,
	}
}

func Load(ctx context.Context, path string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, nil
}

func LoadFromEnv(ctx context.Context) (Config, error) {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = DefaultConfigPath
	}
	return Load(ctx, path)
}

// EnvPath returns the configured config path override, or the default.
func EnvPath() string {
	if path := os.Getenv(envConfigPath); path != "" {
		return path
	}
	return DefaultConfigPath
}
