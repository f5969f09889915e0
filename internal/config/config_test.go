package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
api:
  server: https://icinga-master1.example:5665
  username: icingactl
  password: s3cret
  ca_file: /etc/icingactl/ca.crt
  timeout_sec: 45
checks:
  file: /etc/icingactl/checks.yaml
  concurrency: 4
  submit_rps: 10
`

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(ctx, path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.Server != "https://icinga-master1.example:5665" {
		t.Fatalf("unexpected server: %s", cfg.API.Server)
	}
	if cfg.API.TimeoutSec != 45 {
		t.Fatalf("unexpected timeout: %d", cfg.API.TimeoutSec)
	}
	if cfg.Checks.Concurrency != 4 {
		t.Fatalf("unexpected check concurrency: %d", cfg.Checks.Concurrency)
	}

	client := cfg.ClientConfig()
	if client.BaseURL != cfg.API.Server || client.CAFile != "/etc/icingactl/ca.crt" {
		t.Fatalf("unexpected client config: %+v", client)
	}
	if client.Timeout != 45*time.Second {
		t.Fatalf("unexpected client timeout: %s", client.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(envConfigPath, path)

	cfg, err := LoadFromEnv(ctx)
	if err != nil {
		t.Fatalf("LoadFromEnv returned error: %v", err)
	}

	if cfg.API.Username != "icingactl" {
		t.Fatalf("unexpected username: %s", cfg.API.Username)
	}
}
