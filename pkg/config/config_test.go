package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
server:
  port: 8080
session:
  ttl: 1h
  redis:
    host: localhost
    port: 6379
scoring:
  engine: local
  default_deadline: 5s
audit:
  backend: clickhouse
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scoring.Engine != "local" {
		t.Fatalf("unexpected engine: %s", cfg.Scoring.Engine)
	}
	if cfg.Scoring.DefaultDeadline != 5*time.Second {
		t.Fatalf("unexpected deadline: %v", cfg.Scoring.DefaultDeadline)
	}
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	body := minimalYAML + "\n"
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Scoring.Engine = "quantum"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for unknown engine")
	}
}

func TestLoadRequiresModelURLForHTTPEngine(t *testing.T) {
	body := minimalYAML
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Scoring.Engine = "http"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error without model_service_url")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("AUDIT_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if cfg.Audit.Backend != "kafka" {
		t.Fatalf("env override not applied: %s", cfg.Audit.Backend)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("broker override not applied: %v", cfg.Kafka.Brokers)
	}
}

func TestLoadWithEnvRejectsInvalidOverride(t *testing.T) {
	t.Setenv("AUDIT_BACKEND", "carrier-pigeon")

	if _, err := LoadWithEnv(writeConfig(t, minimalYAML)); err == nil {
		t.Fatalf("expected validation error for invalid backend override")
	}
}
