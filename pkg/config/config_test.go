package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
environment: test
server:
  port: 8080
models:
  specific_dir: /var/models/specific
  general_dir: /var/models/general
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if c.Models.CacheSize != 10 {
		t.Errorf("CacheSize = %d, want default 10", c.Models.CacheSize)
	}
	if c.Predict.ResultCacheTTL != 30*time.Second {
		t.Errorf("ResultCacheTTL = %v, want 30s", c.Predict.ResultCacheTTL)
	}
	if c.Logging.Level != "info" || c.Logging.Format != "console" {
		t.Errorf("Logging = %+v, want info/console defaults", c.Logging)
	}
	if c.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", c.Metrics.Path)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing environment", `
models:
  specific_dir: /m
`},
		{"no model dirs", `
environment: test
`},
		{"feed without api key", `
environment: test
models:
  specific_dir: /m
backend:
  type: kafka
feed:
  enabled: true
  symbols: [AAPL]
`},
		{"feed with bad backend", `
environment: test
models:
  specific_dir: /m
backend:
  type: postgres
feed:
  enabled: true
  api_key: k
  symbols: [AAPL]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load succeeded, want validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MODELS_SPECIFIC_DIR", "/override/specific")
	t.Setenv("MODEL_CACHE_SIZE", "25")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadWithEnv = %v", err)
	}
	if c.Models.SpecificDir != "/override/specific" {
		t.Errorf("SpecificDir = %q", c.Models.SpecificDir)
	}
	if c.Models.CacheSize != 25 {
		t.Errorf("CacheSize = %d, want 25", c.Models.CacheSize)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[0] != "k1:9092" {
		t.Errorf("Brokers = %v", c.Kafka.Brokers)
	}
}
