package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Test defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		if cfg.Server.Port != 8080 || cfg.Storage.Driver != "memory" || cfg.Storage.DSN != "lottery.db" {
			t.Errorf("Unexpected defaults: %+v", cfg)
		}
		if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
			t.Errorf("Unexpected CORS origins: %v", cfg.Server.CORSOrigins)
		}
		if cfg.WS.PingInterval != 30*time.Second || cfg.Kafka.Topic != "lottery-results" || cfg.Lottery.DefaultOperator != "system" {
			t.Errorf("Unexpected defaults: %+v", cfg)
		}
		if cfg.WS.WriteTimeout != 10*time.Second {
			t.Errorf("Unexpected write timeout: %v", cfg.WS.WriteTimeout)
		}
		if !cfg.Log.Verbose {
			t.Error("Expected verbose logging by default")
		}
		if len(cfg.Kafka.Brokers) != 0 {
			t.Errorf("Expected no brokers, got %v", cfg.Kafka.Brokers)
		}
	})

	t.Run("Test file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  port: 9090
storage:
  driver: sqlite
  dsn: /tmp/draw.db
kafka:
  brokers: ["k1:9092", "k2:9092"]
ws:
  ping_interval: 10s
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		if cfg.Server.Port != 9090 || cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "/tmp/draw.db" {
			t.Errorf("File values not applied: %+v", cfg)
		}
		if len(cfg.Kafka.Brokers) != 2 || cfg.WS.PingInterval != 10*time.Second {
			t.Errorf("File values not applied: %+v", cfg)
		}
	})

	t.Run("Test environment override", func(t *testing.T) {
		t.Setenv("LOTTERY_SERVER_PORT", "7070")
		t.Setenv("LOTTERY_LOTTERY_DEFAULT_OPERATOR", "host")
		t.Setenv("LOTTERY_LOG_VERBOSE", "false")
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		if cfg.Server.Port != 7070 || cfg.Lottery.DefaultOperator != "host" || cfg.Log.Verbose {
			t.Errorf("Environment not applied: %+v", cfg)
		}
	})

	t.Run("Test unknown driver", func(t *testing.T) {
		t.Setenv("LOTTERY_STORAGE_DRIVER", "mysql")
		if _, err := LoadConfig(""); err == nil {
			t.Error("Expected an error for an unknown driver")
		}
	})

	t.Run("Test missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected an error for a missing file")
		}
	})
}
