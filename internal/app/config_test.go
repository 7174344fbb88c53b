package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/dealwatch-backend/internal/platform/logger"
)

func TestLoadConfigReadsEngineFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	doc := `tracked_leads: ["Sequoia", "Accel"]
filings_path: /srv/filings.yaml
worker:
  concurrency: 6
  max_attempts: 5
  retry_backoff: 250ms
cache:
  capacity: 500
  ttl: 2h
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DEALWATCH_CONFIG", path)
	t.Setenv("WORKER_CONCURRENCY", "2")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.TrackedLeads) != 2 || cfg.TrackedLeads[1] != "Accel" {
		t.Fatalf("tracked leads: %v", cfg.TrackedLeads)
	}
	if cfg.Ingest.Concurrency != 2 {
		t.Fatalf("env should override file concurrency, got %d", cfg.Ingest.Concurrency)
	}
	if cfg.Ingest.MaxAttempts != 5 || cfg.Ingest.RetryBackoff != 250*time.Millisecond {
		t.Fatalf("worker tuning: %+v", cfg.Ingest)
	}
	if cfg.Cache.Capacity != 500 || cfg.Cache.TTL != 2*time.Hour {
		t.Fatalf("cache: %+v", cfg.Cache)
	}
	if cfg.FilingsPath != "/srv/filings.yaml" || cfg.DB.Driver != "sqlite" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigRejectsMissingEngineFile(t *testing.T) {
	t.Setenv("DEALWATCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(logger.NewNop()); err == nil {
		t.Fatalf("want error for missing engine file")
	}
}
