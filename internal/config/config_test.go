package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "docgen_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("DOWNLOAD_TOKEN_SECRET", "testsecret123456789012345678901234")
	t.Setenv("RENDER_STRICT", "true")
	t.Setenv("RENDER_DATE_LAYOUT", "01/02/2006")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" || cfg.MinIO.Endpoint == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if !cfg.Render.Strict || cfg.Render.DateLayout != "01/02/2006" {
		t.Fatalf("render section not loaded: %+v", cfg.Render)
	}
	if cfg.MinIO.Bucket != "docgen" {
		t.Fatalf("MinIO bucket default = %q", cfg.MinIO.Bucket)
	}
	if cfg.Download.TTL != time.Hour {
		t.Fatalf("download TTL default = %v", cfg.Download.TTL)
	}
}

func TestLoadConfig_MemoryDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MINIO_ENDPOINT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MongoDB.URI != "" || cfg.MinIO.Endpoint != "" {
		t.Fatalf("expected in-memory defaults, got %+v", cfg)
	}
	if cfg.Server.MaxUploadBytes != 20<<20 {
		t.Fatalf("max upload = %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Render.CacheSize != 64 {
		t.Fatalf("cache size default = %d", cfg.Render.CacheSize)
	}
}
