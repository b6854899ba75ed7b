package config

import (
	"os"
	"path/filepath"
	"testing"

	"studytrack/pkg/session"
)

const sampleConfig = `
server:
  port: "9090"
  logLevel: debug
session:
  type: redis
  redis:
    addr: localhost:6379
    keyPrefix: "sessions:"
supabase:
  url: https://example.supabase.co
  anonKey: anon
places:
  apiKey: places-key
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Session.Type != session.StoreTypeRedis {
		t.Fatalf("expected redis store, got %s", cfg.Session.Type)
	}
	if cfg.Session.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %s", cfg.Session.Redis.Addr)
	}
	if cfg.Supabase.URL != "https://example.supabase.co" {
		t.Fatalf("unexpected supabase url: %s", cfg.Supabase.URL)
	}
	if cfg.Places.Language != "ko" {
		t.Fatalf("expected default language, got %s", cfg.Places.Language)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Server.Port)
	}
	if cfg.Session.Type != "" && cfg.Session.Type != session.StoreTypeMemory {
		t.Fatalf("expected memory default, got %s", cfg.Session.Type)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_JWT_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Supabase.URL != "https://env.supabase.co" {
		t.Fatalf("env override ignored: %s", cfg.Supabase.URL)
	}
	if cfg.Supabase.JWTSecret != "env-secret" {
		t.Fatalf("env override ignored: %s", cfg.Supabase.JWTSecret)
	}
	if cfg.Session.Type != session.StoreTypeRedis || cfg.Session.Redis.Addr != "redis:6379" {
		t.Fatalf("redis env override ignored: %+v", cfg.Session)
	}
}
