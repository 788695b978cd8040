package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_PATH", "LISTEN_ADDR", "LOG_LEVEL", "STORAGE_TYPE", "MONGODB_URI",
	"MONGODB_DATABASE", "DATA_SOURCE_NAME", "LOCAL_STORAGE_PATH", "REDIS_URL",
	"S3_BUCKET_NAME", "S3_PREFIX", "S3_ENDPOINT", "REQUEST_TIMEOUT",
	"MAX_BODY_BYTES", "ALLOWED_ORIGINS",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.Type != "mongodb" {
		t.Errorf("default storage type: got %s", cfg.Storage.Type)
	}
	if cfg.Storage.MongoURI != "mongodb://localhost:27017" || cfg.Storage.MongoDatabase != "drawboard" {
		t.Errorf("default mongodb settings: %s %s", cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	}
	if cfg.Listen != ":3002" || cfg.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
listen: ":8080"
logLevel: debug
requestTimeout: 5s
allowedOrigins:
  - https://draw.example.com
storage:
  type: sqlite
  dataSourceName: /tmp/board.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.LogLevel != "debug" || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.DataSourceName != "/tmp/board.db" {
		t.Errorf("storage values not applied: %+v", cfg.Storage)
	}
	if cfg.Storage.MongoDatabase != "drawboard" {
		t.Error("defaults should survive for keys the file omits")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://draw.example.com" {
		t.Errorf("allowed origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "storage:\n  type: memory\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("CONFIG_PATH not honoured: %s", cfg.Storage.Type)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "storage:\n  type: sqlite\n")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Storage.Type != "redis" || cfg.Storage.RedisURL != "redis://cache:6379/2" {
		t.Errorf("env overrides not applied: %+v", cfg.Storage)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("timeout: got %s", cfg.RequestTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{"missing explicit file", "", nil, "failed to read config file"},
		{"bad yaml", "listen: [", nil, "failed to parse config file"},
		{"bad timeout env", "listen: ':1'", map[string]string{"REQUEST_TIMEOUT": "soon"}, "invalid REQUEST_TIMEOUT"},
		{"bad body limit", "maxBodyBytes: -1", nil, "max body bytes"},
		{"unknown storage", "storage:\n  type: cassandra\n", nil, "unsupported storage type"},
		{"s3 without bucket", "storage:\n  type: s3\n", nil, "S3_BUCKET_NAME"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
