package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/congress-api-client/pkg/client"
	"github.com/Sternrassler/congress-api-client/pkg/logging"
	"github.com/Sternrassler/congress-api-client/pkg/pagination"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "congress.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONGRESS_API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := client.DefaultConfig("env-key")
	if got := cfg.ClientConfig(); got != want {
		t.Errorf("ClientConfig() = %+v, want %+v", got, want)
	}
	if sc := cfg.ServiceConfig(); sc.PageSize != pagination.MaxPageSize || sc.Workers != 1 {
		t.Errorf("ServiceConfig() = %+v, want page size %d and 1 worker", sc, pagination.MaxPageSize)
	}
	if !cfg.ContinueOnError {
		t.Error("ContinueOnError = false, want true")
	}
	if cfg.CursorTTL != 7*24*time.Hour {
		t.Errorf("CursorTTL = %v, want 168h", cfg.CursorTTL)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
api_key: file-key
timeout: 30s
max_tries: 3
backoff_base: 500ms
page_size: 100
requests_per_hour: 0
workers: 4
continue_on_error: false
redis_addr: localhost:6379
log_level: debug
log_pretty: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxTries != 3 {
		t.Errorf("MaxTries = %d, want 3", cfg.MaxTries)
	}
	if cfg.BackoffBase != 500*time.Millisecond {
		t.Errorf("BackoffBase = %v, want 500ms", cfg.BackoffBase)
	}
	if cfg.BackoffCap != time.Minute {
		t.Errorf("BackoffCap = %v, want default 1m", cfg.BackoffCap)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
	if cfg.RequestsPerHour != 0 {
		t.Errorf("RequestsPerHour = %d, want 0", cfg.RequestsPerHour)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.ContinueOnError {
		t.Error("ContinueOnError = true, want false")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr)
	}

	if sc := cfg.ServiceConfig(); sc.PageSize != 100 || sc.Workers != 4 {
		t.Errorf("ServiceConfig() = %+v, want page size 100 and 4 workers", sc)
	}

	lc := cfg.LoggingConfig()
	if lc.Level != logging.LevelDebug || !lc.Pretty {
		t.Errorf("LoggingConfig() = %+v, want debug/pretty", lc)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "api_key: file-key\nmax_tries: 3\nworkers: 2\n")
	t.Setenv("CONGRESS_MAX_TRIES", "5")
	t.Setenv("CONGRESS_SAFETY_MARGIN", "0.05")
	t.Setenv("CONGRESS_COOLDOWN", "2m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxTries != 5 {
		t.Errorf("MaxTries = %d, want 5", cfg.MaxTries)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.SafetyMargin != 0.05 {
		t.Errorf("SafetyMargin = %v, want 0.05", cfg.SafetyMargin)
	}
	if cfg.Cooldown != 2*time.Minute {
		t.Errorf("Cooldown = %v, want 2m", cfg.Cooldown)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
}

func TestLoad_FallbackKey(t *testing.T) {
	clearEnv(t)
	t.Setenv(FallbackKeyEnv, "fallback-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "fallback-key" {
		t.Errorf("APIKey = %q, want fallback-key", cfg.APIKey)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing key", wantErr: "api key is required"},
		{name: "bad workers", env: map[string]string{"CONGRESS_API_KEY": "k", "CONGRESS_WORKERS": "0"}, wantErr: "workers"},
		{name: "bad log level", env: map[string]string{"CONGRESS_API_KEY": "k", "CONGRESS_LOG_LEVEL": "loud"}, wantErr: "log level"},
		{name: "page size above maximum", env: map[string]string{"CONGRESS_API_KEY": "k", "CONGRESS_PAGE_SIZE": "500"}, wantErr: "page_size must be between 1 and 250"},
		{name: "zero page size", env: map[string]string{"CONGRESS_API_KEY": "k", "CONGRESS_PAGE_SIZE": "0"}, wantErr: "page_size"},
		{name: "negative min interval", env: map[string]string{"CONGRESS_API_KEY": "k", "CONGRESS_MIN_INTERVAL": "-1s"}, wantErr: "min_interval"},
		{name: "bad duration", env: map[string]string{"CONGRESS_API_KEY": "k", "CONGRESS_TIMEOUT": "soon"}, wantErr: "decode config"},
		{name: "unreadable yaml", file: "api_key: [unterminated", wantErr: "load config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONGRESS_API_KEY", "k")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with missing file error = nil, want error")
	}
}
