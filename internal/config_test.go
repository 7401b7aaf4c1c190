package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/naarad/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() || cfg.Credentials() != nil {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_BasicModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "basic", Username: "ops", Password: "s3cret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("basic mode with credentials should pass: %v", err)
	}
	if creds := cfg.Credentials(); creds["ops"] != "s3cret" {
		t.Errorf("credentials = %v", creds)
	}
}

func TestAuthConfig_BasicModeMissingPassword(t *testing.T) {
	cfg := AuthConfig{Mode: "basic", Username: "ops"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("basic mode without password should fail")
	}
	if !strings.Contains(err.Error(), "password is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestBackendConfig_Validation(t *testing.T) {
	cases := map[string]func(*BackendConfig){
		"relative url": func(c *BackendConfig) { c.BaseURL = "/api" },
		"bad scheme":   func(c *BackendConfig) { c.BaseURL = "ftp://example.test" },
		"empty url":    func(c *BackendConfig) { c.BaseURL = "" },
		"no timeout":   func(c *BackendConfig) { c.Timeout = 0 },
		"negative ttl": func(c *BackendConfig) { c.HistoryCacheTTL = -time.Second },
	}
	for name, mutate := range cases {
		cfg := NewDefaultConfig().Backend
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestFullConfig_SectionErrorsSurface(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "basic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.Activity.Capacity = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "activity") {
		t.Errorf("activity error = %v", err)
	}

	cfg = NewDefaultConfig()
	cfg.Upload.MaxBytes = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "upload") {
		t.Errorf("upload error = %v", err)
	}
}

func TestConfig_LoadFromYAML(t *testing.T) {
	t.Setenv("NAARAD_TEST_PASSWORD", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
backend:
  base_url: http://localhost:8000
  timeout: 5s
  history_cache_ttl: 0s
upload:
  inbox_dir: ./inbox
auth:
  mode: basic
  username: ops
  password: ${NAARAD_TEST_PASSWORD}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Backend.Timeout != 5*time.Second || cfg.Backend.HistoryCacheTTL != 0 {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Upload.MaxBytes != 5<<20 || !cfg.Upload.InboxEnabled() {
		t.Errorf("upload = %+v", cfg.Upload)
	}
	if cfg.Auth.Password != "from-env" {
		t.Errorf("password = %q", cfg.Auth.Password)
	}
}
