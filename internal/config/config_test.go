package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("ingest:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	// When no config exists anywhere, should error. Override searchPathsFunc
	// to avoid finding real config files on developer/deploy machines.
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("ingest:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("secret_key: ${NOTIFICO_TEST_SECRET}\n"), 0600)
	os.Setenv("NOTIFICO_TEST_SECRET", "secret123")
	defer os.Unsetenv("NOTIFICO_TEST_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SecretKey != "secret123" {
		t.Errorf("secret_key = %q, want %q", cfg.SecretKey, "secret123")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("db: sqlite://test.db\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Ingest.Port != 8000 || cfg.Admin.Port != 8001 || cfg.Public.Port != 8002 {
		t.Errorf("unexpected default ports: %+v %+v %+v", cfg.Ingest, cfg.Admin, cfg.Public)
	}
	if cfg.AMQP.Prefix != "notifico_" {
		t.Errorf("amqp.prefix = %q, want notifico_", cfg.AMQP.Prefix)
	}
	if cfg.AMQP.Configured() {
		t.Error("AMQP should not be configured when url is empty")
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Admin.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for admin.port out of range")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "deafening"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log_level")
	}
}

func TestWeakSecret(t *testing.T) {
	cfg := Default()
	if !cfg.WeakSecret() {
		t.Error("default secret key should be flagged weak")
	}
	cfg.SecretKey = "a-properly-random-secret"
	if cfg.WeakSecret() {
		t.Error("custom secret key should not be flagged weak")
	}
}

func TestAMQPConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  AMQPConfig
		want bool
	}{
		{"empty", AMQPConfig{}, false},
		{"set", AMQPConfig{URL: "amqp://localhost"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}
