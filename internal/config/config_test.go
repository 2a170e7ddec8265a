package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PDF_SPLITTER_DIR", "MAX_FILE_AGE", "SWEEP_INTERVAL", "FETCH_TIMEOUT", "PORT", "BASE_DOMAIN", "BASE_PROTOCOL", "ZOTERO_API_KEY", "ZOTERO_LIBRARY_ID"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.MaxFileAge != time.Hour {
		t.Errorf("MaxFileAge = %v, want 1h", cfg.Storage.MaxFileAge)
	}
	if cfg.Storage.Dir != filepath.Join(os.TempDir(), "pdf_splitter") {
		t.Errorf("Dir = %s", cfg.Storage.Dir)
	}
	if got := cfg.BaseURL(); got != "http://localhost:8000" {
		t.Errorf("BaseURL() = %s", got)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPLITTER_HOST", "pdf.example.com")
	t.Setenv("MAX_FILE_AGE", "120")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("ZOTERO_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
storage:
  dir: /var/tmp/splits
  max_file_age: 30m
  sweep_interval: 1m
http:
  port: 9000
  base_domain: ${SPLITTER_HOST}
  base_protocol: https
zotero:
  api_key: file-key
  library_id: "12345"
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Storage.Dir != "/var/tmp/splits" {
		t.Errorf("Dir = %s", cfg.Storage.Dir)
	}
	if cfg.Storage.MaxFileAge != 120*time.Second {
		t.Errorf("MaxFileAge = %v, env should override file", cfg.Storage.MaxFileAge)
	}
	if cfg.Storage.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v", cfg.Storage.SweepInterval)
	}
	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("Fetch.Timeout = %v", cfg.Fetch.Timeout)
	}
	if got := cfg.BaseURL(); got != "https://pdf.example.com" {
		t.Errorf("BaseURL() = %s", got)
	}
	if cfg.Zotero.APIKey != "env-key" || cfg.Zotero.LibraryID != "12345" {
		t.Errorf("Zotero = %+v", cfg.Zotero)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("storage: [unclosed"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Expected error for invalid YAML")
	}

	t.Setenv("MAX_FILE_AGE", "soon")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for invalid MAX_FILE_AGE")
	}

	t.Setenv("MAX_FILE_AGE", "0")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for non-positive MAX_FILE_AGE")
	}
}
