// Package config resolves runtime settings from defaults, an optional YAML
// file and environment variables, in that order of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Epistemic-Technology/pdf-splitter/internal/storage"
)

// DefaultUserAgent mimics a desktop browser; some hosts refuse requests
// without one.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
	HTTP    HTTPConfig    `yaml:"http"`
	Zotero  ZoteroConfig  `yaml:"zotero"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	// Dir is the root for stored artifacts.
	Dir string `yaml:"dir"`
	// MaxFileAge is how long an artifact survives before a sweep evicts it.
	MaxFileAge time.Duration `yaml:"max_file_age"`
	// SweepInterval is the background sweep period.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
	// RatePerSecond and Burst throttle outgoing downloads across all requests.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

type HTTPConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BaseDomain   string `yaml:"base_domain"`
	BaseProtocol string `yaml:"base_protocol"`
	// MaxUploadBytes bounds multipart uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// ZoteroConfig holds credentials for the Zotero source. Both are optional;
// without them Zotero sources fail at acquisition time.
type ZoteroConfig struct {
	APIKey    string `yaml:"api_key"`
	LibraryID string `yaml:"library_id"`
}

type LogConfig struct {
	Output   string `yaml:"output"`
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
	Format   string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:           storage.DefaultRoot(),
			MaxFileAge:    3600 * time.Second,
			SweepInterval: storage.DefaultSweepInterval,
		},
		Fetch: FetchConfig{
			Timeout:       60 * time.Second,
			MaxBytes:      200 << 20,
			UserAgent:     DefaultUserAgent,
			RatePerSecond: 5,
			Burst:         10,
		},
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			BaseDomain:     "localhost",
			BaseProtocol:   "http",
			MaxUploadBytes: 200 << 20,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (if path is not
// empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays the environment variables the service has always
// honoured. Durations given as plain integers are seconds.
func (c *Config) applyEnv() error {
	if v := os.Getenv("PDF_SPLITTER_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if err := envSeconds("MAX_FILE_AGE", &c.Storage.MaxFileAge); err != nil {
		return err
	}
	if err := envSeconds("SWEEP_INTERVAL", &c.Storage.SweepInterval); err != nil {
		return err
	}
	if err := envSeconds("FETCH_TIMEOUT", &c.Fetch.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("BASE_DOMAIN"); v != "" {
		c.HTTP.BaseDomain = v
	}
	if v := os.Getenv("BASE_PROTOCOL"); v != "" {
		c.HTTP.BaseProtocol = v
	}
	if v := os.Getenv("ZOTERO_API_KEY"); v != "" {
		c.Zotero.APIKey = v
	}
	if v := os.Getenv("ZOTERO_LIBRARY_ID"); v != "" {
		c.Zotero.LibraryID = v
	}
	return nil
}

func envSeconds(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: expected seconds or a duration", key, v)
	}
	*dst = d
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	if c.Storage.MaxFileAge <= 0 {
		return fmt.Errorf("storage.max_file_age must be positive, got %v", c.Storage.MaxFileAge)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %v", c.Fetch.Timeout)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	return nil
}

// BaseURL is the public prefix used to build download links.
func (c *Config) BaseURL() string {
	if c.HTTP.BaseDomain == "localhost" {
		return fmt.Sprintf("%s://%s:%d", c.HTTP.BaseProtocol, c.HTTP.BaseDomain, c.HTTP.Port)
	}
	return fmt.Sprintf("%s://%s", c.HTTP.BaseProtocol, c.HTTP.BaseDomain)
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
