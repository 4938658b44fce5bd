package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file settings.
const EnvPrefix = "DOCVIEW_"

// Config holds the viewer's settings, loaded by Load from defaults, an
// optional YAML file and DOCVIEW_ environment variables.
type Config struct {
	Port string `koanf:"port"`

	// Document service connection
	BackendURL     string        `koanf:"backend_url"`
	BackendTimeout time.Duration `koanf:"backend_timeout"`
	BackendRetries int           `koanf:"backend_retries"`
	BackendRPS     float64       `koanf:"backend_rps"`
	BackendBurst   int           `koanf:"backend_burst"`

	// Source files shown next to the markup
	DocDir         string        `koanf:"doc_dir"`
	SourceCacheTTL time.Duration `koanf:"source_cache_ttl"`

	// Viewer state
	SessionTTL   time.Duration `koanf:"session_ttl"`
	FileListTTL  time.Duration `koanf:"file_list_ttl"`
	CookieSecure bool          `koanf:"cookie_secure"`

	// JSON API
	AllowedOrigins []string `koanf:"allowed_origins"`
	APIKey         string   `koanf:"api_key"`
}

// Default returns the configuration used for any key not set elsewhere.
func Default() *Config {
	return &Config{
		Port: "8090",

		BackendURL:     "http://localhost:8000",
		BackendTimeout: 30 * time.Second,
		BackendRetries: 3,
		BackendRPS:     20,
		BackendBurst:   5,

		DocDir:         "./doc",
		SourceCacheTTL: 10 * time.Minute,

		SessionTTL:  2 * time.Hour,
		FileListTTL: 30 * time.Second,

		AllowedOrigins: []string{"*"},
	}
}

// Load starts from defaults, overlays the YAML file at path when it exists,
// then applies DOCVIEW_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// DOCVIEW_BACKEND_URL -> backend_url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that would keep the server from
// starting.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend_url %q: must be an http or https URL", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend_timeout must be positive")
	}
	if c.BackendRetries < 0 {
		return fmt.Errorf("backend_retries must be non-negative")
	}
	if c.BackendRPS < 0 {
		return fmt.Errorf("backend_rps must be non-negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.FileListTTL <= 0 {
		return fmt.Errorf("file_list_ttl must be positive")
	}
	if c.SourceCacheTTL <= 0 {
		return fmt.Errorf("source_cache_ttl must be positive")
	}
	return nil
}
