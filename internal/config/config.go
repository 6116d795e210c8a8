package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cessda/skgif-api/internal/accessmap"
	"github.com/cessda/skgif-api/internal/vocab"
)

// Default file names under the data directory.
const (
	StudiesFile       = "studies.jsonl"
	DBFile            = "studies.db"
	VocabularyFile    = "vocabulary_cache.json"
	AccessMappingFile = "data_access_mappings.json"
	ELSSTFile         = "elsst_current.jsonld"
)

// Environment variables that override the file.
const (
	EnvListenAddr = "SKGIF_LISTEN_ADDR"
	EnvAPIBaseURL = "SKGIF_API_BASE_URL"
	EnvDataDir    = "SKGIF_DATA_DIR"
	EnvLogLevel   = "SKGIF_LOG_LEVEL"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Data          DataConfig          `yaml:"data"`
	Vocabulary    VocabularyConfig    `yaml:"vocabulary"`
	AccessMapping AccessMappingConfig `yaml:"access_mapping"`
	DataSources   DataSourcesConfig   `yaml:"data_sources"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// APIBaseURL is the public URL the API is reached at; pagination links start with it.
	APIBaseURL      string        `yaml:"api_base_url"`
	APIPrefix       string        `yaml:"api_prefix"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DataConfig locates the local files. Relative file names are resolved
// against Dir.
type DataConfig struct {
	Dir      string `yaml:"dir"`
	Studies  string `yaml:"studies"`
	Database string `yaml:"database"`
	ELSST    string `yaml:"elsst"`
}

// VocabularyConfig configures the topic classification vocabulary.
type VocabularyConfig struct {
	APIURL    string        `yaml:"api_url"`
	Version   string        `yaml:"version"`
	TTL          time.Duration `yaml:"ttl"`
	RetryBackoff time.Duration `yaml:"retry_backoff"` // 0 retries failed languages on every request
	RateLimit    float64       `yaml:"rate_limit"`
	CacheFile    string        `yaml:"cache_file"`
	Preload      []string      `yaml:"preload"`
}

// AccessMappingConfig configures the data access mapping download.
type AccessMappingConfig struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`
}

// EndpointConfig names the archive behind a harvest endpoint.
type EndpointConfig struct {
	Name string `yaml:"name"`
	ROR  string `yaml:"ror"`
}

// DataSourcesConfig extends the built-in hosting data source tables.
type DataSourcesConfig struct {
	Endpoints    map[string]EndpointConfig `yaml:"endpoints,omitempty"`
	RORs         map[string]string         `yaml:"rors,omitempty"`
	DisplayNames map[string]string         `yaml:"display_names,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with the defaults of the public CESSDA deployment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			APIBaseURL:      "http://localhost:8080",
			APIPrefix:       "/api",
			DefaultPageSize: 10,
			MaxPageSize:     100,
			ShutdownTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Dir:      DefaultDataDir(),
			Studies:  StudiesFile,
			Database: DBFile,
			ELSST:    ELSSTFile,
		},
		Vocabulary: VocabularyConfig{
			APIURL:       vocab.DefaultAPIURL,
			Version:      vocab.DefaultVersion,
			TTL:          vocab.DefaultTTL,
			RetryBackoff: vocab.DefaultRetryBackoff,
			RateLimit:    vocab.RateLimit,
			CacheFile:    VocabularyFile,
			Preload:      []string{"en"},
		},
		AccessMapping: AccessMappingConfig{
			URL:  accessmap.DefaultURL,
			File: AccessMappingFile,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path over the defaults, applies environment
// overrides and validates the result. An empty path means DefaultPath(),
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.Data.Dir = ExpandPath(cfg.Data.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. Unset or empty variables
// are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvListenAddr); v != "" {
		c.Server.ListenAddr = v
	}
	if v := getenv(EnvAPIBaseURL); v != "" {
		c.Server.APIBaseURL = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.Data.Dir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if u, err := url.Parse(c.Server.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.api_base_url must be an absolute URL: %q", c.Server.APIBaseURL))
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("server.api_prefix must start with /: %q", c.Server.APIPrefix))
	}
	if c.Server.MaxPageSize < 1 {
		errs = append(errs, errors.New("server.max_page_size must be positive"))
	}
	if c.Server.DefaultPageSize < 1 || c.Server.DefaultPageSize > c.Server.MaxPageSize {
		errs = append(errs, fmt.Errorf("server.default_page_size must be between 1 and %d", c.Server.MaxPageSize))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	if c.Vocabulary.APIURL == "" || c.Vocabulary.Version == "" {
		errs = append(errs, errors.New("vocabulary.api_url and vocabulary.version are required"))
	}
	if c.Vocabulary.TTL <= 0 {
		errs = append(errs, errors.New("vocabulary.ttl must be positive"))
	}
	if c.Vocabulary.RetryBackoff < 0 {
		errs = append(errs, errors.New("vocabulary.retry_backoff must not be negative"))
	}
	if c.Vocabulary.RateLimit <= 0 {
		errs = append(errs, errors.New("vocabulary.rate_limit must be positive"))
	}
	if c.AccessMapping.URL == "" {
		errs = append(errs, errors.New("access_mapping.url is required"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json: %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Resolve returns name inside the data directory, or name itself when it is
// absolute or starts with ~. An empty name stays empty.
func (c *Config) Resolve(name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "~") {
		return ExpandPath(name)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// StudiesPath returns the path to the studies JSONL file.
func (c *Config) StudiesPath() string { return c.Resolve(c.Data.Studies) }

// DBPath returns the path to the SQLite index.
func (c *Config) DBPath() string { return c.Resolve(c.Data.Database) }

// ELSSTPath returns the path to the ELSST export.
func (c *Config) ELSSTPath() string { return c.Resolve(c.Data.ELSST) }

// VocabularyCachePath returns the path to the persisted vocabulary cache.
func (c *Config) VocabularyCachePath() string { return c.Resolve(c.Vocabulary.CacheFile) }

// AccessMappingPath returns the path to the downloaded access mapping.
func (c *Config) AccessMappingPath() string { return c.Resolve(c.AccessMapping.File) }

// APIURL returns the public URL of an API path, e.g. APIURL("products").
func (c *Config) APIURL(path string) string {
	base := strings.TrimRight(c.Server.APIBaseURL, "/")
	prefix := strings.Trim(c.Server.APIPrefix, "/")
	parts := []string{base}
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if path = strings.Trim(path, "/"); path != "" {
		parts = append(parts, path)
	}
	return strings.Join(parts, "/")
}
