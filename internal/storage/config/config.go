package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the config directory
const FileName = "config.yaml"

// Defaults
const (
	DefaultModLinksURL     = "https://raw.githubusercontent.com/hk-modding/modlinks/main/ModLinks.xml"
	DefaultAPILinksURL     = "https://raw.githubusercontent.com/hk-modding/modlinks/main/ApiLinks.xml"
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultCatalogTimeout  = 30 * time.Second
)

// Config holds global application settings
type Config struct {
	ModLinksURL     string        `yaml:"mod_links_url"`
	APILinksURL     string        `yaml:"api_links_url"`
	VerifyHashes    bool          `yaml:"verify_hashes"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	CatalogTimeout  time.Duration `yaml:"catalog_timeout"`
	Workers         int           `yaml:"workers"` // 0 means one per CPU
	LogLevel        string        `yaml:"log_level"`
	Keybindings     string        `yaml:"keybindings"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		ModLinksURL:     DefaultModLinksURL,
		APILinksURL:     DefaultAPILinksURL,
		VerifyHashes:    true,
		DownloadTimeout: DefaultDownloadTimeout,
		CatalogTimeout:  DefaultCatalogTimeout,
		LogLevel:        "info",
		Keybindings:     "vim",
	}
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	return LoadFile(filepath.Join(configDir, FileName))
}

// LoadFile reads configuration from an explicit file. A missing file
// yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.DownloadTimeout < 0 || c.CatalogTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Keybindings {
	case "vim", "standard":
	default:
		return errors.Errorf("keybindings must be vim or standard, got %q", c.Keybindings)
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (zerolog.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return errors.Errorf("creating config dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, FileName), data, 0644); err != nil {
		return errors.Errorf("writing config: %w", err)
	}
	return nil
}
