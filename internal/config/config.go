// Package config provides configuration loading and structs for kplus.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kplus/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Parser  ParserConfig  `yaml:"parser"`
	Search  SearchConfig  `yaml:"search"`
	Watch   WatchConfig   `yaml:"watch"`
	Export  ExportConfig  `yaml:"export"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and the article index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ParserConfig tunes text cleaning, metadata extraction and batch parsing.
type ParserConfig struct {
	// MetadataPrefixLimit is how many leading characters the metadata extractor reads.
	MetadataPrefixLimit int `yaml:"metadata_prefix_limit"`
	// PreambleSkipLines is how many leading preamble lines are dropped. 0 is valid.
	PreambleSkipLines *int `yaml:"preamble_skip_lines"`
	// CleanText strips watermarks and page numbers before parsing. Defaults to true.
	CleanText *bool `yaml:"clean_text"`
	// StatusPolicy is "coerce" (unknown statuses become the default) or "reject".
	StatusPolicy string `yaml:"status_policy"`
	// Workers bounds batch parsing concurrency; 0 means one per CPU.
	Workers int `yaml:"workers"`
	// ExtraWatermarks are additional regular expressions removed by the cleaner.
	ExtraWatermarks []string `yaml:"extra_watermarks"`
}

// PreambleSkipOrDefault returns PreambleSkipLines, or 5 when unset.
func (p *ParserConfig) PreambleSkipOrDefault() int {
	if p.PreambleSkipLines != nil {
		return *p.PreambleSkipLines
	}
	return defaultPreambleSkipLines
}

// CleanTextOrDefault returns whether to clean text; defaults to true when unset.
func (p *ParserConfig) CleanTextOrDefault() bool {
	if p.CleanText != nil {
		return *p.CleanText
	}
	return true
}

// Policy returns the parsed status policy.
func (p *ParserConfig) Policy() (models.StatusPolicy, error) {
	return models.ParseStatusPolicy(p.StatusPolicy)
}

// SearchConfig holds article search settings.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit"`
	MaxLimit     int     `yaml:"max_limit"`
	TitleBoost   float64 `yaml:"title_boost"`
	Fuzziness    int     `yaml:"fuzziness"`
	// Suggestions enables "did you mean" for searches without hits. Defaults to true.
	Suggestions *bool `yaml:"suggestions"`
}

// SuggestionsOrDefault returns whether spelling suggestions are enabled.
func (s *SearchConfig) SuggestionsOrDefault() bool {
	if s.Suggestions != nil {
		return *s.Suggestions
	}
	return true
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ExportConfig holds defaults for the batch and parse commands.
type ExportConfig struct {
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"`
}

// Load reads and parses the config file at path, applies defaults, expands paths
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg, filepath.Dir(path))
}

// LoadOrDefault loads path, or returns the defaults when path is empty or does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return finish(&Config{}, wd)
}

func finish(cfg *Config, configDir string) (*Config, error) {
	ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Export.OutputDir = expandPath(cfg.Export.OutputDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	if _, err := c.Parser.Policy(); err != nil {
		return fmt.Errorf("parser.status_policy: %w", err)
	}
	if c.Parser.PreambleSkipLines != nil && *c.Parser.PreambleSkipLines < 0 {
		return fmt.Errorf("parser.preamble_skip_lines must not be negative")
	}
	if c.Parser.Workers < 0 {
		return fmt.Errorf("parser.workers must not be negative")
	}
	if c.Search.Fuzziness < 0 || c.Search.Fuzziness > 2 {
		return fmt.Errorf("search.fuzziness must be 0, 1 or 2")
	}
	return nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
