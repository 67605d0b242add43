package config

import "github.com/hyperjump/kplus/internal/extract"

const (
	defaultPreambleSkipLines   = 5
	defaultMetadataPrefixLimit = 3000
)

// ApplyDefaults sets default values for any zero values in cfg.
// Relative storage paths are resolved against the home directory by Load.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".kplus/data/acts.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = ".kplus/data/articles.bleve"
	}
	if cfg.Parser.MetadataPrefixLimit == 0 {
		cfg.Parser.MetadataPrefixLimit = defaultMetadataPrefixLimit
	}
	if cfg.Parser.StatusPolicy == "" {
		cfg.Parser.StatusPolicy = "coerce"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2.0
	}
	if cfg.Search.Fuzziness == 0 {
		cfg.Search.Fuzziness = 2
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), extract.SupportedExtensions...)
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "./output"
	}
	if len(cfg.Export.Formats) == 0 {
		cfg.Export.Formats = []string{"md", "json"}
	}
}
