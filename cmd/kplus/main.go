// Package main is the kplus CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/cleaner"
	"github.com/hyperjump/kplus/internal/config"
	"github.com/hyperjump/kplus/internal/indexer"
	"github.com/hyperjump/kplus/internal/keyword"
	"github.com/hyperjump/kplus/internal/metadata"
	"github.com/hyperjump/kplus/internal/pipeline"
	"github.com/hyperjump/kplus/internal/search"
	"github.com/hyperjump/kplus/internal/storage"
	"github.com/hyperjump/kplus/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kplus/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kplus",
		Short: "Parse, index and search Russian legal acts",
		Long: `kplus extracts metadata and the chapter/article/part structure of Russian
legal acts (federal laws, decrees, orders) exported from legal reference systems,
writes them as Markdown, JSON or XLSX, and keeps a searchable article index.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("kplus version {{.Version}}\n")
	root.PersistentFlags().String("config", defaultConfigPath, "config file path")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(
		parseCmd(),
		batchCmd(),
		indexCmd(),
		showCmd(),
		listCmd(),
		deleteCmd(),
		searchCmd(),
		statusCmd(),
		serverCmd(),
		watchCmd(),
	)
	return root
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config yields the built-in defaults.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		cfg, err := config.LoadOrDefault(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config named by the --config flag and builds a logger
// honouring --debug and the config's debug setting.
func setup(cmd *cobra.Command, serverMode bool) (*config.Config, string, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debugFlag, _ := cmd.Flags().GetBool("debug")
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Debug = cfg.Debug || debugFlag
	var logger *zap.Logger
	if serverMode {
		logger, err = utils.NewLogger(cfg.Debug)
	} else {
		logger, err = utils.NewCLILogger(cfg.Debug)
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}

// newPipeline builds the parsing pipeline described by cfg.Parser.
func newPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	policy, err := cfg.Parser.Policy()
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithPreambleSkipLines(cfg.Parser.PreambleSkipOrDefault()),
		pipeline.WithMetadataExtractor(metadata.NewExtractor(
			metadata.WithLogger(logger),
			metadata.WithStatusPolicy(policy),
			metadata.WithPrefixLimit(cfg.Parser.MetadataPrefixLimit),
		)),
	}
	if cfg.Parser.CleanTextOrDefault() {
		c, err := cleaner.New(cfg.Parser.ExtraWatermarks...)
		if err != nil {
			return nil, fmt.Errorf("parser.extra_watermarks: %w", err)
		}
		opts = append(opts, pipeline.WithCleaner(c))
	}
	return pipeline.New(opts...), nil
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	ArticleIndex *keyword.BleveIndex
	Pipeline     *pipeline.Pipeline
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.ArticleIndex != nil {
		_ = c.ArticleIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	articleIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize article index: %w", err)
	}

	engineOpts := []search.EngineOption{
		search.WithLogger(logger),
		search.WithTitleBoost(cfg.Search.TitleBoost),
		search.WithFuzziness(cfg.Search.Fuzziness),
		search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
	}
	if cfg.Search.SuggestionsOrDefault() {
		engineOpts = append(engineOpts, search.WithSpellChecker(keyword.NewSpellChecker(articleIndex)))
	}
	engine := search.NewEngine(articleIndex, engineOpts...)
	idx := indexer.NewIndexer(store, articleIndex, p, indexer.WithLogger(logger))

	return &Components{
		Storage:      store,
		ArticleIndex: articleIndex,
		Pipeline:     p,
		Engine:       engine,
		Indexer:      idx,
	}, nil
}
