// Package main provides the skgif CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/accessmap"
	"github.com/cessda/skgif-api/internal/config"
	"github.com/cessda/skgif-api/internal/elsst"
	"github.com/cessda/skgif-api/internal/storage"
	"github.com/cessda/skgif-api/internal/transform"
	"github.com/cessda/skgif-api/internal/vocab"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skgif",
	Short: "SKG-IF API for the CESSDA Data Catalogue",
	Long: `skgif serves harvested CESSDA Data Catalogue studies as SKG-IF JSON-LD.

Core features:
  - Products transformed from harvested study metadata
  - Topics from the ELSST thesaurus
  - CESSDA Topic Classification and data access lookups with local caches

Studies are stored in JSONL with an ephemeral SQLite index for queries.
All commands except serve output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/skgif/config.yml)")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustEnsureDataDir creates the data directory, exits on error.
func mustEnsureDataDir(cfg *config.Config) {
	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}
}

// mustOpenDatabase opens the SQLite index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config, logger *slog.Logger) *storage.DB {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath()), 0755); err != nil {
		exitWithError(ExitError, "creating database directory: %v", err)
	}
	db, err := storage.OpenDB(cfg.DBPath(), storage.WithLogger(logger))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadTopics loads the ELSST export. A missing export yields an empty
// catalogue so the products API can still be served.
func mustLoadTopics(cfg *config.Config, logger *slog.Logger) *elsst.Catalogue {
	cat, err := elsst.Load(cfg.ELSSTPath())
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("ELSST export not found, topics are empty", slog.String("path", cfg.ELSSTPath()))
			return elsst.New(nil)
		}
		exitWithError(ExitDataError, "loading ELSST export: %v", err)
	}
	logger.Info("loaded ELSST export", slog.String("path", cfg.ELSSTPath()), slog.Int("concepts", cat.Len()))
	return cat
}

// services are the collaborators of the transformer.
type services struct {
	vocab       *vocab.Cache
	access      *accessmap.Store
	transformer *transform.Transformer
}

// mustBuildServices wires the vocabulary cache, the access mapping store and
// the transformer. reg may be nil to disable metrics.
func mustBuildServices(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) services {
	client := vocab.NewClient(
		vocab.WithBaseURL(cfg.Vocabulary.APIURL),
		vocab.WithVersion(cfg.Vocabulary.Version),
		vocab.WithRateLimit(cfg.Vocabulary.RateLimit),
	)
	cache, err := vocab.NewCache(client,
		vocab.WithFile(cfg.VocabularyCachePath()),
		vocab.WithTTL(cfg.Vocabulary.TTL),
		vocab.WithRetryBackoff(cfg.Vocabulary.RetryBackoff),
		vocab.WithLogger(logger),
		vocab.WithRegisterer(reg),
	)
	if err != nil {
		exitWithError(ExitError, "creating vocabulary cache: %v", err)
	}
	if err := cache.Load(); err != nil {
		logger.Warn("ignoring unreadable vocabulary cache", slog.Any("error", err))
	}

	access := accessmap.NewStore(
		accessmap.WithURL(cfg.AccessMapping.URL),
		accessmap.WithFile(cfg.AccessMappingPath()),
		accessmap.WithLogger(logger),
		accessmap.WithRegisterer(reg),
	)

	t := transform.New(cache, access,
		transform.WithDataSources(dataSources(cfg)),
		transform.WithLogger(logger),
		transform.WithRegisterer(reg),
	)
	return services{vocab: cache, access: access, transformer: t}
}

// dataSources merges the configured tables over the built-in ones.
func dataSources(cfg *config.Config) transform.DataSources {
	ds := transform.DefaultDataSources()
	for url, ep := range cfg.DataSources.Endpoints {
		ds.Endpoints[url] = transform.Endpoint{Name: ep.Name, ROR: ep.ROR}
	}
	maps.Copy(ds.RORs, cfg.DataSources.RORs)
	maps.Copy(ds.DisplayNames, cfg.DataSources.DisplayNames)
	return ds
}
