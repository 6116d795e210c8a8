package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/vocab"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Manage the CESSDA Topic Classification cache",
	Long: `Manage the local cache of the CESSDA Topic Classification vocabulary.

Each language is downloaded from the CESSDA vocabulary service and kept in a
JSON cache file until it expires.`,
}

func init() {
	vocabCmd.AddCommand(vocabPreloadCmd)
	vocabCmd.AddCommand(vocabListCmd)
	rootCmd.AddCommand(vocabCmd)
}

var vocabPreloadCmd = &cobra.Command{
	Use:   "preload [lang...]",
	Short: "Download vocabularies into the cache",
	Long: `Download the vocabularies of the given languages, or of the configured
preload languages, unless a fresh copy is already cached.

Example:
  skgif vocab preload en fi sv`,
	RunE: runVocabPreload,
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached vocabularies",
	Args:  cobra.NoArgs,
	RunE:  runVocabList,
}

// VocabularyInfo describes one cached language.
type VocabularyInfo struct {
	Language  string    `json:"language"`
	Concepts  int       `json:"concepts"`
	FetchedAt time.Time `json:"fetched_at"`
}

func runVocabPreload(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)
	mustEnsureDataDir(cfg)

	langs := args
	if len(langs) == 0 {
		langs = cfg.Vocabulary.Preload
	}

	svc := mustBuildServices(cfg, logger, nil)
	if err := svc.vocab.Preload(cmd.Context(), langs); err != nil {
		if errors.Is(err, vocab.ErrNotFound) {
			exitWithError(ExitNotFound, "preloading vocabularies: %v", err)
		}
		exitWithError(ExitUpstream, "preloading vocabularies: %v", err)
	}
	return printVocabularies(svc.vocab)
}

func runVocabList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)

	svc := mustBuildServices(cfg, logger, nil)
	return printVocabularies(svc.vocab)
}

func printVocabularies(cache *vocab.Cache) error {
	infos := make([]VocabularyInfo, 0)
	for _, lang := range cache.Languages() {
		fetched, _ := cache.FetchedAt(lang)
		infos = append(infos, VocabularyInfo{
			Language:  lang,
			Concepts:  len(cache.Vocabulary(lang)),
			FetchedAt: fetched.UTC(),
		})
	}

	if humanOutput {
		if len(infos) == 0 {
			fmt.Println("No vocabularies cached")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s: %d concepts, fetched %s\n", info.Language, info.Concepts, info.FetchedAt.Format(time.RFC3339))
		}
		return nil
	}
	outputJSON(infos)
	return nil
}
