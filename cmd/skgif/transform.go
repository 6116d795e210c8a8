package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/storage"
	"github.com/cessda/skgif-api/internal/study"
	"github.com/cessda/skgif-api/internal/transform"
)

func init() {
	rootCmd.AddCommand(transformCmd)
}

var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Transform a harvested study into an SKG-IF product",
	Long: `Transform one harvested study record into an SKG-IF product and print it
as JSON-LD. The record is read from the file argument, or from stdin when it
is omitted or "-".

Examples:
  skgif transform study.json
  curl -s https://example.org/study.json | skgif transform`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTransform,
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)
	mustEnsureDataDir(cfg)

	s, err := storage.ParseStudy(mustReadInput(args))
	if err != nil {
		exitWithError(ExitDataError, "invalid study: %v", err)
	}

	svc := mustBuildServices(cfg, logger, nil)
	product := mustTransform(cmd.Context(), svc, logger, s.Record)

	if humanOutput {
		printProductHuman(product)
		return nil
	}
	outputJSON(skgif.WrapProducts([]*skgif.Product{product}, nil))
	return nil
}

// mustTransform ensures the record's vocabularies and transforms it, exits on error.
func mustTransform(ctx context.Context, svc services, logger *slog.Logger, rec *study.Record) *skgif.Product {
	for _, lang := range rec.ClassificationLanguages() {
		if err := svc.vocab.Ensure(ctx, lang); err != nil {
			logger.Warn("vocabulary unavailable", slog.String("language", lang), slog.Any("error", err))
		}
	}

	product, err := svc.transformer.Transform(ctx, rec)
	if err != nil {
		if errors.Is(err, transform.ErrUpstream) {
			exitWithError(ExitUpstream, "transforming %s: %v", rec.ID(), err)
		}
		exitWithError(ExitDataError, "transforming %s: %v", rec.ID(), err)
	}
	return product
}

// printProductHuman prints the main fields of a product.
func printProductHuman(p *skgif.Product) {
	fmt.Printf("Product: %s\n", p.LocalIdentifier)
	for _, lang := range slices.Sorted(maps.Keys(p.Titles)) {
		for _, t := range p.Titles[lang] {
			fmt.Printf("  Title [%s]: %s\n", lang, truncateString(t, SearchTitleMaxLen))
		}
	}

	var ids []string
	for _, id := range p.Identifiers {
		ids = append(ids, id.Scheme+":"+id.Value)
	}
	fmt.Printf("  Identifiers: %s\n", joinOr(ids))

	var names []string
	for _, c := range p.Contributions {
		if c.By != nil {
			names = append(names, c.By.Base().Name)
		}
	}
	fmt.Printf("  Contributors: %s\n", joinOr(names))

	var topics []string
	for _, t := range p.Topics {
		if label, ok := t.Term.Labels["en"]; ok {
			topics = append(topics, label)
		} else {
			topics = append(topics, t.Term.LocalIdentifier)
		}
	}
	fmt.Printf("  Topics: %s\n", joinOr(topics))
	fmt.Printf("  Grants: %d\n", len(p.Funding))
}
