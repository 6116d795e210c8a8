package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/skgif"
)

var topicsLanguage string

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Query the ELSST topic catalogue",
}

func init() {
	topicsSearchCmd.Flags().StringVarP(&topicsLanguage, "lang", "l", "en", "Two-letter language of the labels to search")
	topicsCmd.AddCommand(topicsSearchCmd)
	topicsCmd.AddCommand(topicsGetCmd)
	rootCmd.AddCommand(topicsCmd)
}

var topicsSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find topics whose labels contain a term",
	Long: `Find ELSST concepts with a preferred or alternative label containing the
term, ignoring case. The term must be at least 3 characters long.

Example:
  skgif topics search poverty --lang de`,
	Args: cobra.ExactArgs(1),
	RunE: runTopicsSearch,
}

var topicsGetCmd = &cobra.Command{
	Use:   "get <uri>",
	Short: "Show one topic by URI",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicsGet,
}

func runTopicsSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	cat := mustLoadTopics(cfg, newLogger(cfg.Log))

	concepts, err := cat.Search(args[0], topicsLanguage)
	if err != nil {
		exitWithError(ExitError, "searching topics: %v", err)
	}

	if humanOutput {
		if len(concepts) == 0 {
			fmt.Println("No topics found")
			return nil
		}
		for _, c := range concepts {
			fmt.Printf("%s\n   %s\n", c.ID, c.PrefLabels[topicsLanguage])
		}
		return nil
	}

	graph := make([]any, len(concepts))
	for i, c := range concepts {
		graph[i] = c.Term()
	}
	outputJSON(skgif.Wrap(graph, nil))
	return nil
}

func runTopicsGet(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	cat := mustLoadTopics(cfg, newLogger(cfg.Log))

	c, ok := cat.Get(args[0])
	if !ok {
		exitWithError(ExitNotFound, "topic not found: %s", args[0])
	}

	if humanOutput {
		fmt.Printf("%s\n", c.ID)
		for _, lang := range slices.Sorted(maps.Keys(c.PrefLabels)) {
			fmt.Printf("  [%s] %s\n", lang, c.PrefLabels[lang])
		}
		if c.Broader != "" {
			fmt.Printf("  Broader: %s\n", c.Broader)
		}
		return nil
	}
	outputJSON(skgif.Wrap([]any{c.Term()}, nil))
	return nil
}
