package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/storage"
)

var (
	searchLimit  int
	searchOffset int
	searchTitles []string
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Number of results to skip")
	searchCmd.Flags().StringArrayVarP(&searchTitles, "title", "t", nil, "Search in titles only (can be repeated, uses AND logic)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed studies by title and abstract",
	Long: `Search the study index with SQLite full-text search.

The positional query is matched against titles and abstracts in every
language; --title terms against titles only. All terms must match.

Examples:
  skgif search "election"
  skgif search "voting behaviour" -t parliamentary --limit 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

// SearchResult is the response for the search command.
type SearchResult struct {
	Total   int            `json:"total"`
	Studies []StudySummary `json:"studies"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(searchTitles) == 0 {
		exitWithError(ExitError, "must specify a query or at least one --title")
	}
	if searchLimit < 1 || searchOffset < 0 {
		exitWithError(ExitError, "--limit must be positive and --offset not negative")
	}

	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)
	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	q := storage.Query{Title: searchTitles}
	if len(args) > 0 {
		q.Text = []string{args[0]}
	}

	ctx := cmd.Context()
	total, err := db.SearchCount(ctx, q)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	recs, err := db.Search(ctx, q, searchOffset, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	result := SearchResult{Total: total, Studies: make([]StudySummary, 0, len(recs))}
	for _, rec := range recs {
		result.Studies = append(result.Studies, summarize(rec))
	}

	if humanOutput {
		if len(result.Studies) == 0 {
			fmt.Println("No studies found")
			return nil
		}
		fmt.Printf("Found %d studies (showing %d):\n\n", total, len(result.Studies))
		for i, s := range result.Studies {
			fmt.Printf("%d. %s", searchOffset+i+1, s.ID)
			if s.StudyNumber != "" {
				fmt.Printf(" (%s)", s.StudyNumber)
			}
			fmt.Printf("\n   %s\n\n", truncateString(s.Title, SearchTitleMaxLen))
		}
		return nil
	}
	outputJSON(result)
	return nil
}
