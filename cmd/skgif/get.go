package main

import (
	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/skgif"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an indexed study as an SKG-IF product",
	Long: `Look up a study in the index by aggregator identifier or study number and
print it as an SKG-IF product.

Examples:
  skgif get 2a5b6c...
  skgif get FSD3412 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)

	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	rec, err := db.Get(cmd.Context(), args[0])
	if err != nil {
		exitWithError(ExitError, "getting study: %v", err)
	}
	if rec == nil {
		exitWithError(ExitNotFound, "study not found: %s", args[0])
	}

	svc := mustBuildServices(cfg, logger, nil)
	product := mustTransform(cmd.Context(), svc, logger, rec)

	if humanOutput {
		printProductHuman(product)
		return nil
	}
	outputJSON(skgif.WrapProducts([]*skgif.Product{product}, nil))
	return nil
}
