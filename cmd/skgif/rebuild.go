package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the study index from the JSONL file",
	Long: `Rebuild the SQLite study index from the JSONL source file.

Lines that are not JSON objects or carry no identifier are logged and skipped.
When a study appears more than once, the last line wins.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)
	mustEnsureDataDir(cfg)

	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	count, err := db.RebuildFromJSONL(cfg.StudiesPath())
	if err != nil {
		exitWithError(ExitDataError, "rebuilding study index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt study index with %d studies\n", count)
	} else {
		outputJSON(StatusResponse{Status: "rebuilt", Path: cfg.DBPath(), Count: count})
	}
	return nil
}
