package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/storage"
)

func init() {
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Append a harvested study to the JSONL file",
	Long: `Append one harvested study record to the JSONL source file.

The record is read from the file argument, or from stdin when it is omitted
or "-". Run 'skgif rebuild' afterwards to make it searchable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	mustEnsureDataDir(cfg)

	data := mustReadInput(args)
	s, err := storage.ParseStudy(data)
	if err != nil {
		exitWithError(ExitDataError, "invalid study: %v", err)
	}
	if err := storage.Append(cfg.StudiesPath(), data); err != nil {
		exitWithError(ExitError, "appending study: %v", err)
	}

	if humanOutput {
		fmt.Printf("Added study %s to %s\n", s.ID(), cfg.StudiesPath())
	} else {
		outputJSON(StatusResponse{Status: "added", Path: cfg.StudiesPath(), Count: 1})
	}
	return nil
}

// mustReadInput reads the file named by the first argument, or stdin.
func mustReadInput(args []string) []byte {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitWithError(ExitError, "reading input: %v", err)
	}
	return data
}
