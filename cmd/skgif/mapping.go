package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/accessmap"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage the data access mapping",
	Long: `Manage the local copy of the data access mapping, which assigns an access
category to the free-text access conditions of each archive.`,
}

func init() {
	mappingCmd.AddCommand(mappingFetchCmd)
	mappingCmd.AddCommand(mappingRefreshCmd)
	rootCmd.AddCommand(mappingCmd)
}

var mappingFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the mapping unless a local copy exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMapping(cmd.Context(), (*accessmap.Store).Mapping)
	},
}

var mappingRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Discard the local copy and download the mapping again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMapping(cmd.Context(), (*accessmap.Store).Refresh)
	},
}

// MappingInfo summarizes the mapping.
type MappingInfo struct {
	Path     string   `json:"path"`
	Archives []string `json:"archives"`
}

func runMapping(ctx context.Context, load func(*accessmap.Store, context.Context) (accessmap.Mapping, error)) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)
	mustEnsureDataDir(cfg)

	svc := mustBuildServices(cfg, logger, nil)
	m, err := load(svc.access, ctx)
	if err != nil {
		exitWithError(ExitUpstream, "loading access mapping: %v", err)
	}

	info := MappingInfo{Path: cfg.AccessMappingPath(), Archives: slices.Sorted(maps.Keys(m))}
	if humanOutput {
		fmt.Printf("Access mapping at %s covers %d archives: %s\n", info.Path, len(info.Archives), joinOr(info.Archives))
		return nil
	}
	outputJSON(info)
	return nil
}
