package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dubber/internal/config"
	"dubber/internal/logging"
	"dubber/internal/server"
	"dubber/internal/staging"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var force bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired outputs, stale uploads, and leftover workspaces",
		Long: `Remove expired dubbed outputs, abandoned uploads, and leftover job workspaces.

Outputs older than the configured retention are removed. Uploads and
workspaces older than --older-than are removed. Workspaces are skipped while
the service is running unless --force is given, since a running job may
still be using them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			running, err := server.Running(cfg)
			if err != nil {
				return fmt.Errorf("check instance lock: %w", err)
			}

			logger := logging.NewNop()
			var result staging.CleanResult
			outputs := staging.CleanOutputs(cmd.Context(), cfg.Paths.OutputDir, cfg.OutputRetention(), logger)
			uploads := staging.CleanUploads(cmd.Context(), cfg.Paths.UploadDir, olderThan, logger)
			mergeClean(&result, outputs)
			mergeClean(&result, uploads)
			skippedWork := running && !force
			if !skippedWork {
				mergeClean(&result, staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, olderThan, nil, logger))
			}

			if ctx.JSONMode() {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{
					"removed":            result.Removed,
					"freed_bytes":        result.FreedBytes,
					"errors":             errs,
					"workspaces_skipped": skippedWork,
				})
			}

			out := cmd.OutOrStdout()
			if skippedWork {
				fmt.Fprintln(out, "Service is running; skipping job workspaces (use --force to include them)")
			}
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "Nothing to clean")
				return nil
			}
			fmt.Fprintf(out, "Removed %d entries, freed %s\n", len(result.Removed), humanize.Bytes(uint64(max(result.FreedBytes, 0))))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 6*time.Hour, "Minimum age for uploads and workspaces")
	cmd.Flags().BoolVar(&force, "force", false, "Clean workspaces even while the service is running")
	cmd.AddCommand(newCleanupListCommand(ctx))
	return cmd
}

func mergeClean(dst *staging.CleanResult, src staging.CleanResult) {
	dst.Removed = append(dst.Removed, src.Removed...)
	dst.FreedBytes += src.FreedBytes
	dst.Errors = append(dst.Errors, src.Errors...)
}

func newCleanupListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored uploads, outputs, and workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			areas := storageAreas(cfg)
			listing := make(map[string][]staging.EntryInfo, len(areas))
			for _, area := range areas {
				entries, err := staging.ListEntries(area.dir)
				if err != nil {
					return fmt.Errorf("list %s: %w", area.name, err)
				}
				if entries == nil {
					entries = []staging.EntryInfo{}
				}
				listing[area.name] = entries
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, listing)
			}

			out := cmd.OutOrStdout()
			now := time.Now()
			var total int64
			var rows [][]string
			for _, area := range areas {
				for _, entry := range listing[area.name] {
					total += entry.Size
					rows = append(rows, []string{
						area.name,
						entry.Name,
						humanize.RelTime(entry.ModTime, now, "ago", "from now"),
						humanize.Bytes(uint64(max(entry.Size, 0))),
					})
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No stored files")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"Area", "Name", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d entries, %s\n", len(rows), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

type storageArea struct {
	name string
	dir  string
}

func storageAreas(cfg *config.Config) []storageArea {
	return []storageArea{
		{name: "uploads", dir: cfg.Paths.UploadDir},
		{name: "outputs", dir: cfg.Paths.OutputDir},
		{name: "work", dir: cfg.Paths.WorkDir},
	}
}
