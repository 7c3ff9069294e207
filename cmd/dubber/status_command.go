package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dubber/internal/dubbing"
	"dubber/internal/jobs"
	"dubber/internal/preflight"
	"dubber/internal/server"
)

type statusReport struct {
	ConfigPath     string         `json:"config_path"`
	Running        bool           `json:"running"`
	APIReachable   bool           `json:"api_reachable"`
	APIError       string         `json:"api_error,omitempty"`
	CloningEnabled bool           `json:"cloning_enabled"`
	Jobs           map[string]int `json:"jobs,omitempty"`
	Dependencies   []dependency   `json:"dependencies"`
}

type dependency struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Optional  bool   `json:"optional"`
	Detail    string `json:"detail,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service, job, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{ConfigPath: ctx.configPath, CloningEnabled: cfg.CloningEnabled()}

			report.Running, err = server.Running(cfg)
			if err != nil {
				return fmt.Errorf("check instance lock: %w", err)
			}

			reqCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			client := newServiceClient(cfg)
			if health, err := client.Health(reqCtx); err != nil {
				report.APIError = err.Error()
			} else {
				report.APIReachable = true
				report.CloningEnabled = health.CloningEnabled
				if records, err := client.Jobs(reqCtx); err == nil {
					report.Jobs = countByState(records)
				}
			}

			depStatuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			for _, status := range depStatuses {
				report.Dependencies = append(report.Dependencies, dependency{
					Name:      status.Name,
					Available: status.Available,
					Optional:  status.Optional,
					Detail:    status.Detail,
				})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Service", colorize)
			lines = append(lines, renderStatusLine("Config", statusInfo, firstNonEmpty(report.ConfigPath, "defaults"), colorize))
			switch {
			case report.APIReachable:
				lines = append(lines, renderStatusLine("Dubber", statusOK, "Running", colorize))
			case report.Running:
				lines = append(lines, renderStatusLine("Dubber", statusWarn, "Running but API unreachable: "+report.APIError, colorize))
			default:
				lines = append(lines, renderStatusLine("Dubber", statusError, "Not running", colorize))
			}
			cloneKind, cloneMsg := statusOK, "Enabled"
			if !report.CloningEnabled {
				cloneKind, cloneMsg = statusWarn, "Disabled (no MiniMax api_key)"
			}
			lines = append(lines, renderStatusLine("Voice cloning", cloneKind, cloneMsg, colorize))

			if report.Jobs != nil {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Jobs", colorize)...)
				lines = append(lines, jobCountLines(report.Jobs, colorize)...)
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(depStatuses, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func countByState(records []*jobs.Record) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[string(rec.State)]++
	}
	return counts
}

func jobCountLines(counts map[string]int, colorize bool) []string {
	if len(counts) == 0 {
		return []string{renderStatusLine("Jobs", statusInfo, "None", colorize)}
	}
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, state)
	}
	sort.Strings(states)
	lines := make([]string, 0, len(states))
	for _, state := range states {
		kind := statusInfo
		switch dubbing.State(state) {
		case dubbing.StateComplete:
			kind = statusOK
		case dubbing.StateFailed:
			kind = statusError
		}
		lines = append(lines, renderStatusLine(dubbing.State(state).Label(), kind, humanize.Comma(int64(counts[state])), colorize))
	}
	return lines
}
