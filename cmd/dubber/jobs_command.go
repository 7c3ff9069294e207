package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dubber/internal/jobs"
	"dubber/internal/textutil"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var states []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs tracked by the running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reqCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			records, err := newServiceClient(cfg).Jobs(reqCtx, states...)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				if records == nil {
					records = []*jobs.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"Job", "State", "Target", "Voice", "Speed", "Age", "Detail"},
				jobRows(records, time.Now()),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by state (repeatable)")
	return cmd
}

func jobRows(records []*jobs.Record, now time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		speed := "-"
		if rec.EffectiveSpeed > 0 {
			speed = fmt.Sprintf("%.2fx", rec.EffectiveSpeed)
			if rec.BoundExceeded {
				speed += "*"
			}
		}
		detail := rec.InputName
		if rec.ErrorMessage != "" {
			detail = fmt.Sprintf("%s: %s", rec.FailedStage, rec.ErrorMessage)
		}
		rows = append(rows, []string{
			shortID(rec.ID),
			rec.State.Label(),
			rec.TargetLanguage,
			rec.Voice,
			speed,
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			textutil.Ellipsize(detail, 48),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
