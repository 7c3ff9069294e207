package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dubber/internal/language"
	"dubber/internal/voices"
)

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "languages",
		Short:       "List dubbing target languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := language.Catalog()
			if ctx.JSONMode() {
				return writeJSON(cmd, catalog)
			}
			rows := make([][]string, 0, len(catalog))
			for _, lang := range catalog {
				rows = append(rows, []string{lang.Code, lang.Name, language.ToISO3(lang.Code)})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Code", "Language", "ISO 639-2"}, rows, nil))
			return nil
		},
	}
}

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "voices",
		Short:       "List standard synthesis voices",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			list := voices.StandardVoices()
			if ctx.JSONMode() {
				return writeJSON(cmd, list)
			}
			rows := make([][]string, 0, len(list))
			for _, voice := range list {
				rows = append(rows, []string{voice.ID, voice.Name, voice.Description})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"ID", "Name", "Description"}, rows, nil))
			fmt.Fprintln(out, "Cloned voices are per session; list them with GET /voice-clone/list on a running service.")
			return nil
		},
	}
}
