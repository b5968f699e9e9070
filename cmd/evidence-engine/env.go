// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/secrets"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show which API keys are configured",
	Long:  `Env reports each API key the engine reads, masked, and where it is expected.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, k := range secrets.Keys {
			value := secrets.Lookup(loadedSecrets, k)
			mark := "✗"
			if value != "" {
				mark = "✓"
			}
			fmt.Fprintf(out, "%s %-18s %s  (.secrets/%s)\n", mark, k.Env, secrets.Mask(value), k.File)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}
