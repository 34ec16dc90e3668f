package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/climate-net/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration without running it",
		Long: `Check a configuration against the schema and the semantic rules.

Every problem is listed with the field it concerns. Exits non-zero
when the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				printValidationErrors(cmd, err)
				return fmt.Errorf("configuration is invalid: %w", err)
			}

			agentsTotal := 0
			for _, t := range cfg.Agents {
				agentsTotal += t.Count
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (digest %s)\n", cfg.Digest())
			fmt.Fprintf(out, "  agent types: %d (%s agents)\n", len(cfg.Agents), humanize.Comma(int64(agentsTotal)))
			fmt.Fprintf(out, "  regions:     %d\n", len(cfg.Regions))
			fmt.Fprintf(out, "  network:     %s\n", cfg.Network.Strategy)
			fmt.Fprintf(out, "  rules:       %d chronic, %d acute\n", len(cfg.Climate.ChronicRules), len(cfg.Climate.ShockRules))
			return nil
		},
	}
}

// printValidationErrors lists each joined error on its own line.
func printValidationErrors(cmd *cobra.Command, err error) {
	out := cmd.ErrOrStderr()
	var multi interface{ Unwrap() []error }
	if errors.As(err, &multi) {
		for _, e := range multi.Unwrap() {
			printValidationErrors(cmd, e)
		}
		return
	}
	var ve *config.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(out, "  %s: %v\n", ve.Field, ve.Err)
		return
	}
	fmt.Fprintf(out, "  %v\n", err)
}
