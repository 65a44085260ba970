package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/engine"
	"github.com/Hamhunter23/verifi-data-agent/internal/output"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List supported entity kinds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFlag, _ := cmd.Flags().GetString("output")
		format, err := output.ParseFormat(outputFlag)
		if err != nil {
			return err
		}

		cfg := mustLoadConfig(cmd.Context())
		sources, err := buildSources(cfg)
		if err != nil {
			return err
		}
		registry, err := engine.NewRegistry(sources...)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatKinds((&agent.Agent{Catalog: registry}).Kinds())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	kindsCmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown")
}
