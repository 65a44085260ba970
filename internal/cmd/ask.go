package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	"github.com/Hamhunter23/verifi-data-agent/internal/output"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question in plain language",
	Long: `Interpret a free-text question, fetch the matching record and print the answer.

Examples:
  verifi ask "What is the price of Bitcoin in USD?"
  verifi ask "Show me the supply chain for the Costa Rica coffee" --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("output", "o", "", "Output format: table, json, markdown (default: chat reply)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.TrimSpace(strings.Join(args, " "))

	outputFlag, _ := cmd.Flags().GetString("output")
	var format output.Format
	if outputFlag != "" {
		parsed, err := output.ParseFormat(outputFlag)
		if err != nil {
			return err
		}
		format = parsed
	}

	cfg := mustLoadConfig(ctx)
	rt, err := buildAgent(ctx, cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer rt.Close() // nolint:errcheck // best-effort cleanup

	outcome := rt.Ask(ctx, question)
	metrics.RecordOperation("ask", outcome.Err == nil)
	if outcome.Err != nil {
		observability.CLILogger.Debug("Question not answered",
			zap.String("error_kind", string(core.KindOf(outcome.Err))),
			zap.Error(outcome.Err))
	}

	if format == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), outcome.Message())
		return err
	}

	result := &output.Result{Response: outcome.Response, Err: outcome.Err}
	if outcome.Request != nil {
		result.Request = *outcome.Request
	}
	rendered, err := output.NewFormatter(format).FormatResult(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
