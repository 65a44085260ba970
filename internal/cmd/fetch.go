package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	"github.com/Hamhunter23/verifi-data-agent/internal/metrics"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	"github.com/Hamhunter23/verifi-data-agent/internal/output"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a record with a structured request",
	Long: `Send a structured request directly to the dispatcher, skipping interpretation.

Direct requests count against the requester's quota.

Examples:
  verifi fetch --kind crypto_price --id bitcoin --param currency=eur
  verifi fetch --kind carbon_footprint --id greencorp --param scope=company --output markdown`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("kind", "", "Entity kind (see 'verifi kinds')")
	fetchCmd.Flags().String("id", "", "Identifier within the kind")
	fetchCmd.Flags().StringArray("param", nil, "Parameter as key=value (repeatable)")
	fetchCmd.Flags().String("requester", "cli", "Requester identity for quota accounting")
	fetchCmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown")

	_ = fetchCmd.MarkFlagRequired("kind")
	_ = fetchCmd.MarkFlagRequired("id")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kindFlag, _ := cmd.Flags().GetString("kind")
	identifier, _ := cmd.Flags().GetString("id")
	paramFlags, _ := cmd.Flags().GetStringArray("param")
	requester, _ := cmd.Flags().GetString("requester")
	outputFlag, _ := cmd.Flags().GetString("output")

	format, err := output.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	params, err := parseParams(paramFlags)
	if err != nil {
		return err
	}

	req := core.StructuredRequest{
		Kind:       core.EntityKind(strings.TrimSpace(kindFlag)),
		Identifier: identifier,
		Parameters: params,
	}

	cfg := mustLoadConfig(ctx)
	rt, err := buildAgent(ctx, cfg, observability.CLILogger)
	if err != nil {
		return err
	}
	defer rt.Close() // nolint:errcheck // best-effort cleanup

	resp, fetchErr := rt.HandleStructured(ctx, requester, req)
	metrics.RecordOperation("fetch", fetchErr == nil)

	rendered, err := output.NewFormatter(format).FormatResult(&output.Result{
		Request:  req,
		Response: resp,
		Err:      fetchErr,
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
		return err
	}
	return fetchErr
}

// parseParams turns repeated key=value flags into a parameter map.
func parseParams(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", raw)
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}
