package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	errwrap "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/handlers"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report agent health",
	Long: `Report the agent's health. Without --url the local configuration is checked
and the in-process report printed; with --url the server's /health endpoint is queried.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		baseURL, _ := cmd.Flags().GetString("url")

		if strings.TrimSpace(baseURL) != "" {
			report, err := fetchRemoteHealth(ctx, baseURL)
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Server health check failed", err)
				return
			}
			printHealth(cmd, report.AgentName, report.Status, report.Timestamp)
			return
		}

		if versionInfo.Version == "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewInternalError("version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))

		cfg := mustLoadConfig(ctx)
		report := (&agent.Agent{Name: cfg.Agent.Name}).Health()
		printHealth(cmd, report.AgentName, report.Status, report.Timestamp.Format(time.RFC3339))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().String("url", "", "Base URL of a running verifi server")
}

func fetchRemoteHealth(ctx context.Context, baseURL string) (*handlers.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}

	var report handlers.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode health report: %w", err)
	}
	return &report, nil
}

func printHealth(cmd *cobra.Command, name, status, timestamp string) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Agent:     %s\n", name)
	_, _ = fmt.Fprintf(out, "Status:    %s\n", status)
	_, _ = fmt.Fprintf(out, "Timestamp: %s\n", timestamp)
}
