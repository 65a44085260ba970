package cmd

import (
	"context"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}

	loadedConfig *config.Config
	loadOnce     sync.Once
	loadErr      error
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Verifiable data agent",
	Long: `verifi answers questions about crypto prices, education credentials,
supply chains, carbon footprints and reputation scores, with the source and
retrieval time attached to every answer.

Use the subcommands to ask questions, fetch records directly, or run the HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/verifi/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace interpreter requests/responses to NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig sets up the CLI logger and optional tracing. Configuration itself
// is loaded lazily by loadConfig so commands that need none never fail on it.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	if traceFile != "" {
		cleanup, err := driver.EnableTracing(traceFile)
		if err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			observability.CLILogger.Debug("Interpreter tracing enabled", zap.String("file", traceFile))
			// closed on process exit
			_ = cleanup
		}
	}
}

// loadConfig loads the layered configuration once per process.
func loadConfig(ctx context.Context) (*config.Config, error) {
	loadOnce.Do(func() {
		loadedConfig, loadErr = config.LoadFile(ctx, cfgFile, flagOverrides())
		if loadErr == nil && observability.CLILogger != nil {
			observability.CLILogger.Debug("Configuration loaded",
				zap.String("store_driver", loadedConfig.Store.Driver),
				zap.Int("quota_threshold", loadedConfig.Quota.Threshold))
		}
	})
	return loadedConfig, loadErr
}

// mustLoadConfig exits with ExitConfigInvalid when configuration cannot be loaded.
func mustLoadConfig(ctx context.Context) *config.Config {
	cfg, err := loadConfig(ctx)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	return cfg
}

// flagOverrides collects command flags bound through viper into a runtime
// override layer. Only flags the user actually set are included.
func flagOverrides() map[string]any {
	overrides := map[string]any{}
	for _, key := range []string{"server.host", "server.port"} {
		if viper.IsSet(key) {
			section, field, _ := strings.Cut(key, ".")
			sub, _ := overrides[section].(map[string]any)
			if sub == nil {
				sub = map[string]any{}
				overrides[section] = sub
			}
			sub[field] = viper.Get(key)
		}
	}
	return overrides
}
