package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink"
	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/engine"
	"github.com/Hamhunter23/verifi-data-agent/internal/observability"
)

const doctorChecks = 5

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the runtime, configuration, record cache, data sources and interpreter provider.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := observability.CLILogger
		step := func(n int, label string) string {
			return fmt.Sprintf("[%d/%d] Checking %s...", n, doctorChecks, label)
		}

		log.Info("=== verifi doctor ===")
		healthy := true

		version := crucible.GetVersion()
		log.Info(fmt.Sprintf("%s ✅ %s, gofulmen %s", step(1, "runtime"), runtime.Version(), version.Gofulmen),
			zap.String("go_version", runtime.Version()),
			zap.String("gofulmen_version", version.Gofulmen),
			zap.String("crucible_version", version.Crucible))

		configPath := config.DefaultConfigPath()
		cfg, cfgErr := loadConfig(ctx)
		switch {
		case cfgErr != nil:
			log.Error(step(2, "configuration")+" ❌ "+cfgErr.Error(), zap.Error(cfgErr))
			log.Info("=== End Diagnostics ===")
			return
		case cfgFile != "":
			log.Info(fmt.Sprintf("%s ✅ %s", step(2, "configuration"), cfgFile))
		case fileExists(configPath):
			log.Info(fmt.Sprintf("%s ✅ %s", step(2, "configuration"), configPath))
		default:
			log.Info(fmt.Sprintf("%s ✅ defaults (no file at %s)", step(2, "configuration"), filepath.Dir(configPath)))
		}

		cache, cacheErr := openCache(ctx, cfg)
		switch {
		case cacheErr != nil:
			log.Warn(fmt.Sprintf("%s ⚠️  %s unavailable", step(3, "record cache"), cfg.Store.Driver), zap.Error(cacheErr))
			healthy = false
		case cache == nil:
			log.Info(step(3, "record cache") + " ✅ disabled (cache.ttl is 0)")
		default:
			_ = cache.Close()
			log.Info(fmt.Sprintf("%s ✅ %s (%s, ttl %s)", step(3, "record cache"), cfg.Store.Driver, storeLocation(cfg), cfg.Cache.TTL))
		}

		sources, srcErr := buildSources(cfg)
		if srcErr == nil {
			_, srcErr = engine.NewRegistry(sources...)
		}
		if srcErr != nil {
			log.Error(step(4, "data sources")+" ❌ "+srcErr.Error(), zap.Error(srcErr))
			healthy = false
		} else {
			log.Info(fmt.Sprintf("%s ✅ %d kinds registered", step(4, "data sources"), len(sources)))
		}

		resolved, aiErr := ailink.NewProviders(cfg.AILink).Select(cfg.Interpreter.Role, cfg.Interpreter.Model)
		if aiErr != nil {
			log.Warn(fmt.Sprintf("%s ⚠️  not configured: %v", step(5, "interpreter provider"), aiErr))
			log.Info("       'verifi ask' and chat need an AI provider; 'verifi fetch' works without one.")
			healthy = false
		} else {
			log.Info(fmt.Sprintf("%s ✅ %s via %s (%s)", step(5, "interpreter provider"), resolved.ProviderID, resolved.AIProvider, resolved.Model),
				zap.String("provider", resolved.ProviderID),
				zap.String("model", resolved.Model))
		}

		if healthy {
			log.Info("✅ All checks passed! Your verifi installation is healthy.")
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		log.Info("=== End Diagnostics ===")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
