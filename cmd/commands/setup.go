package commands

import (
	"fmt"

	"irys-monitor/internal/infra/config"
	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/jobs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadConfig reads configuration for cmd and sets up logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, jobs.ConfigurationError("config", err)
	}

	if err := log.Setup(log.Options{Dir: cfg.Log.Dir, Debug: cfg.Log.Debug, Console: cfg.Log.Console}); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	log.LogDebug("Configuration loaded",
		zap.String("notify_driver", cfg.Notify.Driver),
		zap.String("irys_node", cfg.Irys.NodeURL),
		zap.String("redis_addr", cfg.Redis.Addr))
	return cfg, nil
}
