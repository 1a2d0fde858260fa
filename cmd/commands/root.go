package commands

// Root command for Cobra CLI
// Global flags select the config and .env files and override config keys
// Registers worker, run, balance and tasks

import (
	"irys-monitor/internal/infra/config"

	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "irys-monitor",
	Short: "Irys storage budget maintenance and mint statistics reports",
	Long: `irys-monitor keeps the Irys prepaid storage balance above a threshold,
uploads the collection metadata, and posts hourly mint statistics to a chat webhook.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "Path to .env file")
	config.BindFlags(flags)

	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(tasksCmd)
}
