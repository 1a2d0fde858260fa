package commands

// One-shot balance check for the configured Irys wallet

import (
	"fmt"

	"irys-monitor/internal/infra/config"
	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/jobs"
	"irys-monitor/internal/tasks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the current Irys balance",
	RunE:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if missing := cfg.Missing(config.SecretIrysKey); len(missing) > 0 {
		return jobs.MissingSecretsError(missing...)
	}

	client, err := tasks.NewLedger(cfg)
	if err != nil {
		return jobs.ConfigurationError("irys client", err)
	}

	balance, err := client.Balance(cmd.Context())
	if err != nil {
		log.LogError("Failed to fetch balance", zap.Error(err))
		return jobs.FetchError("fetch balance", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Address: %s\n", client.Address())
	fmt.Fprintf(out, "Current Irys balance: %s %s\n", balance.String(), client.Currency())
	return nil
}
