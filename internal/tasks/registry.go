// Package tasks binds jobs to their schedules, secrets and clients, and runs
// them either once in-process or under the asynq scheduler.
package tasks

import (
	"fmt"

	"irys-monitor/internal/features/budget"
	"irys-monitor/internal/features/mintstats"
	"irys-monitor/internal/infra/config"
	"irys-monitor/internal/jobs"
)

const (
	BudgetCheckID  = "daily-irys-budget-check"
	BudgetUploadID = "daily-irys-budget-check-and-upload"
	MintStatsID    = "hourly-mint-stats"
)

// Definition is one registered task.
type Definition struct {
	ID       string
	Cron     string
	Timezone string
	Enabled  bool
	Requires []config.Secret
	Job      jobs.Job
}

// Registry builds the task definitions from configuration. Jobs receive
// factories, so every run constructs its own clients.
func Registry(cfg *config.Config, f Factories) []Definition {
	notifySink := f.sink()

	budgetDef := func(id string, tc config.TaskConfig) Definition {
		policy := budget.Policy{Threshold: tc.Threshold, FundAmount: tc.FundAmount}
		if tc.Upload {
			upload := budget.DefaultUploadSpec()
			upload.GatewayURL = cfg.Irys.GatewayURL
			policy.Upload = upload
		}
		return Definition{
			ID:       id,
			Cron:     tc.Cron,
			Timezone: tc.Timezone,
			Enabled:  tc.Enabled,
			Requires: []config.Secret{config.SecretIrysKey, config.SecretRPC, config.SecretNotification},
			Job: &budget.Maintainer{
				Policy:    policy,
				NewLedger: f.Ledger,
				Sink:      notifySink,
			},
		}
	}

	reporter := &mintstats.Reporter{
		NewStore: f.Store,
		Sink:     notifySink,
	}
	if cfg.Report.Chart {
		reporter.Chart = mintstats.RenderChart
	}

	return []Definition{
		budgetDef(BudgetCheckID, cfg.Tasks.BudgetCheck),
		budgetDef(BudgetUploadID, cfg.Tasks.BudgetUpload),
		{
			ID:       MintStatsID,
			Cron:     cfg.Tasks.MintStats.Cron,
			Timezone: cfg.Tasks.MintStats.Timezone,
			Enabled:  cfg.Tasks.MintStats.Enabled,
			Requires: []config.Secret{config.SecretDatabase, config.SecretNotification},
			Job:      reporter,
		},
	}
}

// Lookup finds a definition by id.
func Lookup(defs []Definition, id string) (Definition, error) {
	for _, d := range defs {
		if d.ID == id {
			return d, nil
		}
	}
	return Definition{}, jobs.ConfigurationError("tasks", fmt.Errorf("unknown task %q", id))
}

// Enabled filters out disabled definitions.
func Enabled(defs []Definition) []Definition {
	var out []Definition
	for _, d := range defs {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Require fails with a configuration error naming every secret the given
// tasks need but that is not set. It makes no external calls.
func Require(cfg *config.Config, defs ...Definition) error {
	var secrets []config.Secret
	for _, d := range defs {
		secrets = append(secrets, d.Requires...)
	}
	if missing := cfg.Missing(secrets...); len(missing) > 0 {
		return jobs.MissingSecretsError(missing...)
	}
	return nil
}
