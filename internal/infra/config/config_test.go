package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, prev) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "ANKR_RPC", "IRYS_RPC_URL", "NOTIFY_DRIVER")

	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "https://node1.irys.xyz", cfg.Irys.NodeURL)
	assert.Equal(t, "matic", cfg.Irys.Token)
	assert.Empty(t, cfg.Irys.RPCURL)
	assert.Equal(t, []string{"ANKR_RPC"}, cfg.Missing(SecretRPC))
	assert.Equal(t, 30*time.Second, cfg.Irys.RequestTimeout)
	assert.Equal(t, DriverDiscord, cfg.Notify.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Worker.LockTTL)

	assert.True(t, cfg.Tasks.BudgetCheck.Enabled)
	assert.Equal(t, "0 * * * *", cfg.Tasks.BudgetCheck.Cron)
	assert.Equal(t, "Asia/Tokyo", cfg.Tasks.BudgetCheck.Timezone)
	assert.Equal(t, "0.1", cfg.Tasks.BudgetCheck.Threshold.String())
	assert.Equal(t, "1", cfg.Tasks.BudgetCheck.FundAmount.String())
	assert.False(t, cfg.Tasks.BudgetCheck.Upload)

	assert.Equal(t, "1.1", cfg.Tasks.BudgetUpload.Threshold.String())
	assert.True(t, cfg.Tasks.BudgetUpload.Upload)

	assert.Equal(t, "UTC", cfg.Tasks.MintStats.Timezone)
}

func TestLoad_EnvAliases(t *testing.T) {
	t.Setenv("IRYS_PRIVATE_KEY", " 0xabc ")
	t.Setenv("ANKR_RPC", "https://rpc.ankr.com/polygon/key")
	t.Setenv("POSTGRES_CONNECTION_STRING", "postgres://user:pass@db/neondb?sslmode=require")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "0xabc", cfg.Irys.PrivateKey)
	assert.Equal(t, "https://rpc.ankr.com/polygon/key", cfg.Irys.RPCURL)
	assert.Equal(t, "postgres://user:pass@db/neondb?sslmode=require", cfg.Database.DSN)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.Notify.DiscordWebhookURL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "POSTGRES_CONNECTION_STRING")
	envFile := writeFile(t, ".env", "POSTGRES_CONNECTION_STRING=postgres://from-env-file/db\n")

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env-file/db", cfg.Database.DSN)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
tasks:
  budget_check:
    threshold: 0.25
    fund_amount: "2"
  budget_upload:
    enabled: false
  mint_stats:
    cron: "30 * * * *"
report:
  chart: true
worker:
  lock_ttl: 90s
`)

	cfg, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "0.25", cfg.Tasks.BudgetCheck.Threshold.String())
	assert.Equal(t, "2", cfg.Tasks.BudgetCheck.FundAmount.String())
	assert.False(t, cfg.Tasks.BudgetUpload.Enabled)
	assert.Equal(t, "30 * * * *", cfg.Tasks.MintStats.Cron)
	assert.True(t, cfg.Report.Chart)
	assert.Equal(t, 90*time.Second, cfg.Worker.LockTTL)
}

func TestLoad_InvalidDecimal(t *testing.T) {
	path := writeFile(t, "config.yaml", "tasks:\n  budget_check:\n    threshold: lots\n")

	_, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoad_NonPositiveFundAmount(t *testing.T) {
	for _, amount := range []string{"0", "-1"} {
		path := writeFile(t, "config.yaml", "tasks:\n  budget_check:\n    fund_amount: \""+amount+"\"\n")

		_, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
		assert.EqualError(t, err, "tasks.budget_check: fund_amount must be positive, got "+amount)
	}
}

func TestLoad_DisabledBudgetTaskSkipsValidation(t *testing.T) {
	path := writeFile(t, "config.yaml", "tasks:\n  budget_upload:\n    enabled: false\n    fund_amount: \"0\"\n")

	cfg, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	assert.True(t, cfg.Tasks.BudgetUpload.FundAmount.IsZero())
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("NOTIFY_DRIVER", "slack")

	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	assert.EqualError(t, err, `notify.driver must be "discord" or "telegram", got "slack"`)
}

func TestLoad_Flags(t *testing.T) {
	unsetEnv(t, "NOTIFY_DRIVER", "WORKER_CONCURRENCY")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--notify.driver=telegram", "--worker.concurrency=4"}))

	cfg, err := Load(Options{Flags: fs, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, DriverTelegram, cfg.Notify.Driver)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
}

func TestMissing(t *testing.T) {
	cfg := &Config{Notify: NotifyConfig{Driver: DriverDiscord}}

	assert.Equal(t, []string{"IRYS_PRIVATE_KEY", "DISCORD_WEBHOOK_URL"},
		cfg.Missing(SecretIrysKey, SecretNotification, SecretIrysKey))

	cfg.Irys.PrivateKey = "0xabc"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	assert.Empty(t, cfg.Missing(SecretIrysKey, SecretNotification))

	assert.Equal(t, []string{"POSTGRES_CONNECTION_STRING"}, cfg.Missing(SecretDatabase))
}

func TestMissing_Telegram(t *testing.T) {
	cfg := &Config{Notify: NotifyConfig{Driver: DriverTelegram, TelegramBotToken: "123:abc"}}

	assert.Equal(t, []string{"TELEGRAM_CHAT_ID"}, cfg.Missing(SecretNotification))
}
