package config

import "strings"

// Secret names a credential a task needs. Notification resolves to the
// variables of the configured driver.
type Secret string

const (
	SecretIrysKey      Secret = "IRYS_PRIVATE_KEY"
	SecretRPC          Secret = "ANKR_RPC"
	SecretDatabase     Secret = "POSTGRES_CONNECTION_STRING"
	SecretNotification Secret = "NOTIFICATION"
)

// Missing returns the environment variable names of every unset secret, in
// the order requested and without duplicates.
func (c *Config) Missing(secrets ...Secret) []string {
	var missing []string
	seen := make(map[string]bool)
	check := func(name, value string) {
		if strings.TrimSpace(value) != "" || seen[name] {
			return
		}
		seen[name] = true
		missing = append(missing, name)
	}

	for _, s := range secrets {
		switch s {
		case SecretIrysKey:
			check(string(s), c.Irys.PrivateKey)
		case SecretRPC:
			check(string(s), c.Irys.RPCURL)
		case SecretDatabase:
			check(string(s), c.Database.DSN)
		case SecretNotification:
			if c.Notify.Driver == DriverTelegram {
				check("TELEGRAM_BOT_TOKEN", c.Notify.TelegramBotToken)
				check("TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)
			} else {
				check("DISCORD_WEBHOOK_URL", c.Notify.DiscordWebhookURL)
			}
		}
	}
	return missing
}
