package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DriverDiscord  = "discord"
	DriverTelegram = "telegram"
)

type Config struct {
	Irys     IrysConfig     `mapstructure:"irys"`
	Database DatabaseConfig `mapstructure:"database"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Report   ReportConfig   `mapstructure:"report"`
	Log      LogConfig      `mapstructure:"log"`
}

type IrysConfig struct {
	NodeURL        string        `mapstructure:"node_url"`
	GatewayURL     string        `mapstructure:"gateway_url"`
	Token          string        `mapstructure:"token"`
	PrivateKey     string        `mapstructure:"private_key"`
	RPCURL         string        `mapstructure:"rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type NotifyConfig struct {
	Driver            string        `mapstructure:"driver"` // discord or telegram
	DiscordWebhookURL string        `mapstructure:"discord_webhook_url"`
	TelegramBotToken  string        `mapstructure:"telegram_bot_token"`
	TelegramChatID    string        `mapstructure:"telegram_chat_id"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	Queue           string        `mapstructure:"queue"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`     // overlap lock lifetime
	TaskTimeout     time.Duration `mapstructure:"task_timeout"` // per-run deadline
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ReportConfig struct {
	Chart bool `mapstructure:"chart"` // attach a PNG card to mint reports
}

type LogConfig struct {
	Dir     string `mapstructure:"dir"`
	Debug   bool   `mapstructure:"debug"`
	Console bool   `mapstructure:"console"`
}

// Options select where configuration is read from. Empty fields use the
// defaults: ./config.yaml, ./.env and no flags.
type Options struct {
	ConfigFile string
	EnvFile    string
	Flags      *pflag.FlagSet
}

// Load reads configuration in order of increasing priority:
// 1. defaults
// 2. config.yaml
// 3. environment (.env is loaded into the environment first)
// 4. flags that were set on the command line
// Unprefixed env names map to keys with dots replaced, e.g. REDIS_ADDR -> redis.addr.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// a missing .env is fine
	_ = godotenv.Load(envFile)

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setupEnvAliases(v)

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	normalize(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) {
	// Secrets keep the names the deployment already uses.
	v.BindEnv("irys.private_key", "IRYS_PRIVATE_KEY")
	v.BindEnv("irys.rpc_url", "ANKR_RPC", "IRYS_RPC_URL")
	v.BindEnv("database.dsn", "POSTGRES_CONNECTION_STRING", "DATABASE_URL")
	v.BindEnv("notify.discord_webhook_url", "DISCORD_WEBHOOK_URL")
	v.BindEnv("notify.telegram_bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram_chat_id", "TELEGRAM_CHAT_ID")
}

func setDefaults(v *viper.Viper) {
	// Irys
	v.SetDefault("irys.node_url", "https://node1.irys.xyz")
	v.SetDefault("irys.gateway_url", "https://gateway.irys.xyz")
	v.SetDefault("irys.token", "matic")
	v.SetDefault("irys.private_key", "")
	v.SetDefault("irys.rpc_url", "")
	v.SetDefault("irys.request_timeout", "30s")

	v.SetDefault("database.dsn", "")

	// Notifications
	v.SetDefault("notify.driver", DriverDiscord)
	v.SetDefault("notify.discord_webhook_url", "")
	v.SetDefault("notify.telegram_bot_token", "")
	v.SetDefault("notify.telegram_chat_id", "")
	v.SetDefault("notify.timeout", "15s")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Worker
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queue", "monitor")
	v.SetDefault("worker.lock_ttl", "10m")
	v.SetDefault("worker.task_timeout", "5m")
	v.SetDefault("worker.shutdown_timeout", "30s")

	setTaskDefaults(v)

	v.SetDefault("report.chart", false)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.console", true)
}

// BindFlags registers the command-line overrides on fs. Flag names match the
// configuration keys.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("irys.node_url", "https://node1.irys.xyz", "Irys bundler node URL")
	fs.String("irys.rpc_url", "", "RPC endpoint used for funding transfers (env: ANKR_RPC)")
	fs.String("notify.driver", DriverDiscord, "Notification driver: discord or telegram")
	fs.String("redis.addr", "127.0.0.1:6379", "Redis address for the scheduler and locks (env: REDIS_ADDR)")
	fs.Int("worker.concurrency", 2, "Number of tasks executed concurrently")
	fs.Bool("report.chart", false, "Attach a chart card to mint reports")
	fs.String("log.dir", "logs", "Directory for log files (env: LOG_DIR)")
	fs.Bool("log.debug", false, "Enable debug logging")
}

func normalize(cfg *Config) {
	cfg.Notify.Driver = strings.ToLower(strings.TrimSpace(cfg.Notify.Driver))
	cfg.Irys.Token = strings.ToLower(strings.TrimSpace(cfg.Irys.Token))
	cfg.Irys.PrivateKey = strings.TrimSpace(cfg.Irys.PrivateKey)
	cfg.Irys.RPCURL = strings.TrimSpace(cfg.Irys.RPCURL)
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)
	cfg.Notify.DiscordWebhookURL = strings.TrimSpace(cfg.Notify.DiscordWebhookURL)
}

// validateConfig checks the shape of the configuration. Secrets are checked
// per task by Missing, since not every command needs every secret.
func validateConfig(cfg *Config) error {
	switch cfg.Notify.Driver {
	case DriverDiscord, DriverTelegram:
	default:
		return fmt.Errorf("notify.driver must be %q or %q, got %q", DriverDiscord, DriverTelegram, cfg.Notify.Driver)
	}
	if cfg.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", cfg.Worker.Concurrency)
	}
	for name, task := range cfg.Tasks.byKey() {
		if err := task.validate(name != "mint_stats"); err != nil {
			return fmt.Errorf("tasks.%s: %w", name, err)
		}
	}
	return nil
}
