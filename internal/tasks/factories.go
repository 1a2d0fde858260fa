package tasks

import (
	"context"
	"errors"

	"irys-monitor/internal/clients_api/irys"
	"irys-monitor/internal/datasource"
	"irys-monitor/internal/features/budget"
	"irys-monitor/internal/features/mintstats"
	"irys-monitor/internal/infra/config"
	"irys-monitor/internal/notify"
	"irys-monitor/internal/notify/discord"
	"irys-monitor/internal/notify/telegram"
)

var errNoSink = errors.New("no notification sink configured")

// SinkFactory builds the notification sink for one delivery.
type SinkFactory func() (notify.Sink, error)

// Factories construct the external clients of a run.
type Factories struct {
	Ledger budget.LedgerFactory
	Store  mintstats.StoreFactory
	Sink   SinkFactory
}

// NewFactories returns factories that build real clients from cfg.
func NewFactories(cfg *config.Config) Factories {
	return Factories{
		Ledger: func(ctx context.Context) (budget.Ledger, error) {
			c, err := NewLedger(cfg)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Store: func(ctx context.Context) (mintstats.Store, error) {
			ds, err := datasource.Open(ctx, cfg.Database.DSN)
			if err != nil {
				return nil, err
			}
			return ds, nil
		},
		Sink: func() (notify.Sink, error) {
			return NewSink(cfg)
		},
	}
}

// NewLedger builds an Irys client from configuration.
func NewLedger(cfg *config.Config) (*irys.Client, error) {
	return irys.NewClient(irys.Config{
		NodeURL:    cfg.Irys.NodeURL,
		Token:      cfg.Irys.Token,
		PrivateKey: cfg.Irys.PrivateKey,
		RPCURL:     cfg.Irys.RPCURL,
		Timeout:    cfg.Irys.RequestTimeout,
	})
}

// NewSink builds the sink of the configured driver.
func NewSink(cfg *config.Config) (notify.Sink, error) {
	if cfg.Notify.Driver == config.DriverTelegram {
		c, err := telegram.NewClient(telegram.Config{
			BotToken: cfg.Notify.TelegramBotToken,
			ChatID:   cfg.Notify.TelegramChatID,
			Timeout:  cfg.Notify.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := discord.NewClient(discord.Config{
		WebhookURL: cfg.Notify.DiscordWebhookURL,
		Timeout:    cfg.Notify.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// sink adapts the factory to a Sink that builds a fresh client per message.
func (f Factories) sink() notify.Sink {
	return notify.SinkFunc(func(ctx context.Context, msg notify.Message) error {
		if f.Sink == nil {
			return errNoSink
		}
		s, err := f.Sink()
		if err != nil {
			return err
		}
		return s.Send(ctx, msg)
	})
}
