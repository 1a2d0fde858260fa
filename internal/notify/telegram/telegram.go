package telegram

// Telegram sink
// Sends the report as a text message, or as a photo with the report as caption
// when the message carries an image; a failed photo falls back to plain text

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram caps photo captions at 1024 characters.
const maxCaptionLength = 1024

type Config struct {
	BotToken string
	ChatID   string
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Client struct {
	bot    sender
	chatID int64
}

// NewClient authorizes the bot (getMe) and returns a sink bound to one chat.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	chatID, err := parseChatID(cfg.ChatID)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(strings.TrimSpace(cfg.BotToken), endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	log.LogInfo("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &Client{bot: bot, chatID: chatID}, nil
}

func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg.Attachment != nil && len(msg.Attachment.Data) > 0 && utf8.RuneCountInString(msg.Content) <= maxCaptionLength {
		photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileBytes{Name: msg.Attachment.Name, Bytes: msg.Attachment.Data})
		photo.Caption = msg.Content
		_, err := c.bot.Send(photo)
		if err == nil {
			return nil
		}
		log.LogWarn("Failed to send report photo, falling back to text", zap.Error(err))
	}

	if _, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, msg.Content)); err != nil {
		return fmt.Errorf("failed to send Telegram notification: %w", err)
	}
	return nil
}

func parseChatID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("telegram chat id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
	}
	return id, nil
}
