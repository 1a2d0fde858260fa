package discord

// Discord webhook sink
// POSTs {"content": "..."} as JSON and treats anything outside 2xx as a failed delivery
// No retries here: a failed delivery fails the run and the scheduler decides what happens next

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/notify"

	"go.uber.org/zap"
)

type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Client     *http.Client
}

type Client struct {
	webhookURL string
	client     *http.Client
}

type payload struct {
	Content string `json:"content"`
}

func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("discord webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{webhookURL: webhookURL, client: hc}, nil
}

// Send delivers msg.Content. Attachments are not sent to Discord.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	body, err := json.Marshal(payload{Content: msg.Content})
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}

	requestID := log.GenerateRequestID()
	start := time.Now()
	log.LogRequest(requestID, http.MethodPost, "discord webhook")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("Failed to send Discord notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", "discord webhook"))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Failed to send Discord notification: %s", statusText(resp))
	}
	return nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
