package irys

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"irys-monitor/internal/infra/log"

	"github.com/shopspring/decimal"
)

type balanceResponse struct {
	Balance string `json:"balance"`
}

// NodeInfo is the subset of GET /info used for funding.
type NodeInfo struct {
	Version   string            `json:"version"`
	Addresses map[string]string `json:"addresses"`
	Gateway   string            `json:"gateway"`
}

// Balance returns the wallet's prepaid balance on the node, in token units.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("/account/balance/%s?address=%s", c.token, url.QueryEscape(c.Address()))

	var resp balanceResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return decimal.Zero, err
	}
	atomic, err := decimal.NewFromString(strings.TrimSpace(resp.Balance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q: %w", resp.Balance, err)
	}
	return c.FromAtomic(atomic), nil
}

// Price quotes the cost of uploading size bytes, in token units.
func (c *Client) Price(ctx context.Context, size int) (decimal.Decimal, error) {
	if size < 0 {
		return decimal.Zero, fmt.Errorf("invalid upload size %d", size)
	}
	body, err := c.get(ctx, fmt.Sprintf("/price/%s/%s", c.token, strconv.Itoa(size)))
	if err != nil {
		return decimal.Zero, err
	}
	raw := strings.Trim(strings.TrimSpace(string(body)), `"`)
	atomic, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return c.FromAtomic(atomic), nil
}

// Info fetches node metadata, including deposit addresses.
func (c *Client) Info(ctx context.Context) (*NodeInfo, error) {
	body, err := c.get(ctx, "/info")
	if err != nil {
		return nil, err
	}
	log.LogJSON(body, "Irys node info")

	var info NodeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode /info response: %w", err)
	}
	return &info, nil
}

// DepositAddress is where funding transfers for the client's token must be sent.
func (c *Client) DepositAddress(ctx context.Context) (string, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return "", err
	}
	addr := strings.TrimSpace(info.Addresses[c.token])
	if addr == "" {
		return "", fmt.Errorf("node has no deposit address for %s", c.token)
	}
	return addr, nil
}
