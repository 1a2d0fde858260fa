package irys

// Client for an Irys bundler node
// Transport layer: rate limiting, circuit breaker, retries for idempotent GETs
// Knows nothing about thresholds or reports, only balances, prices, funding and uploads

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"irys-monitor/internal/infra/log"
	"irys-monitor/internal/infra/retry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultNodeURL is the mainnet bundler node.
	DefaultNodeURL = "https://node1.irys.xyz"
	// DefaultGatewayURL serves uploaded data items by id.
	DefaultGatewayURL = "https://gateway.irys.xyz"
	// DefaultToken is the payment token used by the jobs.
	DefaultToken = "matic"

	maxResponseSize = 1 << 20
)

var getRetry = retry.Options{
	MaxRetries: 3,
	BaseDelay:  300 * time.Millisecond,
	MaxDelay:   5 * time.Second,
	Backoff:    2.0,
}

type Config struct {
	NodeURL    string
	Token      string
	PrivateKey string // hex, with or without 0x
	RPCURL     string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Chain overrides the RPC-backed sender used for funding.
	Chain ChainSender
}

type Client struct {
	nodeURL        string
	token          string
	rpcURL         string
	key            *ecdsa.PrivateKey
	address        common.Address
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	chain          ChainSender
}

// NewClient parses the wallet key and prepares the transport. No network calls are made.
func NewClient(cfg Config) (*Client, error) {
	rawKey := strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x")
	if rawKey == "" {
		return nil, errors.New("irys private key is required")
	}
	key, err := crypto.HexToECDSA(rawKey)
	if err != nil {
		return nil, fmt.Errorf("invalid irys private key: %w", err)
	}

	nodeURL := strings.TrimRight(strings.TrimSpace(cfg.NodeURL), "/")
	if nodeURL == "" {
		nodeURL = DefaultNodeURL
	}
	token := strings.ToLower(strings.TrimSpace(cfg.Token))
	if token == "" {
		token = DefaultToken
	}
	if _, err := decimalsFor(token); err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		nodeURL:     nodeURL,
		token:       token,
		rpcURL:      strings.TrimSpace(cfg.RPCURL),
		key:         key,
		address:     crypto.PubkeyToAddress(key.PublicKey),
		httpClient:  hc,
		rateLimiter: rate.NewLimiter(rate.Limit(5), 10),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "IrysNode",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		chain: cfg.Chain,
	}, nil
}

// Address is the wallet address the balance is held under.
func (c *Client) Address() string {
	return strings.ToLower(c.address.Hex())
}

// Currency is the display symbol of the payment token.
func (c *Client) Currency() string {
	return strings.ToUpper(c.token)
}

func (c *Client) Token() string { return c.token }

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var respBody []byte
	err := retry.Do(ctx, getRetry, func() error {
		body, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
		if err != nil {
			return err
		}
		respBody = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("irys GET %s failed: %w", endpoint, err)
	}
	return respBody, nil
}

// post is not retried: funding notifications and uploads are not idempotent from our side.
func (c *Client) post(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	body, err := c.do(ctx, http.MethodPost, endpoint, contentType, payload)
	if err != nil {
		return nil, fmt.Errorf("irys POST %s failed: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, payload []byte) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	requestID := log.GenerateRequestID()
	start := time.Now()
	log.LogRequest(requestID, method, endpoint)

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.nodeURL+endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &retry.HTTPError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       body,
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.LogError("Circuit breaker rejected request", zap.String("request_id", requestID), zap.String("endpoint", endpoint), zap.Error(err))
		}
		return nil, err
	}
	return result.([]byte), nil
}
