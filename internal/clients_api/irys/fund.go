package irys

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"irys-monitor/internal/infra/log"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChainSender moves native tokens on chain and returns the transaction id.
type ChainSender interface {
	Transfer(ctx context.Context, to string, amount *big.Int) (string, error)
}

// FundReceipt describes a funding transfer registered with the node.
type FundReceipt struct {
	TxID     string          `json:"tx_id"`
	Target   string          `json:"target"`
	Quantity *big.Int        `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type fundRequest struct {
	TxID string `json:"tx_id"`
}

// Fund transfers amount (token units) to the node's deposit address and
// registers the transaction so the node credits the wallet's balance.
func (c *Client) Fund(ctx context.Context, amount decimal.Decimal) (FundReceipt, error) {
	quantity := c.ToAtomic(amount)
	if quantity.Sign() <= 0 {
		return FundReceipt{}, fmt.Errorf("fund amount must be positive, got %s", amount.String())
	}

	target, err := c.DepositAddress(ctx)
	if err != nil {
		return FundReceipt{}, err
	}

	chain, closeChain, err := c.chainSender(ctx)
	if err != nil {
		return FundReceipt{}, err
	}
	defer closeChain()

	txID, err := chain.Transfer(ctx, target, quantity)
	if err != nil {
		return FundReceipt{}, fmt.Errorf("funding transfer failed: %w", err)
	}
	log.LogInfo("Funding transfer sent", zap.String("tx_id", txID), zap.String("target", target), zap.String("amount", amount.String()))

	payload, err := json.Marshal(fundRequest{TxID: txID})
	if err != nil {
		return FundReceipt{}, err
	}
	if _, err := c.post(ctx, "/account/balance/"+c.token, "application/json", payload); err != nil {
		return FundReceipt{}, fmt.Errorf("failed to register funding tx %s: %w", txID, err)
	}

	return FundReceipt{TxID: txID, Target: target, Quantity: quantity, Amount: amount}, nil
}

func (c *Client) chainSender(ctx context.Context) (ChainSender, func(), error) {
	if c.chain != nil {
		return c.chain, func() {}, nil
	}
	if c.rpcURL == "" {
		return nil, nil, errors.New("rpc url is required for funding")
	}
	chain, err := DialChain(ctx, c.rpcURL, c.key)
	if err != nil {
		return nil, nil, err
	}
	return chain, chain.Close, nil
}

// EthChain sends legacy value transfers through a JSON-RPC endpoint.
type EthChain struct {
	client *ethclient.Client
	key    *ecdsa.PrivateKey
	from   common.Address
}

func DialChain(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey) (*EthChain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc: %w", err)
	}
	return &EthChain{client: client, key: key, from: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (e *EthChain) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid deposit address %q", to)
	}
	toAddr := common.HexToAddress(strings.TrimSpace(to))

	chainID, err := e.client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("chain id: %w", err)
	}
	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{From: e.from, To: &toAddr, Value: amount})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount,
		Gas:      gas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), e.key)
	if err != nil {
		return "", fmt.Errorf("sign transfer: %w", err)
	}
	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func (e *EthChain) Close() {
	e.client.Close()
}
