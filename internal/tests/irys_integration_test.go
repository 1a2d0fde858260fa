//go:build integration

package tests

import (
	"context"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"irys-monitor/internal/clients_api/irys"

	"github.com/ethereum/go-ethereum/crypto"
)

// newIrysClient uses IRYS_PRIVATE_KEY when set, otherwise a throwaway key.
func newIrysClient(t *testing.T) *irys.Client {
	t.Helper()
	key := os.Getenv("IRYS_PRIVATE_KEY")
	if key == "" {
		k, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey failed: %v", err)
		}
		key = hex.EncodeToString(crypto.FromECDSA(k))
	}
	nodeURL := os.Getenv("IRYS_NODE_URL")
	if nodeURL == "" {
		nodeURL = irys.DefaultNodeURL
	}
	c, err := irys.NewClient(irys.Config{NodeURL: nodeURL, PrivateKey: key})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestIntegration_Irys_Price(t *testing.T) {
	c := newIrysClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	price, err := c.Price(ctx, 189)
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if !price.IsPositive() {
		t.Fatalf("expected positive price, got %s", price)
	}
}

func TestIntegration_Irys_BalanceAndDepositAddress(t *testing.T) {
	c := newIrysClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	balance, err := c.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.IsNegative() {
		t.Fatalf("expected non-negative balance, got %s", balance)
	}

	addr, err := c.DepositAddress(ctx)
	if err != nil {
		t.Fatalf("DepositAddress failed: %v", err)
	}
	if addr == "" {
		t.Fatalf("expected deposit address for %s", c.Token())
	}
}
