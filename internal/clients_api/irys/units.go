package irys

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Base-unit precision of the EVM payment tokens this client can sign for.
var tokenDecimals = map[string]int32{
	"matic":     18,
	"ethereum":  18,
	"base-eth":  18,
	"arbitrum":  18,
	"bnb":       18,
	"avalanche": 18,
}

func decimalsFor(token string) (int32, error) {
	d, ok := tokenDecimals[token]
	if !ok {
		return 0, fmt.Errorf("unsupported irys token %q", token)
	}
	return d, nil
}

// FromAtomic converts a base-unit amount to the human decimal unit.
func (c *Client) FromAtomic(atomic decimal.Decimal) decimal.Decimal {
	d, _ := decimalsFor(c.token)
	return FromAtomic(atomic, d)
}

// ToAtomic converts a human decimal amount to base units, dropping sub-unit precision.
func (c *Client) ToAtomic(amount decimal.Decimal) *big.Int {
	d, _ := decimalsFor(c.token)
	return ToAtomic(amount, d)
}

func FromAtomic(atomic decimal.Decimal, decimals int32) decimal.Decimal {
	return atomic.Shift(-decimals)
}

func ToAtomic(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}
