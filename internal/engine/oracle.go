package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"auction-house/internal/domain"
)

// Fixed-point scales: oracle prices carry 8 fractional digits, amounts and
// USD values carry 18.
const (
	priceDecimals  = 8
	amountDecimals = 18
)

var (
	priceScaleGap = new(big.Int).Exp(big.NewInt(10), big.NewInt(amountDecimals-priceDecimals), nil)
	amountScale   = new(big.Int).Exp(big.NewInt(10), big.NewInt(amountDecimals), nil)
)

// PriceOracleAdapter converts raw payment amounts into informational
// USD-equivalents. The value is advisory only: it enriches events and read
// queries and never gates acceptance or settlement.
type PriceOracleAdapter struct {
	mu      sync.RWMutex
	sources map[domain.Medium]domain.PriceSource
}

func NewPriceOracleAdapter() *PriceOracleAdapter {
	return &PriceOracleAdapter{
		sources: make(map[domain.Medium]domain.PriceSource),
	}
}

// Register sets the price source for a medium, replacing any prior one.
// The native medium uses its single default source; tokens need an explicit
// registration each.
func (o *PriceOracleAdapter) Register(medium domain.Medium, source domain.PriceSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources[medium] = source
}

func (o *PriceOracleAdapter) source(medium domain.Medium) (domain.PriceSource, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sources[medium]
	return s, ok
}

// ConvertToUsd normalizes amount (18 fractional digits) by the latest price
// (8 fractional digits) into an 18-fractional-digit USD value:
//
//	usd = amount * price * 10^10 / 10^18
func (o *PriceOracleAdapter) ConvertToUsd(ctx context.Context, amount *big.Int, medium domain.Medium) (*big.Int, error) {
	src, ok := o.source(medium)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOracleUnavailable, medium)
	}

	price, _, err := src.LatestPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("query price source for %s: %w", medium, err)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, medium)
	}

	usd := new(big.Int).Mul(amount, price)
	usd.Mul(usd, priceScaleGap)
	usd.Quo(usd, amountScale)
	return usd, nil
}

// UsdText renders an 18-fractional-digit USD value as a human-readable
// decimal string, e.g. "3000.5".
func UsdText(usd *big.Int) string {
	if usd == nil {
		return ""
	}
	return decimal.NewFromBigInt(usd, -amountDecimals).String()
}
