package engine

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

const feeRateDenominator = 10000

// Engine is the auction marketplace core: lifecycle state machine, bidding,
// escrow and settlement. Every exported operation either runs to completion
// or is rejected with no observable side effect; a single mutex makes calls
// linearizable, so no operation ever sees another mid-flight.
type Engine struct {
	mu      sync.Mutex
	store   domain.Store
	assets  domain.AssetRegistry
	ledgers map[domain.Medium]domain.FungibleLedger
	oracle  *PriceOracleAdapter
	events  domain.EventPublisher
	log     logger.Logger
	clock   func() time.Time

	admin        string
	escrow       string
	feeRateBps   uint64
	feeRecipient string
	version      string
}

// Params carries the fixed identities and initial policy of the engine.
type Params struct {
	Admin        string
	Escrow       string
	FeeRateBps   uint64
	FeeRecipient string
	Version      string
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func New(
	store domain.Store,
	assets domain.AssetRegistry,
	oracle *PriceOracleAdapter,
	events domain.EventPublisher,
	params Params,
	log logger.Logger,
) (*Engine, error) {
	if store == nil || assets == nil || oracle == nil || events == nil {
		return nil, fmt.Errorf("engine: store, assets, oracle and events are required")
	}
	if params.Admin == "" || params.Escrow == "" {
		return nil, fmt.Errorf("engine: admin and escrow accounts are required")
	}
	if params.FeeRateBps > feeRateDenominator {
		return nil, domain.ErrInvalidFeeRate
	}
	if params.FeeRecipient == "" {
		params.FeeRecipient = params.Admin
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	version := params.Version
	if version == "" {
		version = "1.0.0"
	}

	return &Engine{
		store:        store,
		assets:       assets,
		ledgers:      make(map[domain.Medium]domain.FungibleLedger),
		oracle:       oracle,
		events:       events,
		log:          log,
		clock:        clock,
		admin:        params.Admin,
		escrow:       params.Escrow,
		feeRateBps:   params.FeeRateBps,
		feeRecipient: params.FeeRecipient,
		version:      version,
	}, nil
}

// Version identifies the deployed logic. Storage lives behind domain.Store,
// so a new version can be rolled out against existing state once authorized.
func (e *Engine) Version() string {
	return e.version
}

func (e *Engine) ledger(medium domain.Medium) (domain.FungibleLedger, error) {
	l, ok := e.ledgers[medium]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMedium, medium)
	}
	return l, nil
}

func isPositive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}
