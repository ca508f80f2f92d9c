package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/memory"
	"auction-house/pkg/logger"
)

const (
	adminAccount  = "admin"
	escrowAccount = "escrow"
	treasury      = "treasury"
	seller        = "alice"
	bidder1       = "bob"
	bidder2       = "carol"

	tokenMedium = domain.Medium("AUX")
)

// unit is 10^18, one whole payment unit.
var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var itemSeq uint64

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), unit)
}

// tenthUnits returns n * 0.1 units.
func tenthUnits(n int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(n), unit)
	return v.Quo(v, big.NewInt(10))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *Engine
	store  *memory.Store
	assets *memory.AssetRegistry
	native *memory.Ledger
	token  *memory.Ledger
	oracle *PriceOracleAdapter
	events *memory.EventLog
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.NewStore(),
		assets: memory.NewAssetRegistry(),
		native: memory.NewLedger(),
		token:  memory.NewLedger(),
		oracle: NewPriceOracleAdapter(),
		events: memory.NewEventLog(),
		clock:  newFakeClock(),
	}

	eng, err := New(f.store, f.assets, f.oracle, f.events, Params{
		Admin:        adminAccount,
		Escrow:       escrowAccount,
		FeeRateBps:   250,
		FeeRecipient: treasury,
		Clock:        f.clock.Now,
	}, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, eng.RegisterLedger(ctx, adminAccount, domain.MediumNative, f.native))
	require.NoError(t, eng.RegisterLedger(ctx, adminAccount, tokenMedium, f.token))

	f.engine = eng
	return f
}

// mintAsset creates an asset owned by owner with custody approval already
// granted to escrow.
func (f *fixture) mintAsset(registry, itemID, owner string) domain.AssetRef {
	asset := domain.AssetRef{Registry: registry, ItemID: itemID}
	f.assets.Mint(asset, owner)
	f.assets.Approve(asset, escrowAccount)
	return asset
}

// listAuction creates a 7-day native-medium auction with a 1-unit reserve
// unless overridden.
func (f *fixture) listAuction(t *testing.T, opts ...func(*CreateAuctionParams)) *domain.Auction {
	t.Helper()

	asset := f.mintAsset("gallery", fmt.Sprintf("item-%d", atomic.AddUint64(&itemSeq, 1)), seller)
	params := CreateAuctionParams{
		Seller:       seller,
		Asset:        asset,
		Duration:     7 * 24 * time.Hour,
		ReservePrice: units(1),
		Medium:       domain.MediumNative,
	}
	for _, opt := range opts {
		opt(&params)
	}

	auction, err := f.engine.CreateAuction(context.Background(), params)
	require.NoError(t, err)
	return auction
}

// bidNative funds the bidder and places an exact-payment native bid.
func (f *fixture) bidNative(t *testing.T, bidder string, auctionID uint64, amount *big.Int) *domain.Auction {
	t.Helper()

	f.native.Mint(bidder, amount)
	auction, err := f.engine.PlaceBid(context.Background(), BidParams{
		Bidder:    bidder,
		AuctionID: auctionID,
		Amount:    amount,
		Payment:   amount,
	})
	require.NoError(t, err)
	return auction
}

func (f *fixture) nativeBalance(t *testing.T, account string) *big.Int {
	t.Helper()
	balance, err := f.native.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return balance
}

// newFixedPrice builds an 8-fractional-digit price source.
func newFixedPrice(price int64) *memory.PriceSource {
	return memory.NewPriceSource(big.NewInt(price))
}

// eventsOfType filters the published event log.
func (f *fixture) eventsOfType(eventType domain.EventType) []*domain.Event {
	var matched []*domain.Event
	for _, event := range f.events.Events() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
