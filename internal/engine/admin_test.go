package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-house/internal/domain"
)

func TestSetFeeRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SetFeeRate(ctx, adminAccount, 500))
	assert.Equal(t, uint64(500), f.engine.FeeRate(ctx))

	// Bounds: the full denominator is legal, anything above is not.
	require.NoError(t, f.engine.SetFeeRate(ctx, adminAccount, 10000))
	assert.ErrorIs(t, f.engine.SetFeeRate(ctx, adminAccount, 10001), domain.ErrInvalidFeeRate)
	assert.Equal(t, uint64(10000), f.engine.FeeRate(ctx))

	assert.ErrorIs(t, f.engine.SetFeeRate(ctx, seller, 100), domain.ErrNotAuthorized)

	events := f.eventsOfType(domain.EventFeeRateUpdated)
	assert.Len(t, events, 2)
}

func TestSetFeeRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SetFeeRecipient(ctx, adminAccount, "new-treasury"))
	assert.Error(t, f.engine.SetFeeRecipient(ctx, adminAccount, ""))
	assert.ErrorIs(t, f.engine.SetFeeRecipient(ctx, seller, "mine"), domain.ErrNotAuthorized)

	// Subsequent settlements pay the new recipient.
	auction := f.listAuction(t)
	f.bidNative(t, bidder1, auction.ID, units(4))
	_, err := f.engine.EndAuction(ctx, seller, auction.ID)
	require.NoError(t, err)

	fee, _ := splitFee(units(4), 250)
	assert.Equal(t, fee, f.nativeBalance(t, "new-treasury"))
	assert.Equal(t, "0", f.nativeBalance(t, treasury).String())
}

func TestRegisterPriceSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.RegisterPriceSource(ctx, seller, domain.MediumNative, newFixedPrice(1))
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, f.engine.RegisterPriceSource(ctx, adminAccount,
		domain.MediumNative, newFixedPrice(3000_0000_0000)))

	auction := f.listAuction(t)
	f.bidNative(t, bidder1, auction.ID, units(2))

	details, err := f.engine.GetAuctionDetails(ctx, auction.ID)
	require.NoError(t, err)
	require.NotNil(t, details.HighestBidUsd)
	assert.Equal(t, units(6000), details.HighestBidUsd)

	events := f.eventsOfType(domain.EventPriceFeedUpdated)
	assert.Len(t, events, 1)
}

func TestRegisterLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Error(t, f.engine.RegisterLedger(ctx, adminAccount, "XYZ", nil))
	assert.ErrorIs(t, f.engine.RegisterLedger(ctx, seller, "XYZ", f.native), domain.ErrNotAuthorized)
}

func TestAuthorizeUpgrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.AuthorizeUpgrade(ctx, seller, "2.0.0"), domain.ErrNotAuthorized)
	assert.Error(t, f.engine.AuthorizeUpgrade(ctx, adminAccount, ""))

	require.NoError(t, f.engine.AuthorizeUpgrade(ctx, adminAccount, "2.0.0"))

	version, err := f.engine.AuthorizedVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", version)

	// Persisted in the store, not engine memory.
	stored, err := f.store.AuthorizedVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", stored)

	events := f.eventsOfType(domain.EventUpgradeAuthorized)
	require.Len(t, events, 1)
	assert.Equal(t, adminAccount, events[0].Actor)
}
