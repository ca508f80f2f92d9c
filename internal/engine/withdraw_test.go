package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-house/internal/domain"
)

// brokenLedger fails every outbound transfer while delegating the rest.
type brokenLedger struct {
	domain.FungibleLedger
}

func (brokenLedger) Transfer(ctx context.Context, from, to string, amount *big.Int) error {
	return errors.New("ledger offline")
}

func TestWithdrawPendingReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	auction := f.listAuction(t)
	f.bidNative(t, bidder1, auction.ID, units(1))
	f.bidNative(t, bidder2, auction.ID, units(2))

	withdrawn, err := f.engine.WithdrawPendingReturn(ctx, bidder1, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, units(1), withdrawn)
	assert.Equal(t, units(1), f.nativeBalance(t, bidder1))

	events := f.eventsOfType(domain.EventReturnWithdrawn)
	require.Len(t, events, 1)
	assert.Equal(t, bidder1, events[0].Actor)
	assert.Equal(t, units(1).String(), events[0].Amount)

	// The credit is spent.
	_, err = f.engine.WithdrawPendingReturn(ctx, bidder1, auction.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingReturn)
}

func TestWithdrawPendingReturnNothingOwed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	auction := f.listAuction(t)
	f.bidNative(t, bidder1, auction.ID, units(1))

	// The standing highest bidder has no return to draw.
	_, err := f.engine.WithdrawPendingReturn(ctx, bidder1, auction.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingReturn)

	_, err = f.engine.WithdrawPendingReturn(ctx, bidder2, auction.ID)
	assert.ErrorIs(t, err, domain.ErrNoPendingReturn)

	_, err = f.engine.WithdrawPendingReturn(ctx, bidder1, 999)
	assert.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestWithdrawPendingReturnRestoredOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	auction := f.listAuction(t)
	f.bidNative(t, bidder1, auction.ID, units(1))
	f.bidNative(t, bidder2, auction.ID, units(2))

	require.NoError(t, f.engine.RegisterLedger(ctx, adminAccount,
		domain.MediumNative, brokenLedger{FungibleLedger: f.native}))

	_, err := f.engine.WithdrawPendingReturn(ctx, bidder1, auction.ID)
	require.Error(t, err)

	// Credit survives the failed payout and clears once the ledger recovers.
	require.NoError(t, f.engine.RegisterLedger(ctx, adminAccount,
		domain.MediumNative, f.native))

	withdrawn, err := f.engine.WithdrawPendingReturn(ctx, bidder1, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, units(1), withdrawn)
}

func TestEmergencyAssetRecovery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("admin recovers a stray asset", func(t *testing.T) {
		asset := f.mintAsset("nft", "stray-1", escrowAccount)

		require.NoError(t, f.engine.EmergencyAssetRecovery(ctx, adminAccount, asset, seller))

		owner, err := f.assets.OwnerOf(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, seller, owner)

		events := f.eventsOfType(domain.EventAssetRecovered)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].Asset)
		assert.Equal(t, asset.Key(), events[0].Asset.Key())
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		asset := f.mintAsset("nft", "stray-2", escrowAccount)
		err := f.engine.EmergencyAssetRecovery(ctx, seller, asset, seller)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})

	t.Run("locked asset rejected", func(t *testing.T) {
		auction := f.listAuction(t)
		err := f.engine.EmergencyAssetRecovery(ctx, adminAccount, auction.Asset, seller)
		assert.ErrorIs(t, err, domain.ErrAssetLocked)
	})
}
