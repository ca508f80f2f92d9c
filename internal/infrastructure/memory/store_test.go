package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-house/internal/domain"
)

func newAuction(seller string) *domain.Auction {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Auction{
		Seller:       seller,
		Asset:        domain.AssetRef{Registry: "nft", ItemID: "item-1"},
		StartTime:    now,
		EndTime:      now.Add(24 * time.Hour),
		ReservePrice: big.NewInt(100),
		HighestBid:   new(big.Int),
		Medium:       domain.MediumNative,
		Status:       domain.AuctionActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStoreAuctionRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := newAuction("alice")
	require.NoError(t, store.CreateAuction(ctx, first))
	assert.Equal(t, uint64(1), first.ID)

	second := newAuction("bob")
	require.NoError(t, store.CreateAuction(ctx, second))
	assert.Equal(t, uint64(2), second.ID)

	loaded, err := store.GetAuction(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Seller)

	_, err = store.GetAuction(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrAuctionNotFound)

	loaded.Status = domain.AuctionEnded
	require.NoError(t, store.UpdateAuction(ctx, loaded))
	reloaded, err := store.GetAuction(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionEnded, reloaded.Status)

	missing := newAuction("carol")
	missing.ID = 42
	assert.ErrorIs(t, store.UpdateAuction(ctx, missing), domain.ErrAuctionNotFound)

	all, err := store.ListAuctions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].ID)
	assert.Equal(t, uint64(2), all[1].ID)
}

func TestStoreReturnsSnapshots(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	auction := newAuction("alice")
	require.NoError(t, store.CreateAuction(ctx, auction))

	// Mutating a loaded copy must not bleed into the stored record.
	loaded, err := store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	loaded.HighestBid.SetInt64(500)
	loaded.Seller = "mallory"

	fresh, err := store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", fresh.Seller)
	assert.Equal(t, int64(0), fresh.HighestBid.Int64())
}

func TestStoreLocks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	asset := domain.AssetRef{Registry: "nft", ItemID: "item-7"}

	_, locked, err := store.GetLock(ctx, asset)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, store.PutLock(ctx, asset, 3))
	auctionID, locked, err := store.GetLock(ctx, asset)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, uint64(3), auctionID)

	require.NoError(t, store.DeleteLock(ctx, asset))
	_, locked, err = store.GetLock(ctx, asset)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestStorePendingReturns(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	key := domain.ReturnKey{Bidder: "bob", AuctionID: 1}

	amount, err := store.PendingReturn(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Sign())

	require.NoError(t, store.CreditPendingReturn(ctx, key, big.NewInt(100)))
	require.NoError(t, store.CreditPendingReturn(ctx, key, big.NewInt(250)))

	amount, err = store.PendingReturn(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(350), amount)

	require.NoError(t, store.SetPendingReturn(ctx, key, new(big.Int)))
	amount, err = store.PendingReturn(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Sign())
}

func TestStoreAuthorizedVersion(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	version, err := store.AuthorizedVersion(ctx)
	require.NoError(t, err)
	assert.Empty(t, version)

	require.NoError(t, store.SetAuthorizedVersion(ctx, "1.1.0"))
	version, err = store.AuthorizedVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", version)
}
