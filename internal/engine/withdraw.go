package engine

import (
	"context"
	"fmt"
	"math/big"

	"auction-house/internal/domain"
)

// WithdrawPendingReturn pays out the caller's deferred return for an auction.
// The ledger entry is zeroed before the outbound transfer so a reentrant call
// can never draw the same credit twice; if the transfer itself fails the
// entry is restored and the operation has no effect.
func (e *Engine) WithdrawPendingReturn(ctx context.Context, caller string, auctionID uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	ledger, err := e.ledger(auction.Medium)
	if err != nil {
		return nil, err
	}

	key := domain.ReturnKey{Bidder: caller, AuctionID: auctionID}
	amount, err := e.store.PendingReturn(ctx, key)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, domain.ErrNoPendingReturn
	}

	if err := e.store.SetPendingReturn(ctx, key, new(big.Int)); err != nil {
		return nil, err
	}
	if err := ledger.Transfer(ctx, e.escrow, caller, amount); err != nil {
		if restoreErr := e.store.SetPendingReturn(ctx, key, amount); restoreErr != nil {
			e.log.Error("Failed to restore pending return after transfer failure",
				"bidder", caller, "auction_id", auctionID, "error", restoreErr)
		}
		return nil, fmt.Errorf("pay out pending return: %w", err)
	}

	e.log.Info("Pending return withdrawn",
		"auction_id", auctionID, "bidder", caller, "amount", amount.String())

	e.emit(ctx, &domain.Event{
		Type:      domain.EventReturnWithdrawn,
		AuctionID: auctionID,
		Actor:     caller,
		Medium:    auction.Medium,
		Amount:    amount.String(),
	})

	return amount, nil
}

// PendingReturn reads the caller's refundable balance for an auction.
func (e *Engine) PendingReturn(ctx context.Context, caller string, auctionID uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.PendingReturn(ctx, domain.ReturnKey{Bidder: caller, AuctionID: auctionID})
}

// EmergencyAssetRecovery moves a stray asset out of escrow custody. Admin
// only, and never while the asset is locked by an active auction: this is a
// pure custody transfer with no ledger or auction side effects.
func (e *Engine) EmergencyAssetRecovery(ctx context.Context, caller string, asset domain.AssetRef, to string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return domain.ErrNotAuthorized
	}
	if _, locked, err := e.store.GetLock(ctx, asset); err != nil {
		return err
	} else if locked {
		return domain.ErrAssetLocked
	}

	if err := e.assets.Transfer(ctx, asset, e.escrow, to); err != nil {
		return fmt.Errorf("recover %s: %w", asset, err)
	}

	e.log.Warn("Asset recovered from escrow", "asset", asset.Key(), "to", to)

	e.emit(ctx, &domain.Event{
		Type:  domain.EventAssetRecovered,
		Actor: caller,
		Asset: &asset,
	})

	return nil
}
