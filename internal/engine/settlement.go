package engine

import (
	"context"
	"fmt"
	"math/big"

	"auction-house/internal/domain"
)

// EndAuction settles a finished auction: fee computation, asset transfer to
// the winner, payouts to seller and fee recipient, lock release, terminal
// status. Anyone may settle once the end time has passed; the seller may
// settle early. Requires at least one bid.
//
// Settlement is all-or-nothing. Escrow custody of the asset and escrow
// balance are verified before any state changes, so the outbound transfers
// cannot fail on funds or ownership afterwards; payouts draw only on the
// winning bid already held in escrow.
func (e *Engine) EndAuction(ctx context.Context, caller string, auctionID uint64) (*domain.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.Status != domain.AuctionActive {
		return nil, domain.ErrAuctionNotActive
	}
	if !auction.HasBid() {
		return nil, domain.ErrNoBids
	}
	if e.clock().Before(auction.EndTime) && caller != auction.Seller {
		return nil, domain.ErrAuctionNotEnded
	}

	ledger, err := e.ledger(auction.Medium)
	if err != nil {
		return nil, err
	}
	if err := e.assertEscrowHoldings(ctx, ledger, auction); err != nil {
		return nil, err
	}

	feeAmount, sellerAmount := splitFee(auction.HighestBid, e.feeRateBps)
	feeRecipient := e.feeRecipient

	auction.Status = domain.AuctionEnded
	auction.UpdatedAt = e.clock()
	if err := e.store.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}
	if err := e.store.DeleteLock(ctx, auction.Asset); err != nil {
		return nil, err
	}

	if err := e.assets.Transfer(ctx, auction.Asset, e.escrow, auction.HighestBidder); err != nil {
		return nil, fmt.Errorf("transfer %s to winner: %w", auction.Asset, err)
	}
	if err := ledger.Transfer(ctx, e.escrow, auction.Seller, sellerAmount); err != nil {
		return nil, fmt.Errorf("pay out seller: %w", err)
	}
	if feeAmount.Sign() > 0 {
		if err := ledger.Transfer(ctx, e.escrow, feeRecipient, feeAmount); err != nil {
			return nil, fmt.Errorf("pay out fee recipient: %w", err)
		}
	}

	e.log.Info("Auction ended",
		"auction_id", auction.ID, "winner", auction.HighestBidder,
		"winning_bid", auction.HighestBid.String(),
		"seller_payout", sellerAmount.String(), "fee_payout", feeAmount.String())

	e.emit(ctx, &domain.Event{
		Type:         domain.EventAuctionEnded,
		AuctionID:    auction.ID,
		Actor:        caller,
		Asset:        &auction.Asset,
		Medium:       auction.Medium,
		Amount:       auction.HighestBid.String(),
		Winner:       auction.HighestBidder,
		SellerPayout: sellerAmount.String(),
		FeePayout:    feeAmount.String(),
	})

	return auction.Clone(), nil
}

// CancelAuction aborts a listing that has received no bids: the asset goes
// back to the seller, the lock is released and the record becomes Cancelled.
// Only the seller or the administrator may cancel.
func (e *Engine) CancelAuction(ctx context.Context, caller string, auctionID uint64) (*domain.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.Status != domain.AuctionActive {
		return nil, domain.ErrAuctionNotActive
	}
	if auction.HasBid() {
		return nil, domain.ErrAuctionHasBids
	}
	if caller != auction.Seller && caller != e.admin {
		return nil, domain.ErrNotAuthorized
	}

	auction.Status = domain.AuctionCancelled
	auction.UpdatedAt = e.clock()
	if err := e.store.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}
	if err := e.store.DeleteLock(ctx, auction.Asset); err != nil {
		return nil, err
	}

	if err := e.assets.Transfer(ctx, auction.Asset, e.escrow, auction.Seller); err != nil {
		return nil, fmt.Errorf("return %s to seller: %w", auction.Asset, err)
	}

	e.log.Info("Auction cancelled", "auction_id", auction.ID, "caller", caller)

	e.emit(ctx, &domain.Event{
		Type:      domain.EventAuctionCancelled,
		AuctionID: auction.ID,
		Actor:     caller,
		Asset:     &auction.Asset,
		Medium:    auction.Medium,
	})

	return auction.Clone(), nil
}

func (e *Engine) assertEscrowHoldings(ctx context.Context, ledger domain.FungibleLedger, auction *domain.Auction) error {
	owner, err := e.assets.OwnerOf(ctx, auction.Asset)
	if err != nil {
		return fmt.Errorf("query custody of %s: %w", auction.Asset, err)
	}
	if owner != e.escrow {
		return fmt.Errorf("escrow lost custody of %s: held by %s", auction.Asset, owner)
	}
	balance, err := ledger.BalanceOf(ctx, e.escrow)
	if err != nil {
		return fmt.Errorf("query escrow balance on %s: %w", auction.Medium, err)
	}
	if balance.Cmp(auction.HighestBid) < 0 {
		return fmt.Errorf("escrow balance %s below winning bid %s", balance, auction.HighestBid)
	}
	return nil
}

// splitFee computes floor(bid * feeRateBps / 10000) and the seller remainder.
// The two always sum to bid exactly.
func splitFee(bid *big.Int, feeRateBps uint64) (fee, seller *big.Int) {
	fee = new(big.Int).Mul(bid, new(big.Int).SetUint64(feeRateBps))
	fee.Quo(fee, big.NewInt(feeRateDenominator))
	seller = new(big.Int).Sub(bid, fee)
	return fee, seller
}
