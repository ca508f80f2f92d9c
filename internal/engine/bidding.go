package engine

import (
	"context"
	"fmt"
	"math/big"

	"auction-house/internal/domain"
)

type BidParams struct {
	Bidder    string
	AuctionID uint64
	Amount    *big.Int
	// Payment is the value submitted alongside a native-medium bid. It must
	// match Amount exactly; overpayment is rejected, not refunded. Ignored
	// for token mediums, which settle by pull transfer.
	Payment *big.Int
}

// PlaceBid validates and applies a bid. Funds are pulled into escrow before
// any state changes; the previous highest bidder is credited a deferred
// return, never paid out in-line, so an unresponsive recipient can never
// block the next bid.
func (e *Engine) PlaceBid(ctx context.Context, p BidParams) (*domain.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, err := e.store.GetAuction(ctx, p.AuctionID)
	if err != nil {
		return nil, err
	}

	if auction.Status != domain.AuctionActive {
		return nil, domain.ErrAuctionNotActive
	}
	now := e.clock()
	if now.Before(auction.StartTime) {
		return nil, domain.ErrAuctionNotStarted
	}
	if !now.Before(auction.EndTime) {
		return nil, domain.ErrAuctionExpired
	}

	if !isPositive(p.Amount) {
		return nil, domain.ErrInvalidAmount
	}
	if p.Amount.Cmp(auction.HighestBid) <= 0 {
		return nil, domain.ErrBidTooLow
	}
	if p.Amount.Cmp(auction.ReservePrice) < 0 {
		return nil, domain.ErrBelowReserve
	}

	ledger, err := e.ledger(auction.Medium)
	if err != nil {
		return nil, err
	}
	if err := e.pullBidFunds(ctx, ledger, auction.Medium, p); err != nil {
		return nil, err
	}

	// Funds are in escrow; now mutate state.
	priorBidder := auction.HighestBidder
	priorBid := auction.HighestBid

	if auction.HasBid() {
		key := domain.ReturnKey{Bidder: priorBidder, AuctionID: auction.ID}
		if err := e.store.CreditPendingReturn(ctx, key, priorBid); err != nil {
			return nil, err
		}
	}

	auction.HighestBidder = p.Bidder
	auction.HighestBid = new(big.Int).Set(p.Amount)
	auction.UpdatedAt = now
	if err := e.store.UpdateAuction(ctx, auction); err != nil {
		return nil, err
	}

	event := &domain.Event{
		Type:      domain.EventBidPlaced,
		AuctionID: auction.ID,
		Actor:     p.Bidder,
		Asset:     &auction.Asset,
		Medium:    auction.Medium,
		Amount:    p.Amount.String(),
	}
	if usd, err := e.oracle.ConvertToUsd(ctx, p.Amount, auction.Medium); err == nil {
		event.AmountUsd = usd.String()
		event.UsdText = UsdText(usd)
	}

	e.log.Info("Bid placed",
		"auction_id", auction.ID, "bidder", p.Bidder, "amount", p.Amount.String(),
		"outbid", priorBidder)

	e.emit(ctx, event)
	return auction.Clone(), nil
}

func (e *Engine) pullBidFunds(ctx context.Context, ledger domain.FungibleLedger, medium domain.Medium, p BidParams) error {
	if medium == domain.MediumNative {
		if p.Payment == nil || p.Payment.Cmp(p.Amount) != 0 {
			return domain.ErrPaymentMismatch
		}
		if err := ledger.Transfer(ctx, p.Bidder, e.escrow, p.Amount); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInsufficientFunds, err)
		}
		return nil
	}

	balance, err := ledger.BalanceOf(ctx, p.Bidder)
	if err != nil {
		return fmt.Errorf("query balance on %s: %w", medium, err)
	}
	allowance, err := ledger.Allowance(ctx, p.Bidder, e.escrow)
	if err != nil {
		return fmt.Errorf("query allowance on %s: %w", medium, err)
	}
	if balance.Cmp(p.Amount) < 0 || allowance.Cmp(p.Amount) < 0 {
		return domain.ErrInsufficientFunds
	}
	if err := ledger.TransferFrom(ctx, e.escrow, p.Bidder, e.escrow, p.Amount); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInsufficientFunds, err)
	}
	return nil
}
