package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"auction-house/internal/domain"
)

type CreateAuctionParams struct {
	Seller       string
	Asset        domain.AssetRef
	Duration     time.Duration
	ReservePrice *big.Int
	Medium       domain.Medium
}

// CreateAuction lists an asset for sale. The seller must own the asset and
// must have approved the escrow account to move it; the asset is pulled into
// escrow custody and locked so it cannot be listed twice.
func (e *Engine) CreateAuction(ctx context.Context, p CreateAuctionParams) (*domain.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.Duration <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	if !isPositive(p.ReservePrice) {
		return nil, domain.ErrInvalidReserve
	}
	if _, err := e.ledger(p.Medium); err != nil {
		return nil, err
	}

	owner, err := e.assets.OwnerOf(ctx, p.Asset)
	if err != nil {
		return nil, fmt.Errorf("query owner of %s: %w", p.Asset, err)
	}
	if owner != p.Seller {
		return nil, domain.ErrAssetNotOwned
	}

	approved, err := e.custodyApproved(ctx, p.Asset, p.Seller)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, domain.ErrAuthorizationMissing
	}

	if _, locked, err := e.store.GetLock(ctx, p.Asset); err != nil {
		return nil, err
	} else if locked {
		return nil, domain.ErrAssetAlreadyLocked
	}

	// Pull the asset into escrow before recording anything.
	if err := e.assets.Transfer(ctx, p.Asset, p.Seller, e.escrow); err != nil {
		return nil, fmt.Errorf("move %s into escrow: %w", p.Asset, err)
	}

	now := e.clock()
	auction := &domain.Auction{
		Seller:       p.Seller,
		Asset:        p.Asset,
		StartTime:    now,
		EndTime:      now.Add(p.Duration),
		ReservePrice: new(big.Int).Set(p.ReservePrice),
		Medium:       p.Medium,
		HighestBid:   new(big.Int),
		Status:       domain.AuctionActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}
	if err := e.store.PutLock(ctx, p.Asset, auction.ID); err != nil {
		return nil, err
	}

	e.log.Info("Auction created",
		"auction_id", auction.ID, "seller", p.Seller, "asset", p.Asset.Key(),
		"reserve", p.ReservePrice.String(), "medium", p.Medium, "end_time", auction.EndTime)

	e.emit(ctx, &domain.Event{
		Type:      domain.EventAuctionCreated,
		AuctionID: auction.ID,
		Actor:     p.Seller,
		Asset:     &auction.Asset,
		Medium:    p.Medium,
		Amount:    p.ReservePrice.String(),
	})

	return auction.Clone(), nil
}

func (e *Engine) custodyApproved(ctx context.Context, asset domain.AssetRef, owner string) (bool, error) {
	operator, err := e.assets.ApprovedOperator(ctx, asset)
	if err != nil {
		return false, fmt.Errorf("query approval for %s: %w", asset, err)
	}
	if operator == e.escrow {
		return true, nil
	}
	all, err := e.assets.IsApprovedForAll(ctx, owner, e.escrow)
	if err != nil {
		return false, fmt.Errorf("query blanket approval for %s: %w", owner, err)
	}
	return all, nil
}

// AuctionDetails is a read model: the record plus an advisory USD view of the
// highest bid, empty when no oracle is registered for the medium.
type AuctionDetails struct {
	Auction       *domain.Auction
	HighestBidUsd *big.Int
}

func (e *Engine) GetAuctionDetails(ctx context.Context, auctionID uint64) (*AuctionDetails, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	details := &AuctionDetails{Auction: auction.Clone()}
	if auction.HasBid() {
		if usd, err := e.oracle.ConvertToUsd(ctx, auction.HighestBid, auction.Medium); err == nil {
			details.HighestBidUsd = usd
		}
	}
	return details, nil
}

// GetActiveAuctions scans every historical record and returns the active
// ones. Linear in total auctions by design.
func (e *Engine) GetActiveAuctions(ctx context.Context) ([]*domain.Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	all, err := e.store.ListAuctions(ctx)
	if err != nil {
		return nil, err
	}

	var active []*domain.Auction
	for _, a := range all {
		if a.Status == domain.AuctionActive {
			active = append(active, a.Clone())
		}
	}
	return active, nil
}
