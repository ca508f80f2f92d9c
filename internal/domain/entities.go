package domain

import (
	"fmt"
	"math/big"
	"time"
)

// Medium identifies the currency a seller accepts for an auction. The native
// medium settles through the house's native ledger; any other value names a
// fungible token ledger registered with the engine.
type Medium string

const MediumNative Medium = "native"

// AssetRef identifies a unique item inside an asset registry.
type AssetRef struct {
	Registry string `json:"registry"`
	ItemID   string `json:"item_id"`
}

func (a AssetRef) Key() string {
	return a.Registry + "/" + a.ItemID
}

func (a AssetRef) String() string {
	return a.Key()
}

type Auction struct {
	ID            uint64
	Seller        string
	Asset         AssetRef
	StartTime     time.Time
	EndTime       time.Time
	ReservePrice  *big.Int
	Medium        Medium
	HighestBidder string
	HighestBid    *big.Int
	Status        AuctionStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasBid reports whether at least one bid has been accepted.
func (a *Auction) HasBid() bool {
	return a.HighestBid != nil && a.HighestBid.Sign() > 0
}

func (a *Auction) Clone() *Auction {
	c := *a
	if a.ReservePrice != nil {
		c.ReservePrice = new(big.Int).Set(a.ReservePrice)
	}
	if a.HighestBid != nil {
		c.HighestBid = new(big.Int).Set(a.HighestBid)
	}
	return &c
}

type AuctionStatus int

const (
	AuctionActive AuctionStatus = iota
	AuctionEnded
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ReturnKey identifies a pending-return balance: what the house owes a bidder
// for a specific auction after they were outbid.
type ReturnKey struct {
	Bidder    string
	AuctionID uint64
}

func (k ReturnKey) String() string {
	return fmt.Sprintf("%s/%d", k.Bidder, k.AuctionID)
}
