package domain

import (
	"context"
	"math/big"
	"time"
)

// Store interfaces. The engine owns no storage; everything it mutates lives
// behind these so the logic layer can be redeployed without migrating state.

type AuctionStore interface {
	// CreateAuction assigns the next monotonically increasing id and persists
	// the record.
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID uint64) (*Auction, error)
	UpdateAuction(ctx context.Context, auction *Auction) error
	// ListAuctions returns every historical record.
	ListAuctions(ctx context.Context) ([]*Auction, error)
}

type LockStore interface {
	GetLock(ctx context.Context, asset AssetRef) (uint64, bool, error)
	PutLock(ctx context.Context, asset AssetRef, auctionID uint64) error
	DeleteLock(ctx context.Context, asset AssetRef) error
}

type ReturnStore interface {
	PendingReturn(ctx context.Context, key ReturnKey) (*big.Int, error)
	CreditPendingReturn(ctx context.Context, key ReturnKey, amount *big.Int) error
	SetPendingReturn(ctx context.Context, key ReturnKey, amount *big.Int) error
}

type UpgradeStore interface {
	AuthorizedVersion(ctx context.Context) (string, error)
	SetAuthorizedVersion(ctx context.Context, version string) error
}

type Store interface {
	AuctionStore
	LockStore
	ReturnStore
	UpgradeStore
}

// External collaborator contracts.

// AssetRegistry is the system of record for unique assets: ownership,
// transfer approvals and custodial transfers.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, asset AssetRef) (string, error)
	// ApprovedOperator returns the single account approved to move this asset.
	ApprovedOperator(ctx context.Context, asset AssetRef) (string, error)
	// IsApprovedForAll reports a blanket approval from owner to operator.
	IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error)
	Transfer(ctx context.Context, asset AssetRef, from, to string) error
}

// FungibleLedger moves funds in one payment medium. TransferFrom is the
// pull-transfer used for token bids and must fail rather than silently
// under-deliver.
type FungibleLedger interface {
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender string) (*big.Int, error)
	Transfer(ctx context.Context, from, to string, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, from, to string, amount *big.Int) error
}

// PriceSource reports the latest signed price for one medium, with 8
// fractional digits.
type PriceSource interface {
	LatestPrice(ctx context.Context) (*big.Int, time.Time, error)
}

// Event interfaces

type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

type EventHandler func(event *Event) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// Leader election interface, used so only one instance runs the settlement
// sweeper.
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
