package domain

import "errors"

// Validation errors
var (
	ErrInvalidDuration = errors.New("auction duration must be positive")
	ErrInvalidReserve  = errors.New("reserve price must be positive")
	ErrInvalidAmount   = errors.New("amount must be a positive integer")
	ErrInvalidFeeRate  = errors.New("fee rate must be between 0 and 10000 basis points")
	ErrUnknownMedium   = errors.New("no ledger registered for payment medium")
)

// Authorization errors
var (
	ErrAssetNotOwned        = errors.New("caller does not own the asset")
	ErrAuthorizationMissing = errors.New("custody transfer not approved for the escrow account")
	ErrNotAuthorized        = errors.New("caller is not authorized for this operation")
)

// State errors
var (
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrAssetAlreadyLocked = errors.New("asset is already listed in an active auction")
	ErrAssetLocked        = errors.New("asset is held by an active auction")
	ErrAuctionNotActive   = errors.New("auction is not active")
	ErrAuctionNotStarted  = errors.New("auction has not started")
	ErrAuctionExpired     = errors.New("auction bidding window has closed")
	ErrAuctionNotEnded    = errors.New("auction end time has not been reached")
	ErrNoBids             = errors.New("auction has no bids")
	ErrAuctionHasBids     = errors.New("auction already has bids")
)

// Payment errors
var (
	ErrPaymentMismatch   = errors.New("submitted payment does not match bid amount")
	ErrBidTooLow         = errors.New("bid does not exceed current highest bid")
	ErrBelowReserve      = errors.New("bid is below the reserve price")
	ErrInsufficientFunds = errors.New("insufficient balance or allowance")
	ErrNoPendingReturn   = errors.New("no pending return to withdraw")
)

// Oracle errors
var (
	ErrOracleUnavailable = errors.New("no price source registered for medium")
	ErrInvalidPrice      = errors.New("price source returned a non-positive price")
)
