package domain

import "time"

type EventType string

const (
	EventAuctionCreated      EventType = "auction_created"
	EventBidPlaced           EventType = "bid_placed"
	EventAuctionEnded        EventType = "auction_ended"
	EventAuctionCancelled    EventType = "auction_cancelled"
	EventReturnWithdrawn     EventType = "return_withdrawn"
	EventPriceFeedUpdated    EventType = "price_feed_updated"
	EventFeeRateUpdated      EventType = "fee_rate_updated"
	EventFeeRecipientUpdated EventType = "fee_recipient_updated"
	EventAssetRecovered      EventType = "asset_recovered"
	EventUpgradeAuthorized   EventType = "upgrade_authorized"
)

// Event is the durable audit record emitted by every successful operation.
// Amounts are 18-fractional-digit integers rendered as decimal strings.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AuctionID uint64    `json:"auction_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Asset     *AssetRef `json:"asset,omitempty"`
	Medium    Medium    `json:"medium,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	AmountUsd string    `json:"amount_usd,omitempty"`
	UsdText   string    `json:"usd_text,omitempty"`

	// Settlement fields, populated on auction_ended only.
	Winner       string `json:"winner,omitempty"`
	SellerPayout string `json:"seller_payout,omitempty"`
	FeePayout    string `json:"fee_payout,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
