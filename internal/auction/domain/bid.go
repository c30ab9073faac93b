package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidStatus is the ledger status of a bid
type BidStatus string

const (
	BidActive    BidStatus = "active"
	BidOutbid    BidStatus = "outbid"
	BidWinning   BidStatus = "winning"
	BidCancelled BidStatus = "cancelled"
)

// Bid is one entry of the bid ledger. Amount never changes after creation, only Status does.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	ProductID uuid.UUID
	VendorID  uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Status    BidStatus
	// IsAutoBid is reserved for proxy bidding, always false for now
	IsAutoBid bool
	CreatedAt time.Time
	// Seq is the ledger insertion order, assigned by the store
	Seq int64
}

// NewBid creates an active bid against a
func NewBid(id uuid.UUID, a *Auction, bidderID uuid.UUID, amount decimal.Decimal, at time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: a.ID,
		ProductID: a.ProductID,
		VendorID:  a.VendorID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    BidActive,
		CreatedAt: at,
	}
}
