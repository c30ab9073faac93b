package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType represents the type of domain event
type EventType string

const (
	EventBidPlaced        EventType = "bid.placed"
	EventAuctionExtended  EventType = "auction.extended"
	EventAuctionSettled   EventType = "auction.settled"
	EventAuctionCancelled EventType = "auction.cancelled"
)

func (e EventType) String() string {
	return string(e)
}

// Event is emitted after a committed state change of an auction
type Event struct {
	ID         uuid.UUID        `json:"id"`
	Type       EventType        `json:"type"`
	AuctionID  uuid.UUID        `json:"auction_id"`
	BidID      *uuid.UUID       `json:"bid_id,omitempty"`
	BidderID   *uuid.UUID       `json:"bidder_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Status     AuctionStatus    `json:"status"`
	EndsAt     time.Time        `json:"ends_at"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// NewAuctionEvent builds an event carrying the auction state and, when set, the winning bid
func NewAuctionEvent(t EventType, a *Auction, at time.Time) Event {
	evt := Event{
		ID:         uuid.New(),
		Type:       t,
		AuctionID:  a.ID,
		Status:     a.Status,
		EndsAt:     a.EndsAt,
		OccurredAt: at,
	}
	if a.WinningBidID != nil {
		id := *a.WinningBidID
		amount := a.WinningAmount
		evt.BidID = &id
		evt.Amount = &amount
	}
	return evt
}

// EventPublisher delivers events to whatever consumes them downstream
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
