package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	StatusDraft     AuctionStatus = "draft"
	StatusLive      AuctionStatus = "live"
	StatusEnded     AuctionStatus = "ended"
	StatusCancelled AuctionStatus = "cancelled"
)

const (
	DefaultAutoExtendMinutes = 5
	MinAutoExtendMinutes     = 1
	MaxAutoExtendMinutes     = 60
)

// DefaultMinIncrement applies when the terms leave the increment unset
var DefaultMinIncrement = decimal.NewFromInt(1)

// IsOpen reports whether time can still move the auction (draft or live)
func (s AuctionStatus) IsOpen() bool {
	return s == StatusDraft || s == StatusLive
}

// Valid reports whether s is a known status
func (s AuctionStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// Auction is the record of one product put up for bidding.
// WinningBidID/WinningAmount/CurrentBid cache what the bid ledger says and are only
// written together with the matching bid statuses.
type Auction struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	VendorID  uuid.UUID

	StartingPrice decimal.Decimal
	ReservePrice  decimal.Decimal
	BuyNowPrice   decimal.NullDecimal
	MinIncrement  decimal.Decimal
	StartsAt      time.Time
	EndsAt        time.Time

	Status            AuctionStatus
	CurrentBid        decimal.Decimal
	TotalBids         int
	WinningBidID      *uuid.UUID
	WinningAmount     decimal.Decimal
	LastBidAt         *time.Time
	AllowAutoExtend   bool
	AutoExtendMinutes int

	// Version increases on every persisted change, used as the optimistic write predicate
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuctionTerms are the creation time terms of an auction
type AuctionTerms struct {
	StartingPrice     decimal.Decimal
	ReservePrice      decimal.Decimal
	BuyNowPrice       decimal.NullDecimal
	MinIncrement      decimal.Decimal
	StartsAt          time.Time
	EndsAt            time.Time
	AllowAutoExtend   bool
	AutoExtendMinutes int
}

// Validate fills defaults and checks the terms
func (t *AuctionTerms) Validate() error {
	if t.MinIncrement.IsZero() {
		t.MinIncrement = DefaultMinIncrement
	}
	if t.AutoExtendMinutes == 0 {
		t.AutoExtendMinutes = DefaultAutoExtendMinutes
	}

	switch {
	case t.StartingPrice.IsNegative() || !IsMoney(t.StartingPrice):
		return &TermsError{Field: "starting_price", Reason: "must be a non negative amount"}
	case t.ReservePrice.IsNegative() || !IsMoney(t.ReservePrice):
		return &TermsError{Field: "reserve_price", Reason: "must be a non negative amount"}
	case t.BuyNowPrice.Valid && (!t.BuyNowPrice.Decimal.IsPositive() || !IsMoney(t.BuyNowPrice.Decimal)):
		return &TermsError{Field: "buy_now_price", Reason: "must be a positive amount"}
	case !t.MinIncrement.IsPositive() || !IsMoney(t.MinIncrement):
		return &TermsError{Field: "min_increment", Reason: "must be a positive amount"}
	case t.StartsAt.IsZero() || t.EndsAt.IsZero():
		return &TermsError{Field: "starts_at", Reason: "and ends_at are required"}
	case !t.EndsAt.After(t.StartsAt):
		return &TermsError{Field: "ends_at", Reason: "must be after starts_at"}
	case t.AutoExtendMinutes < MinAutoExtendMinutes || t.AutoExtendMinutes > MaxAutoExtendMinutes:
		return &TermsError{Field: "auto_extend_minutes", Reason: "must be between 1 and 60"}
	}
	return nil
}

// NewAuction creates a draft auction for productID owned by vendorID
func NewAuction(id, productID, vendorID uuid.UUID, terms AuctionTerms, now time.Time) (*Auction, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	return &Auction{
		ID:                id,
		ProductID:         productID,
		VendorID:          vendorID,
		StartingPrice:     terms.StartingPrice,
		ReservePrice:      terms.ReservePrice,
		BuyNowPrice:       terms.BuyNowPrice,
		MinIncrement:      terms.MinIncrement,
		StartsAt:          terms.StartsAt,
		EndsAt:            terms.EndsAt,
		Status:            StatusDraft,
		CurrentBid:        terms.StartingPrice, //current bid starts at starting price
		WinningAmount:     decimal.Zero,
		AllowAutoExtend:   terms.AllowAutoExtend,
		AutoExtendMinutes: terms.AutoExtendMinutes,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ExtensionWindow is the anti-snipe window as a duration
func (a *Auction) ExtensionWindow() time.Duration {
	return time.Duration(a.AutoExtendMinutes) * time.Minute
}

// InWindow reports whether now falls in [StartsAt, EndsAt)
func (a *Auction) InWindow(now time.Time) bool {
	return !now.Before(a.StartsAt) && now.Before(a.EndsAt)
}

// MinimumNextBid is the lowest amount the auction accepts right now
func (a *Auction) MinimumNextBid() decimal.Decimal {
	if a.TotalBids == 0 {
		return a.StartingPrice
	}
	return a.CurrentBid.Add(a.MinIncrement)
}

// DueStatus is the status the auction should hold at now. Ended and cancelled never move.
func (a *Auction) DueStatus(now time.Time) AuctionStatus {
	if !a.Status.IsOpen() {
		return a.Status
	}
	if !now.Before(a.EndsAt) {
		return StatusEnded
	}
	if !now.Before(a.StartsAt) {
		return StatusLive
	}
	return a.Status
}

// NeedsSettlement reports whether reconciling at now would close the auction
func (a *Auction) NeedsSettlement(now time.Time) bool {
	return a.Status.IsOpen() && a.DueStatus(now) == StatusEnded
}

// NeedsReconcile reports whether Reconcile at now would change anything
func (a *Auction) NeedsReconcile(now time.Time) bool {
	if !a.Status.IsOpen() {
		return false
	}
	return a.DueStatus(now) != a.Status || a.CurrentBid.LessThan(a.StartingPrice)
}

// Reconcile brings the auction in line with now. top is the highest ranked bid of the
// auction and is only read when the auction closes. Returns true if any field changed.
func (a *Auction) Reconcile(now time.Time, top *Bid) bool {
	if !a.Status.IsOpen() {
		return false
	}

	changed := false
	if a.CurrentBid.LessThan(a.StartingPrice) {
		a.CurrentBid = a.StartingPrice
		changed = true
	}

	switch a.DueStatus(now) {
	case StatusLive:
		if a.Status != StatusLive {
			a.Status = StatusLive
			changed = true
		}
	case StatusEnded:
		a.Settle(top)
		changed = true
	}
	return changed
}

// Settle ends the auction in favour of top, nil meaning nobody bid
func (a *Auction) Settle(top *Bid) {
	a.Status = StatusEnded
	if top == nil {
		a.WinningBidID = nil
		a.WinningAmount = decimal.Zero
		return
	}
	id := top.ID
	a.WinningBidID = &id
	a.WinningAmount = top.Amount
	a.CurrentBid = top.Amount
}

// Cancel forces the auction to cancelled and drops the winner pointer
func (a *Auction) Cancel() error {
	if !a.Status.IsOpen() {
		return ErrInvalidStatusTransition
	}
	a.Status = StatusCancelled
	a.WinningBidID = nil
	a.WinningAmount = decimal.Zero
	return nil
}

// CheckBid runs the bid admission rules against the (already reconciled) auction.
// bidderVendorID is the vendor the bidder works for, nil for plain customers.
func (a *Auction) CheckBid(bidderVendorID *uuid.UUID, amount decimal.Decimal, now time.Time) error {
	if bidderVendorID != nil && *bidderVendorID == a.VendorID {
		return ErrSelfBidForbidden
	}
	if a.Status != StatusLive {
		return ErrAuctionNotLive
	}
	if !a.InWindow(now) {
		return ErrOutsideWindow
	}
	if minimum := a.MinimumNextBid(); amount.LessThan(minimum) {
		return &BidTooLowError{Amount: amount, Minimum: minimum}
	}
	return nil
}

// ApplyBid records bid as the new leader and applies the anti-snipe extension.
// Returns true when EndsAt was pushed forward.
func (a *Auction) ApplyBid(bid *Bid, now time.Time) bool {
	id := bid.ID
	at := now
	a.CurrentBid = bid.Amount
	a.WinningBidID = &id
	a.WinningAmount = bid.Amount
	a.TotalBids++
	a.LastBidAt = &at

	if !a.AllowAutoExtend {
		return false
	}
	window := a.ExtensionWindow()
	remaining := a.EndsAt.Sub(now)
	if remaining > 0 && remaining <= window {
		a.EndsAt = a.EndsAt.Add(window)
		return true
	}
	return false
}
