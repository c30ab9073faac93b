package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount           = errors.New("bid amount must be a positive number with at most two decimals")
	ErrAuctionNotFound         = errors.New("auction not found")
	ErrAuctionNotLive          = errors.New("auction is not live")
	ErrOutsideWindow           = errors.New("auction is outside its bidding window")
	ErrSelfBidForbidden        = errors.New("vendors cannot bid on their own auctions")
	ErrBidTooLow               = errors.New("bid amount is too low")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrInvalidTerms            = errors.New("invalid auction terms")
	ErrInvalidStatusTransition = errors.New("invalid auction status transition")
	ErrBidNotFound             = errors.New("bid not found")
	// ErrConcurrencyConflict is internal: the engine retries on it and never hands it to callers
	ErrConcurrencyConflict = errors.New("concurrent modification of auction")
	ErrStorageFailure      = errors.New("storage failure")
)

// BidTooLowError reports the minimum amount the auction would have accepted
type BidTooLowError struct {
	Amount  decimal.Decimal
	Minimum decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s: %s offered, minimum is %s", ErrBidTooLow, e.Amount.StringFixed(2), e.Minimum.StringFixed(2))
}

// Is lets errors.Is(err, ErrBidTooLow) match
func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}

// TermsError names the auction term that failed validation
type TermsError struct {
	Field  string
	Reason string
}

func (e *TermsError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidTerms, e.Field, e.Reason)
}

func (e *TermsError) Is(target error) bool {
	return target == ErrInvalidTerms
}
