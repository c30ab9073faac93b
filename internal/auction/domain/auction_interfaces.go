package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner opens the transactions every write runs in. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// AuctionFilter narrows auction listings. Zero values mean no restriction.
type AuctionFilter struct {
	VendorID *uuid.UUID
	Statuses []AuctionStatus
	// StartsBefore keeps auctions whose window started before the given instant
	StartsBefore *time.Time
	Limit        int
	Offset       int
}

type AuctionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	// GetByIDForUpdate loads the auction and holds its row lock until tx ends
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Auction, error)
	Create(ctx context.Context, tx pgx.Tx, a *Auction) error
	// Save persists the mutable fields if a.Version still matches the stored one and bumps it,
	// otherwise it returns ErrConcurrencyConflict
	Save(ctx context.Context, tx pgx.Tx, a *Auction) error
	List(ctx context.Context, filter AuctionFilter) ([]*Auction, error)
	// ListDue returns open auctions that reconciling at now would change
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Auction, error)
}

type BidRepository interface {
	Save(ctx context.Context, tx pgx.Tx, bid *Bid) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, bidID uuid.UUID, status BidStatus) error
	// MarkWinner sets winnerID to winning and every other non cancelled bid of the auction
	// to outbid, in one statement
	MarkWinner(ctx context.Context, tx pgx.Tx, auctionID, winnerID uuid.UUID) error
	CancelAll(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) error
	// GetTopBid returns the best ranked non cancelled bid or nil. tx may be nil.
	GetTopBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Bid, error)
	GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
	GetBidsByBidderID(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]*Bid, error)
}
