package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository interface
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

const bidColumns = `id, seq, auction_id, product_id, vendor_id, bidder_id, amount, status, is_auto_bid, created_at`

// rankOrder is the ledger form of domain.Outranks
const rankOrder = `amount DESC, created_at ASC, seq ASC`

func scanBid(row pgx.Row) (*domain.Bid, error) {
	bid := &domain.Bid{}
	err := row.Scan(
		&bid.ID,
		&bid.Seq,
		&bid.AuctionID,
		&bid.ProductID,
		&bid.VendorID,
		&bid.BidderID,
		&bid.Amount,
		&bid.Status,
		&bid.IsAutoBid,
		&bid.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func collectBids(rows pgx.Rows) ([]*domain.Bid, error) {
	defer rows.Close()
	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

// Save inserts a new bid and reads back its ledger sequence. Bids are never updated here,
// only their status through UpdateStatus/MarkWinner/CancelAll.
func (r *BidRepository) Save(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, auction_id, product_id, vendor_id, bidder_id, amount, status, is_auto_bid, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING seq
    `
	err := tx.QueryRow(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.ProductID,
		bid.VendorID,
		bid.BidderID,
		bid.Amount,
		bid.Status,
		bid.IsAutoBid,
		bid.CreatedAt,
	).Scan(&bid.Seq)
	return mapErr("save bid", err)
}

func (r *BidRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, bidID uuid.UUID, status domain.BidStatus) error {
	tag, err := tx.Exec(ctx, `UPDATE bids SET status = $2, updated_at = NOW() WHERE id = $1`, bidID, status)
	if err != nil {
		return mapErr("update bid status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBidNotFound
	}
	return nil
}

// MarkWinner hands the winning status over in a single statement so no reader ever sees two
// winners; the deferred exclusion constraint backs this up at commit.
func (r *BidRepository) MarkWinner(ctx context.Context, tx pgx.Tx, auctionID, winnerID uuid.UUID) error {
	query := `
        UPDATE bids
        SET status = CASE WHEN id = $2 THEN 'winning' ELSE 'outbid' END,
            updated_at = NOW()
        WHERE auction_id = $1
          AND status <> 'cancelled'
          AND status <> CASE WHEN id = $2 THEN 'winning' ELSE 'outbid' END
    `
	_, err := tx.Exec(ctx, query, auctionID, winnerID)
	return mapErr("mark winner", err)
}

func (r *BidRepository) CancelAll(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE bids SET status = 'cancelled', updated_at = NOW() WHERE auction_id = $1 AND status <> 'cancelled'`, auctionID)
	return mapErr("cancel bids", err)
}

func (r *BidRepository) GetTopBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1 AND status <> 'cancelled'
        ORDER BY ` + rankOrder + `
        LIMIT 1
    `
	bid, err := scanBid(pick(tx, r.pool).QueryRow(ctx, query, auctionID))
	if err != nil {
		//no bids on this auction yet
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapErr("get top bid", err)
	}
	return bid, nil
}

// GetBidsByAuctionID returns the ledger of an auction ranked best first
func (r *BidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY (status = 'cancelled') ASC, ` + rankOrder
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, mapErr("get auction bids", err)
	}
	bids, err := collectBids(rows)
	return bids, mapErr("get auction bids", err)
}

// GetBidsByBidderID returns a bidder's bids, newest first
func (r *BidRepository) GetBidsByBidderID(ctx context.Context, bidderID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE bidder_id = $1
        ORDER BY created_at DESC, seq DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, query, bidderID, limit, offset)
	if err != nil {
		return nil, mapErr("get bidder bids", err)
	}
	bids, err := collectBids(rows)
	return bids, mapErr("get bidder bids", err)
}
