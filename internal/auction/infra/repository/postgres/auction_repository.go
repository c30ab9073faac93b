package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuctionRepository implements domain.AuctionRepository interface
type AuctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

const auctionColumns = `id, product_id, vendor_id, starting_price, reserve_price, buy_now_price, min_increment,
        starts_at, ends_at, status, current_bid, total_bids, winning_bid_id, winning_amount, last_bid_at,
        allow_auto_extend, auto_extend_minutes, version, created_at, updated_at`

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	err := row.Scan(
		&a.ID,
		&a.ProductID,
		&a.VendorID,
		&a.StartingPrice,
		&a.ReservePrice,
		&a.BuyNowPrice,
		&a.MinIncrement,
		&a.StartsAt,
		&a.EndsAt,
		&a.Status,
		&a.CurrentBid,
		&a.TotalBids,
		&a.WinningBidID, // pointer to handle NULL
		&a.WinningAmount,
		&a.LastBidAt,
		&a.AllowAutoExtend,
		&a.AutoExtendMinutes,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func collectAuctions(rows pgx.Rows) ([]*domain.Auction, error) {
	defer rows.Close()
	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetByID recupera un Auction por su ID.
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	a, err := scanAuction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, mapErr("get auction", err)
	}
	return a, nil
}

// GetByIDForUpdate locks the auction row for the rest of tx, every bid and settlement
// on the same auction queues behind it
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
	a, err := scanAuction(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, mapErr("lock auction", err)
	}
	return a, nil
}

// Create inserts a new auction, created_at/updated_at come from the aggregate
func (r *AuctionRepository) Create(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
    `
	_, err := tx.Exec(ctx, query,
		a.ID,
		a.ProductID,
		a.VendorID,
		a.StartingPrice,
		a.ReservePrice,
		a.BuyNowPrice,
		a.MinIncrement,
		a.StartsAt,
		a.EndsAt,
		a.Status,
		a.CurrentBid,
		a.TotalBids,
		a.WinningBidID,
		a.WinningAmount,
		a.LastBidAt,
		a.AllowAutoExtend,
		a.AutoExtendMinutes,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return mapErr("create auction", err)
}

// Save writes the mutable lifecycle fields. The version predicate makes a write based on a
// stale read fail instead of overwriting someone else's bid.
func (r *AuctionRepository) Save(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	query := `
        UPDATE auctions
        SET
            status = $2,
            current_bid = GREATEST($3, starting_price),
            total_bids = $4,
            winning_bid_id = $5,
            winning_amount = $6,
            last_bid_at = $7,
            ends_at = $8,
            version = version + 1,
            updated_at = NOW()
        WHERE id = $1 AND version = $9
        RETURNING version, current_bid, updated_at
    `
	err := tx.QueryRow(ctx, query,
		a.ID,
		a.Status,
		a.CurrentBid,
		a.TotalBids,
		a.WinningBidID,
		a.WinningAmount,
		a.LastBidAt,
		a.EndsAt,
		a.Version,
	).Scan(&a.Version, &a.CurrentBid, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("save auction %s at version %d: %w", a.ID, a.Version, domain.ErrConcurrencyConflict)
		}
		return mapErr("save auction", err)
	}
	return nil
}

// List returns auctions matching filter, soonest ending first
func (r *AuctionRepository) List(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.VendorID != nil {
		conds = append(conds, "vendor_id = "+arg(*filter.VendorID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conds = append(conds, "status = ANY("+arg(statuses)+")")
	}
	if filter.StartsBefore != nil {
		conds = append(conds, "starts_at <= "+arg(*filter.StartsBefore))
	}

	query := `SELECT ` + auctionColumns + ` FROM auctions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ends_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list auctions", err)
	}
	auctions, err := collectAuctions(rows)
	return auctions, mapErr("list auctions", err)
}

// ListDue returns drafts whose window started and open auctions whose end passed
func (r *AuctionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Auction, error) {
	query := `
        SELECT ` + auctionColumns + `
        FROM auctions
        WHERE (status = 'draft' AND starts_at <= $1)
           OR (status IN ('draft', 'live') AND ends_at <= $1)
        ORDER BY ends_at ASC
        LIMIT $2
    `
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, mapErr("list due auctions", err)
	}
	auctions, err := collectAuctions(rows)
	return auctions, mapErr("list due auctions", err)
}
