package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuctionRepository implements domain.AuctionRepository on a Store
type AuctionRepository struct {
	s *Store
}

func NewAuctionRepository(s *Store) *AuctionRepository {
	return &AuctionRepository{s: s}
}

func (r *AuctionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	c := cloneAuction(a)
	return &c, nil
}

// GetByIDForUpdate needs no extra locking, tx already holds the store wide one
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	if _, ok := tx.(*memTx); !ok {
		return nil, errNotInTx
	}
	return r.GetByID(ctx, id)
}

func (r *AuctionRepository) Create(_ context.Context, tx pgx.Tx, a *domain.Auction) error {
	return r.s.write(tx, func() error {
		if _, exists := r.s.auctions[a.ID]; exists {
			return fmt.Errorf("create auction: duplicate id %s", a.ID)
		}
		r.s.auctions[a.ID] = cloneAuction(*a)
		return nil
	})
}

func (r *AuctionRepository) Save(_ context.Context, tx pgx.Tx, a *domain.Auction) error {
	return r.s.write(tx, func() error {
		stored, ok := r.s.auctions[a.ID]
		if !ok {
			return domain.ErrAuctionNotFound
		}
		if stored.Version != a.Version {
			return fmt.Errorf("save auction %s at version %d: %w", a.ID, a.Version, domain.ErrConcurrencyConflict)
		}
		if a.CurrentBid.LessThan(a.StartingPrice) {
			a.CurrentBid = a.StartingPrice
		}
		a.Version++
		a.UpdatedAt = time.Now().UTC()
		r.s.auctions[a.ID] = cloneAuction(*a)
		return nil
	})
}

func (r *AuctionRepository) List(_ context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	r.s.mu.RLock()
	var out []*domain.Auction
	for _, a := range r.s.auctions {
		if filter.VendorID != nil && a.VendorID != *filter.VendorID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, a.Status) {
			continue
		}
		if filter.StartsBefore != nil && a.StartsAt.After(*filter.StartsBefore) {
			continue
		}
		c := cloneAuction(a)
		out = append(out, &c)
	}
	r.s.mu.RUnlock()

	sortByEnd(out)
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *AuctionRepository) ListDue(_ context.Context, now time.Time, limit int) ([]*domain.Auction, error) {
	r.s.mu.RLock()
	var out []*domain.Auction
	for _, a := range r.s.auctions {
		if !a.NeedsReconcile(now) {
			continue
		}
		c := cloneAuction(a)
		out = append(out, &c)
	}
	r.s.mu.RUnlock()

	sortByEnd(out)
	return paginate(out, limit, 0), nil
}

func sortByEnd(auctions []*domain.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if !auctions[i].EndsAt.Equal(auctions[j].EndsAt) {
			return auctions[i].EndsAt.Before(auctions[j].EndsAt)
		}
		return auctions[i].ID.String() < auctions[j].ID.String()
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
