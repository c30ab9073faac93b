package memory

import (
	"context"
	"sort"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BidRepository implements domain.BidRepository on a Store
type BidRepository struct {
	s *Store
}

func NewBidRepository(s *Store) *BidRepository {
	return &BidRepository{s: s}
}

func (r *BidRepository) Save(_ context.Context, tx pgx.Tx, bid *domain.Bid) error {
	return r.s.write(tx, func() error {
		r.s.seq++
		bid.Seq = r.s.seq
		r.s.bids[bid.ID] = *bid
		return nil
	})
}

func (r *BidRepository) UpdateStatus(_ context.Context, tx pgx.Tx, bidID uuid.UUID, status domain.BidStatus) error {
	return r.s.write(tx, func() error {
		b, ok := r.s.bids[bidID]
		if !ok {
			return domain.ErrBidNotFound
		}
		b.Status = status
		r.s.bids[bidID] = b
		return nil
	})
}

func (r *BidRepository) MarkWinner(_ context.Context, tx pgx.Tx, auctionID, winnerID uuid.UUID) error {
	return r.s.write(tx, func() error {
		for id, b := range r.s.bids {
			if b.AuctionID != auctionID || b.Status == domain.BidCancelled {
				continue
			}
			if id == winnerID {
				b.Status = domain.BidWinning
			} else {
				b.Status = domain.BidOutbid
			}
			r.s.bids[id] = b
		}
		return nil
	})
}

func (r *BidRepository) CancelAll(_ context.Context, tx pgx.Tx, auctionID uuid.UUID) error {
	return r.s.write(tx, func() error {
		for id, b := range r.s.bids {
			if b.AuctionID == auctionID {
				b.Status = domain.BidCancelled
				r.s.bids[id] = b
			}
		}
		return nil
	})
}

func (r *BidRepository) GetTopBid(_ context.Context, _ pgx.Tx, auctionID uuid.UUID) (*domain.Bid, error) {
	top := domain.TopBid(r.byAuction(auctionID))
	return top, nil
}

func (r *BidRepository) GetBidsByAuctionID(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	return domain.RankBids(r.byAuction(auctionID)), nil
}

func (r *BidRepository) GetBidsByBidderID(_ context.Context, bidderID uuid.UUID, limit, offset int) ([]*domain.Bid, error) {
	r.s.mu.RLock()
	var out []*domain.Bid
	for _, b := range r.s.bids {
		if b.BidderID == bidderID {
			c := b
			out = append(out, &c)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return paginate(out, limit, offset), nil
}

func (r *BidRepository) byAuction(auctionID uuid.UUID) []*domain.Bid {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Bid
	for _, b := range r.s.bids {
		if b.AuctionID == auctionID {
			c := b
			out = append(out, &c)
		}
	}
	return out
}
