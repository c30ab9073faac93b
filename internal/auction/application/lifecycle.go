package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// LifecycleSynchronizer keeps stored auctions in line with the clock. Every read and write path
// runs auctions through it before using them, and every close goes through settle.
type LifecycleSynchronizer struct {
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	db          domain.TxBeginner
	events      domain.EventPublisher
	policy      TxPolicy
}

func NewLifecycleSynchronizer(auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	db domain.TxBeginner,
	events domain.EventPublisher,
	policy TxPolicy) *LifecycleSynchronizer {

	return &LifecycleSynchronizer{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		db:          db,
		events:      events,
		policy:      policy,
	}
}

// Reconcile returns a as it should be at now. When something has to change the auction is
// locked, re-read and corrected in one transaction; otherwise a is returned untouched.
func (s *LifecycleSynchronizer) Reconcile(ctx context.Context, a *domain.Auction, now time.Time) (*domain.Auction, error) {
	if !a.NeedsReconcile(now) {
		return a, nil
	}

	var (
		current *domain.Auction
		settled bool
	)
	err := s.policy.run(ctx, "reconcile", func(ctx context.Context) error {
		return runInTx(ctx, s.db, "reconcile", func(tx pgx.Tx) error {
			locked, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			settled, err = s.reconcileLocked(ctx, tx, locked, now)
			current = locked
			return err
		})
	})
	if err != nil {
		return nil, classify(fmt.Errorf("reconcile auction %s: %w", a.ID, err))
	}

	if settled {
		publish(ctx, s.events, domain.NewAuctionEvent(domain.EventAuctionSettled, current, now))
	}
	return current, nil
}

// ReconcileByID loads the auction and reconciles it
func (s *LifecycleSynchronizer) ReconcileByID(ctx context.Context, id uuid.UUID, now time.Time) (*domain.Auction, error) {
	a, err := s.auctionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify(fmt.Errorf("reconcile auction %s: %w", id, err))
	}
	return s.Reconcile(ctx, a, now)
}

// ReconcileAll reconciles every auction of a listing, keeping the order. An auction that fails
// to reconcile is logged and left out of the result.
func (s *LifecycleSynchronizer) ReconcileAll(ctx context.Context, auctions []*domain.Auction, now time.Time) []*domain.Auction {
	out := make([]*domain.Auction, 0, len(auctions))
	for _, a := range auctions {
		current, err := s.Reconcile(ctx, a, now)
		if err != nil {
			log.Warn("Leaving auction out of listing, reconcile failed",
				zap.String("auctionID", a.ID.String()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, current)
	}
	return out
}

// ReconcileDue reconciles open auctions whose clock has moved past one of their boundaries,
// batch at a time and at most maxBatches batches (no limit when maxBatches <= 0).
// Auctions that fail are logged and skipped. Returns how many auctions were corrected.
func (s *LifecycleSynchronizer) ReconcileDue(ctx context.Context, now time.Time, batch, maxBatches int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	total := 0
	failed := make(map[uuid.UUID]struct{})
	for round := 0; maxBatches <= 0 || round < maxBatches; round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		due, err := s.auctionRepo.ListDue(ctx, now, batch)
		if err != nil {
			return total, classify(fmt.Errorf("list due auctions: %w", err))
		}

		progress := 0
		for _, a := range due {
			if _, skip := failed[a.ID]; skip {
				continue
			}
			if _, err := s.Reconcile(ctx, a, now); err != nil {
				log.Warn("Skipping due auction, reconcile failed",
					zap.String("auctionID", a.ID.String()),
					zap.Error(err),
				)
				failed[a.ID] = struct{}{}
				continue
			}
			progress++
		}
		total += progress
		// failed auctions stay due, a batch without progress would be listed again as is
		if len(due) < batch || progress == 0 {
			break
		}
	}
	if len(failed) > 0 {
		log.Warn("Due auctions left unreconciled", zap.Int("failed", len(failed)), zap.Int("reconciled", total))
	}
	return total, nil
}

// reconcileLocked applies the clock to a, which must be locked by tx. Returns true when the
// auction was closed by this call.
func (s *LifecycleSynchronizer) reconcileLocked(ctx context.Context, tx pgx.Tx, a *domain.Auction, now time.Time) (bool, error) {
	if !a.NeedsReconcile(now) {
		return false, nil
	}

	closing := a.NeedsSettlement(now)
	if closing {
		if err := s.settle(ctx, tx, a); err != nil {
			return false, err
		}
	} else {
		a.Reconcile(now, nil)
	}

	if err := s.auctionRepo.Save(ctx, tx, a); err != nil {
		return false, fmt.Errorf("save reconciled auction: %w", err)
	}

	log.Info("Auction reconciled",
		zap.String("auctionID", a.ID.String()),
		zap.String("status", string(a.Status)),
		zap.Time("now", now),
	)
	return closing, nil
}

// settle ends a in favour of its best ranked bid and fans the outcome out to the ledger.
// It is the only place a winner is decided; the caller persists a.
func (s *LifecycleSynchronizer) settle(ctx context.Context, tx pgx.Tx, a *domain.Auction) error {
	top, err := s.bidRepo.GetTopBid(ctx, tx, a.ID)
	if err != nil {
		return fmt.Errorf("get top bid: %w", err)
	}
	a.Settle(top)

	if a.WinningBidID == nil {
		log.Info("Auction settled without bids", zap.String("auctionID", a.ID.String()))
		return nil
	}
	if err := s.bidRepo.MarkWinner(ctx, tx, a.ID, *a.WinningBidID); err != nil {
		return fmt.Errorf("mark winner: %w", err)
	}
	log.Info("Auction settled",
		zap.String("auctionID", a.ID.String()),
		zap.String("winningBidID", a.WinningBidID.String()),
		zap.Stringer("amount", a.WinningAmount),
	)
	return nil
}
