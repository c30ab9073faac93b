package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	userdomain "github.com/cristianortiz/vendorAuctions/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// readReconcileBatches bounds the due auctions a status filtered listing corrects per
	// request, the sweeper works through the rest
	readReconcileBatches = 1
)

// Page is a limit/offset window over a listing
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to the allowed window
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// AuctionView is an auction as presented to callers, always reconciled first
type AuctionView struct {
	Auction        *domain.Auction
	TopBid         *domain.Bid
	MinimumNextBid decimal.Decimal
}

// BidView pairs a bid with the auction it belongs to
type BidView struct {
	Bid     *domain.Bid
	Auction *domain.Auction
}

// QueryUseCase serves every read. Nothing leaves it without going through the synchronizer,
// so no caller ever sees an auction that is live past its end.
type QueryUseCase struct {
	lifecycle   *LifecycleSynchronizer
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	userRepo    userdomain.UserRepository
	sweepBatch  int
}

func NewQueryUseCase(lifecycle *LifecycleSynchronizer,
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	userRepo userdomain.UserRepository,
	sweepBatch int) *QueryUseCase {

	return &QueryUseCase{
		lifecycle:   lifecycle,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		userRepo:    userRepo,
		sweepBatch:  sweepBatch,
	}
}

// GetAuction returns the reconciled auction with its current leader
func (uc *QueryUseCase) GetAuction(ctx context.Context, id uuid.UUID, now time.Time) (*AuctionView, error) {
	a, err := uc.lifecycle.ReconcileByID(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}
	top, err := uc.bidRepo.GetTopBid(ctx, nil, a.ID)
	if err != nil {
		log.Error("Failed to get top bid", zap.String("auctionID", id.String()), zap.Error(err))
		return nil, classify(fmt.Errorf("get auction: %w", err))
	}
	return &AuctionView{Auction: a, TopBid: top, MinimumNextBid: a.MinimumNextBid()}, nil
}

// ListPublic lists live auctions, plus the ones not started yet when includeUpcoming is set
func (uc *QueryUseCase) ListPublic(ctx context.Context, now time.Time, includeUpcoming bool, page Page) ([]*domain.Auction, error) {
	statuses := []domain.AuctionStatus{domain.StatusLive}
	if includeUpcoming {
		statuses = append(statuses, domain.StatusDraft)
	}
	// status filters run in the store, so stale statuses are fixed before filtering
	if _, err := uc.lifecycle.ReconcileDue(ctx, now, uc.sweepBatch, readReconcileBatches); err != nil {
		return nil, fmt.Errorf("list public auctions: %w", err)
	}
	page = page.Normalize()
	auctions, err := uc.list(ctx, domain.AuctionFilter{Statuses: statuses, Limit: page.Limit, Offset: page.Offset}, now)
	if err != nil {
		return nil, fmt.Errorf("list public auctions: %w", err)
	}
	return filterStatus(auctions, statuses), nil
}

// ListVendor lists every auction of the vendor the actor works for
func (uc *QueryUseCase) ListVendor(ctx context.Context, actorID uuid.UUID, now time.Time, page Page) ([]*domain.Auction, error) {
	actor, err := resolveActor(ctx, uc.userRepo, actorID)
	if err != nil {
		return nil, classify(fmt.Errorf("list vendor auctions: %w", err))
	}
	vendorID := actor.ResolveVendor()
	if vendorID == nil {
		return nil, fmt.Errorf("list vendor auctions: actor %s has no vendor: %w", actorID, domain.ErrPermissionDenied)
	}
	page = page.Normalize()
	auctions, err := uc.list(ctx, domain.AuctionFilter{VendorID: vendorID, Limit: page.Limit, Offset: page.Offset}, now)
	if err != nil {
		return nil, fmt.Errorf("list vendor auctions: %w", err)
	}
	return auctions, nil
}

// ListAdmin lists every auction, optionally narrowed to statuses. Admins only.
func (uc *QueryUseCase) ListAdmin(ctx context.Context, actorID uuid.UUID, now time.Time, statuses []domain.AuctionStatus, page Page) ([]*domain.Auction, error) {
	actor, err := resolveActor(ctx, uc.userRepo, actorID)
	if err != nil {
		return nil, classify(fmt.Errorf("list admin auctions: %w", err))
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("list admin auctions: %w", domain.ErrPermissionDenied)
	}
	if len(statuses) > 0 {
		if _, err := uc.lifecycle.ReconcileDue(ctx, now, uc.sweepBatch, readReconcileBatches); err != nil {
			return nil, fmt.Errorf("list admin auctions: %w", err)
		}
	}
	page = page.Normalize()
	auctions, err := uc.list(ctx, domain.AuctionFilter{Statuses: statuses, Limit: page.Limit, Offset: page.Offset}, now)
	if err != nil {
		return nil, fmt.Errorf("list admin auctions: %w", err)
	}
	if len(statuses) > 0 {
		auctions = filterStatus(auctions, statuses)
	}
	return auctions, nil
}

// MyBids lists the bids of bidderID, newest first. Every auction the bids touch is reconciled
// before the ledger is read so the statuses reflect any close that was due.
func (uc *QueryUseCase) MyBids(ctx context.Context, bidderID uuid.UUID, now time.Time, page Page) ([]*BidView, error) {
	page = page.Normalize()
	bids, err := uc.bidRepo.GetBidsByBidderID(ctx, bidderID, page.Limit, page.Offset)
	if err != nil {
		return nil, classify(fmt.Errorf("my bids: %w", err))
	}

	auctions := make(map[uuid.UUID]*domain.Auction)
	resettled := false
	for _, b := range bids {
		if _, seen := auctions[b.AuctionID]; seen {
			continue
		}
		before, err := uc.auctionRepo.GetByID(ctx, b.AuctionID)
		if err != nil {
			return nil, classify(fmt.Errorf("my bids: %w", err))
		}
		a, err := uc.lifecycle.Reconcile(ctx, before, now)
		if err != nil {
			return nil, fmt.Errorf("my bids: %w", err)
		}
		resettled = resettled || a.Status != before.Status
		auctions[b.AuctionID] = a
	}

	if resettled {
		// a close rewrote bid statuses, read the ledger again
		bids, err = uc.bidRepo.GetBidsByBidderID(ctx, bidderID, page.Limit, page.Offset)
		if err != nil {
			return nil, classify(fmt.Errorf("my bids: %w", err))
		}
	}

	out := make([]*BidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, &BidView{Bid: b, Auction: auctions[b.AuctionID]})
	}
	return out, nil
}

// BidHistory returns the ledger of an auction, best ranked first
func (uc *QueryUseCase) BidHistory(ctx context.Context, auctionID uuid.UUID, now time.Time) ([]*domain.Bid, error) {
	if _, err := uc.lifecycle.ReconcileByID(ctx, auctionID, now); err != nil {
		return nil, fmt.Errorf("bid history: %w", err)
	}
	bids, err := uc.bidRepo.GetBidsByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, classify(fmt.Errorf("bid history: %w", err))
	}
	return domain.RankBids(bids), nil
}

func (uc *QueryUseCase) list(ctx context.Context, filter domain.AuctionFilter, now time.Time) ([]*domain.Auction, error) {
	auctions, err := uc.auctionRepo.List(ctx, filter)
	if err != nil {
		log.Error("Failed to list auctions", zap.Error(err))
		return nil, classify(err)
	}
	return uc.lifecycle.ReconcileAll(ctx, auctions, now), nil
}

func filterStatus(auctions []*domain.Auction, statuses []domain.AuctionStatus) []*domain.Auction {
	return slices.DeleteFunc(auctions, func(a *domain.Auction) bool {
		return !slices.Contains(statuses, a.Status)
	})
}
