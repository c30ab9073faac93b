package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	userdomain "github.com/cristianortiz/vendorAuctions/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// PlaceBidResult is what an accepted bid left behind
type PlaceBidResult struct {
	Bid     *domain.Bid
	Auction *domain.Auction
	// Extended is true when the bid pushed the auction end forward
	Extended bool
}

// PlaceBidUseCase accepts or rejects a bid. The auction row stays locked from the first
// read until commit so two bids on the same auction are judged one after the other.
type PlaceBidUseCase struct {
	lifecycle   *LifecycleSynchronizer
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	userRepo    userdomain.UserRepository
	db          domain.TxBeginner
	events      domain.EventPublisher
	policy      TxPolicy
}

// NewPlaceBidUseCase creates a new instace of PlaceBidUseCase struct, it receives dependency through injection
func NewPlaceBidUseCase(lifecycle *LifecycleSynchronizer,
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	userRepo userdomain.UserRepository,
	db domain.TxBeginner,
	events domain.EventPublisher,
	policy TxPolicy) *PlaceBidUseCase {

	return &PlaceBidUseCase{
		lifecycle:   lifecycle,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		userRepo:    userRepo,
		db:          db,
		events:      events,
		policy:      policy,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO, now time.Time) (*PlaceBidResult, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.Stringer("amount", cmd.Amount),
	)
	// 1. input validation, nothing is read before the amount is known to be sane
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		log.Warn("PlaceBidUseCase: Invalid bid amount",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Stringer("amount", cmd.Amount),
		)
		return nil, fmt.Errorf("place bid use case: %w", err)
	}

	// 2. who is bidding, unknown actors bid as plain customers
	bidder, err := resolveActor(ctx, uc.userRepo, cmd.BidderID)
	if err != nil {
		return nil, classify(fmt.Errorf("place bid use case: resolve bidder %s: %w", cmd.BidderID, err))
	}

	var (
		result   *PlaceBidResult
		rejected error
		settled  *domain.Auction
	)
	err = uc.policy.run(ctx, "place bid", func(ctx context.Context) error {
		result, rejected, settled = nil, nil, nil
		return runInTx(ctx, uc.db, "place bid", func(tx pgx.Tx) error {
			// 3. lock the auction, then bring it up to date with the clock
			a, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, cmd.AuctionID)
			if err != nil {
				return fmt.Errorf("failed to get auction %s: %w", cmd.AuctionID, err)
			}
			closed, err := uc.lifecycle.reconcileLocked(ctx, tx, a, now)
			if err != nil {
				return err
			}
			if closed {
				settled = a
			}

			// 4. admission rules against the locked, reconciled state. A rejection still
			// commits whatever reconciliation wrote.
			if err := a.CheckBid(bidder.ResolveVendor(), cmd.Amount, now); err != nil {
				rejected = err
				return nil
			}

			// 5. ledger entry, previous leader demoted, auction updated, new leader promoted
			bid := domain.NewBid(uuid.New(), a, cmd.BidderID, cmd.Amount, now)
			if err := uc.bidRepo.Save(ctx, tx, bid); err != nil {
				return fmt.Errorf("failed to save new bid: %w", err)
			}
			if previous := a.WinningBidID; previous != nil {
				if err := uc.bidRepo.UpdateStatus(ctx, tx, *previous, domain.BidOutbid); err != nil {
					return fmt.Errorf("failed to demote previous winning bid %s: %w", *previous, err)
				}
			}
			extended := a.ApplyBid(bid, now)
			if err := uc.auctionRepo.Save(ctx, tx, a); err != nil {
				return fmt.Errorf("failed to save updated auction: %w", err)
			}
			if err := uc.bidRepo.UpdateStatus(ctx, tx, bid.ID, domain.BidWinning); err != nil {
				return fmt.Errorf("failed to promote new bid: %w", err)
			}
			bid.Status = domain.BidWinning

			result = &PlaceBidResult{Bid: bid, Auction: a, Extended: extended}
			return nil
		})
	})
	if err != nil {
		if !isCallerError(err) {
			log.Error("PlaceBidUseCase: bid could not be stored",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.Error(err),
			)
		}
		return nil, classify(fmt.Errorf("place bid use case: %w", err))
	}

	if settled != nil {
		publish(ctx, uc.events, domain.NewAuctionEvent(domain.EventAuctionSettled, settled, now))
	}
	if rejected != nil {
		log.Warn("PlaceBidUseCase: bid rejected",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidderID", cmd.BidderID.String()),
			zap.Stringer("amount", cmd.Amount),
			zap.Error(rejected),
		)
		return nil, fmt.Errorf("place bid use case: bid failed for auction %s: %w", cmd.AuctionID, rejected)
	}

	log.Info("PlaceBidUseCase: bid accepted",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidID", result.Bid.ID.String()),
		zap.Stringer("amount", result.Bid.Amount),
		zap.Bool("extended", result.Extended),
	)
	placed := domain.NewAuctionEvent(domain.EventBidPlaced, result.Auction, now)
	placed.BidderID = &result.Bid.BidderID
	publish(ctx, uc.events, placed)
	if result.Extended {
		publish(ctx, uc.events, domain.NewAuctionEvent(domain.EventAuctionExtended, result.Auction, now))
	}
	return result, nil
}

// resolveActor loads the actor, falling back to an anonymous customer for ids the identity
// store does not know
func resolveActor(ctx context.Context, users userdomain.UserRepository, id uuid.UUID) (*userdomain.User, error) {
	u, err := users.GetByID(ctx, id)
	if errors.Is(err, userdomain.ErrUserNotFound) {
		return userdomain.Anonymous(id), nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
