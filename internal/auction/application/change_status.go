package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	userdomain "github.com/cristianortiz/vendorAuctions/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ChangeStatusDTO asks for an administrative end or cancel of an auction
type ChangeStatusDTO struct {
	ActorID   uuid.UUID
	AuctionID uuid.UUID
	Status    domain.AuctionStatus
}

// ChangeStatusUseCase is the administrative override. A manual end settles through the same
// routine the clock uses; a cancel voids every bid.
type ChangeStatusUseCase struct {
	lifecycle   *LifecycleSynchronizer
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	userRepo    userdomain.UserRepository
	db          domain.TxBeginner
	events      domain.EventPublisher
	policy      TxPolicy
}

func NewChangeStatusUseCase(lifecycle *LifecycleSynchronizer,
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	userRepo userdomain.UserRepository,
	db domain.TxBeginner,
	events domain.EventPublisher,
	policy TxPolicy) *ChangeStatusUseCase {

	return &ChangeStatusUseCase{
		lifecycle:   lifecycle,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		userRepo:    userRepo,
		db:          db,
		events:      events,
		policy:      policy,
	}
}

func (uc *ChangeStatusUseCase) Execute(ctx context.Context, cmd ChangeStatusDTO, now time.Time) (*domain.Auction, error) {
	log.Info("Executing ChangeStatusUseCase",
		zap.String("actorID", cmd.ActorID.String()),
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("target", string(cmd.Status)),
	)
	if cmd.Status != domain.StatusEnded && cmd.Status != domain.StatusCancelled {
		return nil, fmt.Errorf("change status use case: target %q: %w", cmd.Status, domain.ErrInvalidStatusTransition)
	}

	actor, err := resolveActor(ctx, uc.userRepo, cmd.ActorID)
	if err != nil {
		return nil, classify(fmt.Errorf("change status use case: resolve actor %s: %w", cmd.ActorID, err))
	}

	var (
		result   *domain.Auction
		rejected error
		event    domain.EventType
	)
	err = uc.policy.run(ctx, "change status", func(ctx context.Context) error {
		result, rejected, event = nil, nil, ""
		return runInTx(ctx, uc.db, "change status", func(tx pgx.Tx) error {
			a, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, cmd.AuctionID)
			if err != nil {
				return fmt.Errorf("failed to get auction %s: %w", cmd.AuctionID, err)
			}
			if !actor.CanManageAuctionsOf(a.VendorID) {
				return domain.ErrPermissionDenied
			}

			closed, err := uc.lifecycle.reconcileLocked(ctx, tx, a, now)
			if err != nil {
				return err
			}
			result = a
			if closed {
				event = domain.EventAuctionSettled
			}

			if !a.Status.IsOpen() {
				// the clock already ended it, which is what a manual end asks for
				if !(closed && cmd.Status == domain.StatusEnded) {
					rejected = fmt.Errorf("auction is %s: %w", a.Status, domain.ErrInvalidStatusTransition)
				}
				return nil
			}

			switch cmd.Status {
			case domain.StatusEnded:
				if err := uc.lifecycle.settle(ctx, tx, a); err != nil {
					return err
				}
				event = domain.EventAuctionSettled
			case domain.StatusCancelled:
				if err := a.Cancel(); err != nil {
					return err
				}
				if err := uc.bidRepo.CancelAll(ctx, tx, a.ID); err != nil {
					return fmt.Errorf("failed to cancel bids: %w", err)
				}
				event = domain.EventAuctionCancelled
			}
			if err := uc.auctionRepo.Save(ctx, tx, a); err != nil {
				return fmt.Errorf("failed to save auction: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, classify(fmt.Errorf("change status use case: %w", err))
	}

	if event != "" {
		publish(ctx, uc.events, domain.NewAuctionEvent(event, result, now))
	}
	if rejected != nil {
		log.Warn("ChangeStatusUseCase: override rejected",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Error(rejected),
		)
		return nil, fmt.Errorf("change status use case: %w", rejected)
	}

	log.Info("Auction status changed",
		zap.String("auctionID", result.ID.String()),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}
