package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	catalogdomain "github.com/cristianortiz/vendorAuctions/internal/catalog/domain"
	userdomain "github.com/cristianortiz/vendorAuctions/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CreateAuctionDTO carries a new auction for ProductID on behalf of ActorID
type CreateAuctionDTO struct {
	ActorID   uuid.UUID
	ProductID uuid.UUID
	Terms     domain.AuctionTerms
}

// CreateAuctionUseCase puts a product up for auction as a draft
type CreateAuctionUseCase struct {
	auctionRepo domain.AuctionRepository
	products    catalogdomain.ProductDirectory
	userRepo    userdomain.UserRepository
	db          domain.TxBeginner
}

func NewCreateAuctionUseCase(auctionRepo domain.AuctionRepository,
	products catalogdomain.ProductDirectory,
	userRepo userdomain.UserRepository,
	db domain.TxBeginner) *CreateAuctionUseCase {

	return &CreateAuctionUseCase{
		auctionRepo: auctionRepo,
		products:    products,
		userRepo:    userRepo,
		db:          db,
	}
}

func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO, now time.Time) (*domain.Auction, error) {
	log.Info("Executing CreateAuctionUseCase",
		zap.String("actorID", cmd.ActorID.String()),
		zap.String("productID", cmd.ProductID.String()),
	)

	vendorID, err := uc.products.LookupProductVendor(ctx, cmd.ProductID)
	if err != nil {
		if !errors.Is(err, catalogdomain.ErrProductNotFound) {
			log.Error("CreateAuctionUseCase: Failed to look up product vendor",
				zap.String("productID", cmd.ProductID.String()),
				zap.Error(err),
			)
		}
		return nil, classify(fmt.Errorf("create auction use case: %w", err))
	}

	actor, err := resolveActor(ctx, uc.userRepo, cmd.ActorID)
	if err != nil {
		return nil, classify(fmt.Errorf("create auction use case: resolve actor %s: %w", cmd.ActorID, err))
	}
	if !actor.CanManageAuctionsOf(vendorID) {
		log.Warn("CreateAuctionUseCase: actor may not manage auctions of vendor",
			zap.String("actorID", cmd.ActorID.String()),
			zap.String("vendorID", vendorID.String()),
		)
		return nil, fmt.Errorf("create auction use case: %w", domain.ErrPermissionDenied)
	}

	a, err := domain.NewAuction(uuid.New(), cmd.ProductID, vendorID, cmd.Terms, now)
	if err != nil {
		return nil, fmt.Errorf("create auction use case: %w", err)
	}

	err = runInTx(ctx, uc.db, "create auction", func(tx pgx.Tx) error {
		return uc.auctionRepo.Create(ctx, tx, a)
	})
	if err != nil {
		log.Error("CreateAuctionUseCase: Failed to store auction",
			zap.String("auctionID", a.ID.String()),
			zap.Error(err),
		)
		return nil, classify(fmt.Errorf("create auction use case: %w", err))
	}

	log.Info("Auction created",
		zap.String("auctionID", a.ID.String()),
		zap.String("vendorID", vendorID.String()),
		zap.Time("startsAt", a.StartsAt),
		zap.Time("endsAt", a.EndsAt),
	)
	return a, nil
}
