package application

import (
	"context"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	// PlaceBid runs the bid acceptance rules and returns the accepted bid or the rejection
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*PlaceBidResult, error)
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error)
	ChangeStatus(ctx context.Context, cmd ChangeStatusDTO) (*domain.Auction, error)

	GetAuction(ctx context.Context, id uuid.UUID) (*AuctionView, error)
	ListPublic(ctx context.Context, includeUpcoming bool, page Page) ([]*domain.Auction, error)
	ListVendor(ctx context.Context, actorID uuid.UUID, page Page) ([]*domain.Auction, error)
	ListAdmin(ctx context.Context, actorID uuid.UUID, statuses []domain.AuctionStatus, page Page) ([]*domain.Auction, error)
	MyBids(ctx context.Context, bidderID uuid.UUID, page Page) ([]*BidView, error)
	BidHistory(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error)
}

// Clock returns the instant every operation is evaluated at
type Clock func() time.Time

// concret implementation of AuctionService (struct)
type auctionService struct {
	placeBidUC     *PlaceBidUseCase
	createUC       *CreateAuctionUseCase
	changeStatusUC *ChangeStatusUseCase
	queryUC        *QueryUseCase
	clock          Clock
}

func NewAuctionService(placeBidUC *PlaceBidUseCase,
	createUC *CreateAuctionUseCase,
	changeStatusUC *ChangeStatusUseCase,
	queryUC *QueryUseCase,
	clock Clock) AuctionService {

	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &auctionService{
		placeBidUC:     placeBidUC,
		createUC:       createUC,
		changeStatusUC: changeStatusUC,
		queryUC:        queryUC,
		clock:          clock,
	}
}

func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*PlaceBidResult, error) {
	return as.placeBidUC.Execute(ctx, cmd, as.clock())
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	return as.createUC.Execute(ctx, cmd, as.clock())
}

func (as *auctionService) ChangeStatus(ctx context.Context, cmd ChangeStatusDTO) (*domain.Auction, error) {
	return as.changeStatusUC.Execute(ctx, cmd, as.clock())
}

func (as *auctionService) GetAuction(ctx context.Context, id uuid.UUID) (*AuctionView, error) {
	return as.queryUC.GetAuction(ctx, id, as.clock())
}

func (as *auctionService) ListPublic(ctx context.Context, includeUpcoming bool, page Page) ([]*domain.Auction, error) {
	return as.queryUC.ListPublic(ctx, as.clock(), includeUpcoming, page)
}

func (as *auctionService) ListVendor(ctx context.Context, actorID uuid.UUID, page Page) ([]*domain.Auction, error) {
	return as.queryUC.ListVendor(ctx, actorID, as.clock(), page)
}

func (as *auctionService) ListAdmin(ctx context.Context, actorID uuid.UUID, statuses []domain.AuctionStatus, page Page) ([]*domain.Auction, error) {
	return as.queryUC.ListAdmin(ctx, actorID, as.clock(), statuses, page)
}

func (as *auctionService) MyBids(ctx context.Context, bidderID uuid.UUID, page Page) ([]*BidView, error) {
	return as.queryUC.MyBids(ctx, bidderID, as.clock(), page)
}

func (as *auctionService) BidHistory(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	return as.queryUC.BidHistory(ctx, auctionID, as.clock())
}
