package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/cristianortiz/vendorAuctions/internal/auction/infra/repository/memory"
	catalogdomain "github.com/cristianortiz/vendorAuctions/internal/catalog/domain"
	userdomain "github.com/cristianortiz/vendorAuctions/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*userdomain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*userdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) add(u *userdomain.User) *userdomain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return u
}

type fakeProducts map[uuid.UUID]uuid.UUID

func (f fakeProducts) LookupProductVendor(_ context.Context, productID uuid.UUID) (uuid.UUID, error) {
	vendorID, ok := f[productID]
	if !ok {
		return uuid.Nil, catalogdomain.ErrProductNotFound
	}
	return vendorID, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store     *memory.Store
	auctions  *memory.AuctionRepository
	bids      *memory.BidRepository
	users     *fakeUsers
	products  fakeProducts
	events    *recordingPublisher
	lifecycle *LifecycleSynchronizer
	placeBid  *PlaceBidUseCase
	create    *CreateAuctionUseCase
	status    *ChangeStatusUseCase
	queries   *QueryUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	h := &harness{
		store:    store,
		auctions: memory.NewAuctionRepository(store),
		bids:     memory.NewBidRepository(store),
		users:    &fakeUsers{users: make(map[uuid.UUID]*userdomain.User)},
		products: fakeProducts{},
		events:   &recordingPublisher{},
	}
	policy := TxPolicy{Timeout: time.Second, MaxRetries: 3}
	h.lifecycle = NewLifecycleSynchronizer(h.auctions, h.bids, store, h.events, policy)
	h.placeBid = NewPlaceBidUseCase(h.lifecycle, h.auctions, h.bids, h.users, store, h.events, policy)
	h.create = NewCreateAuctionUseCase(h.auctions, h.products, h.users, store)
	h.status = NewChangeStatusUseCase(h.lifecycle, h.auctions, h.bids, h.users, store, h.events, policy)
	h.queries = NewQueryUseCase(h.lifecycle, h.auctions, h.bids, h.users, 10)
	return h
}

// seed stores a draft auction running from t0 to t0+1h
func (h *harness) seed(t *testing.T, starting, increment string, autoExtend bool) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(uuid.New(), uuid.New(), uuid.New(), domain.AuctionTerms{
		StartingPrice:     money(starting),
		MinIncrement:      money(increment),
		StartsAt:          t0,
		EndsAt:            t0.Add(time.Hour),
		AllowAutoExtend:   autoExtend,
		AutoExtendMinutes: 5,
	}, t0.Add(-time.Hour))
	assert.NoError(t, err)
	h.products[a.ProductID] = a.VendorID

	ctx := context.Background()
	tx, err := h.store.BeginTx(ctx, pgx.TxOptions{})
	assert.NoError(t, err)
	assert.NoError(t, h.auctions.Create(ctx, tx, a))
	assert.NoError(t, tx.Commit(ctx))
	return a
}

func (h *harness) bid(t *testing.T, a *domain.Auction, bidder uuid.UUID, amount string, at time.Time) (*PlaceBidResult, error) {
	t.Helper()
	return h.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: a.ID,
		BidderID:  bidder,
		Amount:    money(amount),
	}, at)
}

func (h *harness) mustBid(t *testing.T, a *domain.Auction, bidder uuid.UUID, amount string, at time.Time) *domain.Bid {
	t.Helper()
	res, err := h.bid(t, a, bidder, amount, at)
	assert.NoError(t, err)
	return res.Bid
}

func (h *harness) auction(t *testing.T, id uuid.UUID) *domain.Auction {
	t.Helper()
	a, err := h.auctions.GetByID(context.Background(), id)
	assert.NoError(t, err)
	return a
}

func (h *harness) bidStatuses(t *testing.T, auctionID uuid.UUID) map[uuid.UUID]domain.BidStatus {
	t.Helper()
	bids, err := h.bids.GetBidsByAuctionID(context.Background(), auctionID)
	assert.NoError(t, err)
	out := make(map[uuid.UUID]domain.BidStatus, len(bids))
	for _, b := range bids {
		out[b.ID] = b.Status
	}
	return out
}

func (h *harness) staff(vendorID uuid.UUID, permissions ...string) *userdomain.User {
	return h.users.add(&userdomain.User{
		ID:          uuid.New(),
		Role:        userdomain.RoleVendor,
		VendorID:    &vendorID,
		Permissions: permissions,
	})
}

func (h *harness) admin() *userdomain.User {
	return h.users.add(&userdomain.User{ID: uuid.New(), Role: userdomain.RoleAdmin})
}

// shiftWindow moves the stored bidding window of a by d
func (h *harness) shiftWindow(t *testing.T, a *domain.Auction, d time.Duration) {
	t.Helper()
	ctx := context.Background()
	stored := h.auction(t, a.ID)
	stored.StartsAt = stored.StartsAt.Add(d)
	stored.EndsAt = stored.EndsAt.Add(d)

	tx, err := h.store.BeginTx(ctx, pgx.TxOptions{})
	assert.NoError(t, err)
	assert.NoError(t, h.auctions.Save(ctx, tx, stored))
	assert.NoError(t, tx.Commit(ctx))
}

var errDiskFull = errors.New("could not extend file: no space left on device")

// brokenAuctions fails every row lock taken on the listed auctions and counts ListDue calls
type brokenAuctions struct {
	*memory.AuctionRepository
	broken  map[uuid.UUID]bool
	listDue int
}

func (b *brokenAuctions) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Auction, error) {
	if b.broken[id] {
		return nil, errDiskFull
	}
	return b.AuctionRepository.GetByIDForUpdate(ctx, tx, id)
}

func (b *brokenAuctions) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Auction, error) {
	b.listDue++
	return b.AuctionRepository.ListDue(ctx, now, limit)
}

// withBroken rebuilds the lifecycle and queries of h on top of a repository that cannot lock ids
func (h *harness) withBroken(ids ...uuid.UUID) *brokenAuctions {
	repo := &brokenAuctions{AuctionRepository: h.auctions, broken: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		repo.broken[id] = true
	}
	policy := TxPolicy{Timeout: time.Second, MaxRetries: 3}
	h.lifecycle = NewLifecycleSynchronizer(repo, h.bids, h.store, h.events, policy)
	h.queries = NewQueryUseCase(h.lifecycle, repo, h.bids, h.users, 10)
	return repo
}
