package application

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestPlaceBid_FirstBidAtStartingPrice(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)
	bidder := uuid.New()

	res, err := h.bid(t, a, bidder, "100", t0.Add(10*time.Minute))
	assert.NoError(t, err)

	check.Equal(t, domain.BidWinning, res.Bid.Status)
	check.Equal(t, bidder, res.Bid.BidderID)
	check.Equal(t, a.VendorID, res.Bid.VendorID)
	check.Equal(t, a.ProductID, res.Bid.ProductID)
	check.False(t, res.Extended)

	stored := h.auction(t, a.ID)
	check.Equal(t, domain.StatusLive, stored.Status)
	check.Equal(t, "100.00", stored.CurrentBid.StringFixed(2))
	check.Equal(t, "100.00", stored.WinningAmount.StringFixed(2))
	check.Equal(t, 1, stored.TotalBids)
	assert.NotNil(t, stored.WinningBidID)
	check.Equal(t, res.Bid.ID, *stored.WinningBidID)
	assert.NotNil(t, stored.LastBidAt)
	check.True(t, stored.LastBidAt.Equal(t0.Add(10*time.Minute)))

	check.Equal(t, []domain.EventType{domain.EventBidPlaced}, h.events.types())
}

func TestPlaceBid_OutbidDemotesPreviousWinner(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)

	first := h.mustBid(t, a, uuid.New(), "100", t0.Add(time.Minute))
	second := h.mustBid(t, a, uuid.New(), "110", t0.Add(2*time.Minute))

	statuses := h.bidStatuses(t, a.ID)
	check.Equal(t, domain.BidOutbid, statuses[first.ID])
	check.Equal(t, domain.BidWinning, statuses[second.ID])

	stored := h.auction(t, a.ID)
	check.Equal(t, 2, stored.TotalBids)
	check.Equal(t, "110.00", stored.CurrentBid.StringFixed(2))
	check.Equal(t, second.ID, *stored.WinningBidID)
}

func TestPlaceBid_TooLowReportsMinimum(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "150", "10", false)
	h.mustBid(t, a, uuid.New(), "150", t0.Add(time.Minute))

	_, err := h.bid(t, a, uuid.New(), "155", t0.Add(2*time.Minute))
	assert.Error(t, err)
	check.True(t, errors.Is(err, domain.ErrBidTooLow))

	var tooLow *domain.BidTooLowError
	assert.True(t, errors.As(err, &tooLow))
	check.Equal(t, "160.00", tooLow.Minimum.StringFixed(2))

	stored := h.auction(t, a.ID)
	check.Equal(t, 1, stored.TotalBids)
	check.Equal(t, "150.00", stored.CurrentBid.StringFixed(2))
}

func TestPlaceBid_InvalidAmountComesFirst(t *testing.T) {
	h := newHarness(t)
	missing := &domain.Auction{ID: uuid.New()}

	for _, amount := range []string{"0", "-5", "10.005"} {
		_, err := h.bid(t, missing, uuid.New(), amount, t0)
		check.True(t, errors.Is(err, domain.ErrInvalidAmount))
	}

	_, err := h.bid(t, missing, uuid.New(), "10", t0)
	check.True(t, errors.Is(err, domain.ErrAuctionNotFound))
}

func TestPlaceBid_SelfBidForbiddenInAnyState(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)
	staff := h.staff(a.VendorID)

	for _, at := range []time.Time{t0.Add(-time.Minute), t0.Add(time.Minute)} {
		_, err := h.bid(t, a, staff.ID, "500", at)
		check.True(t, errors.Is(err, domain.ErrSelfBidForbidden))
	}

	otherVendor := h.staff(uuid.New())
	h.mustBid(t, a, otherVendor.ID, "100", t0.Add(time.Minute))

	_, err := h.bid(t, a, staff.ID, "500", t0.Add(2*time.Hour))
	check.True(t, errors.Is(err, domain.ErrSelfBidForbidden))
	check.Equal(t, domain.StatusEnded, h.auction(t, a.ID).Status)
}

func TestPlaceBid_BeforeStartIsNotLive(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)

	_, err := h.bid(t, a, uuid.New(), "100", t0.Add(-time.Second))
	check.True(t, errors.Is(err, domain.ErrAuctionNotLive))
	check.Equal(t, domain.StatusDraft, h.auction(t, a.ID).Status)
}

func TestPlaceBid_AfterEndSettlesAndRejects(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)
	winner := h.mustBid(t, a, uuid.New(), "120", t0.Add(time.Minute))

	// exactly at EndsAt the auction is closed
	_, err := h.bid(t, a, uuid.New(), "200", t0.Add(time.Hour))
	check.True(t, errors.Is(err, domain.ErrAuctionNotLive))

	stored := h.auction(t, a.ID)
	check.Equal(t, domain.StatusEnded, stored.Status)
	check.Equal(t, winner.ID, *stored.WinningBidID)
	check.Equal(t, "120.00", stored.WinningAmount.StringFixed(2))
	check.Equal(t, 1, stored.TotalBids)
	check.Equal(t, domain.BidWinning, h.bidStatuses(t, a.ID)[winner.ID])

	check.Equal(t, []domain.EventType{domain.EventBidPlaced, domain.EventAuctionSettled}, h.events.types())
}

func TestPlaceBid_LateBidExtendsAuction(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", true)

	res, err := h.bid(t, a, uuid.New(), "100", a.EndsAt.Add(-2*time.Minute))
	assert.NoError(t, err)
	check.True(t, res.Extended)
	check.True(t, h.auction(t, a.ID).EndsAt.Equal(a.EndsAt.Add(5*time.Minute)))

	// the bid inside the extension is accepted, the window is open again
	h.mustBid(t, a, uuid.New(), "105", a.EndsAt.Add(time.Minute))

	check.Equal(t, []domain.EventType{
		domain.EventBidPlaced, domain.EventAuctionExtended,
		domain.EventBidPlaced, domain.EventAuctionExtended,
	}, h.events.types())
}

func TestPlaceBid_EarlyBidDoesNotExtend(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", true)

	res, err := h.bid(t, a, uuid.New(), "100", a.EndsAt.Add(-6*time.Minute))
	assert.NoError(t, err)
	check.False(t, res.Extended)
	check.True(t, h.auction(t, a.ID).EndsAt.Equal(a.EndsAt))
}

func TestPlaceBid_StorageFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)
	h.mustBid(t, a, uuid.New(), "100", t0.Add(time.Minute))
	before := h.auction(t, a.ID)

	h.store.FailNextWrite(errors.New("disk full"))
	_, err := h.bid(t, a, uuid.New(), "110", t0.Add(2*time.Minute))
	check.True(t, errors.Is(err, domain.ErrStorageFailure))

	after := h.auction(t, a.ID)
	check.Equal(t, before.Version, after.Version)
	check.Equal(t, 1, after.TotalBids)
	check.Equal(t, 1, len(h.bidStatuses(t, a.ID)))
	check.Equal(t, 1, len(h.events.types()))
}

func TestPlaceBid_TimeoutLeavesNothingBehind(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)
	h.placeBid.policy = TxPolicy{Timeout: 20 * time.Millisecond, MaxRetries: 1}

	// another writer holds the lock for longer than the bid may wait
	ctx := context.Background()
	held, err := h.store.BeginTx(ctx, pgx.TxOptions{})
	assert.NoError(t, err)

	_, err = h.bid(t, a, uuid.New(), "100", t0.Add(time.Minute))
	check.True(t, errors.Is(err, domain.ErrStorageFailure))
	check.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.NoError(t, held.Rollback(ctx))

	stored := h.auction(t, a.ID)
	check.Equal(t, 0, stored.TotalBids)
	check.Equal(t, 0, len(h.bidStatuses(t, a.ID)))
}

func TestPlaceBid_ConcurrentBidsKeepOneWinner(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "1", false)
	at := t0.Add(time.Minute)

	const bidders = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []decimal.Decimal
	)
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(100 + i*3))
			res, err := h.placeBid.Execute(context.Background(), PlaceBidDTO{
				AuctionID: a.ID,
				BidderID:  uuid.New(),
				Amount:    amount,
			}, at)
			if err != nil {
				check.True(t, errors.Is(err, domain.ErrBidTooLow))
				return
			}
			mu.Lock()
			accepted = append(accepted, res.Bid.Amount)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.True(t, len(accepted) > 0)
	highest := slices.MaxFunc(accepted, func(x, y decimal.Decimal) int { return x.Cmp(y) })

	stored := h.auction(t, a.ID)
	check.Equal(t, len(accepted), stored.TotalBids)
	check.Equal(t, highest.StringFixed(2), stored.CurrentBid.StringFixed(2))
	check.Equal(t, highest.StringFixed(2), stored.WinningAmount.StringFixed(2))

	bids, err := h.bids.GetBidsByAuctionID(context.Background(), a.ID)
	assert.NoError(t, err)
	check.Equal(t, len(accepted), len(bids))
	winning := 0
	for _, b := range bids {
		if b.Status == domain.BidWinning {
			winning++
			check.Equal(t, *stored.WinningBidID, b.ID)
		}
	}
	check.Equal(t, 1, winning)

	// ledger order is strictly increasing in amount, every accepted bid beat the one before
	slices.SortFunc(bids, func(x, y *domain.Bid) int { return int(x.Seq - y.Seq) })
	for i := 1; i < len(bids); i++ {
		check.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
	}
}
