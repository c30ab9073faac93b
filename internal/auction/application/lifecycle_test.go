package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestReconcile_GoesLiveAtStart(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10", "1", false)
	ctx := context.Background()

	same, err := h.lifecycle.Reconcile(ctx, a, t0.Add(-time.Second))
	assert.NoError(t, err)
	check.Equal(t, domain.StatusDraft, same.Status)
	check.Equal(t, a.Version, h.auction(t, a.ID).Version)

	live, err := h.lifecycle.Reconcile(ctx, a, t0)
	assert.NoError(t, err)
	check.Equal(t, domain.StatusLive, live.Status)
	check.Equal(t, domain.StatusLive, h.auction(t, a.ID).Status)
	check.Equal(t, 0, len(h.events.types()))
}

func TestReconcile_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10", "1", false)
	h.mustBid(t, a, uuid.New(), "15", t0.Add(time.Minute))
	ctx := context.Background()
	end := t0.Add(2 * time.Hour)

	first, err := h.lifecycle.ReconcileByID(ctx, a.ID, end)
	assert.NoError(t, err)
	check.Equal(t, domain.StatusEnded, first.Status)

	second, err := h.lifecycle.ReconcileByID(ctx, a.ID, end.Add(time.Hour))
	assert.NoError(t, err)
	check.Equal(t, first.Version, second.Version)
	check.Equal(t, *first.WinningBidID, *second.WinningBidID)
	check.Equal(t, first.WinningAmount.StringFixed(2), second.WinningAmount.StringFixed(2))

	check.Equal(t, []domain.EventType{domain.EventBidPlaced, domain.EventAuctionSettled}, h.events.types())
}

func TestReconcile_NoBidsEndsWithoutWinner(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10", "1", false)

	ended, err := h.lifecycle.Reconcile(context.Background(), a, t0.Add(time.Hour))
	assert.NoError(t, err)
	check.Equal(t, domain.StatusEnded, ended.Status)
	check.Nil(t, ended.WinningBidID)
	check.Equal(t, "0.00", ended.WinningAmount.StringFixed(2))
}

func TestReconcile_TieGoesToEarliestBid(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "100", "5", false)
	ctx := context.Background()

	// two equal bids can only come from the ledger directly, the engine never accepts a tie
	later := domain.NewBid(uuid.New(), a, uuid.New(), money("200"), t0.Add(10*time.Minute))
	earlier := domain.NewBid(uuid.New(), a, uuid.New(), money("200"), t0.Add(5*time.Minute))
	tx, err := h.store.BeginTx(ctx, pgx.TxOptions{})
	assert.NoError(t, err)
	assert.NoError(t, h.bids.Save(ctx, tx, later))
	assert.NoError(t, h.bids.Save(ctx, tx, earlier))
	a.ApplyBid(later, later.CreatedAt)
	assert.NoError(t, h.auctions.Save(ctx, tx, a))
	assert.NoError(t, tx.Commit(ctx))

	ended, err := h.lifecycle.ReconcileByID(ctx, a.ID, t0.Add(time.Hour))
	assert.NoError(t, err)
	check.Equal(t, domain.StatusEnded, ended.Status)
	check.Equal(t, earlier.ID, *ended.WinningBidID)

	statuses := h.bidStatuses(t, a.ID)
	check.Equal(t, domain.BidWinning, statuses[earlier.ID])
	check.Equal(t, domain.BidOutbid, statuses[later.ID])
}

func TestReconcile_ClosedAuctionsNeverChange(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10", "1", false)
	ctx := context.Background()

	ended, err := h.lifecycle.Reconcile(ctx, a, t0.Add(time.Hour))
	assert.NoError(t, err)

	again, err := h.lifecycle.Reconcile(ctx, ended, t0.Add(-time.Hour))
	assert.NoError(t, err)
	check.Equal(t, domain.StatusEnded, again.Status)
	check.Equal(t, ended.Version, h.auction(t, a.ID).Version)
}

func TestReconcileDue_WalksEveryBatch(t *testing.T) {
	h := newHarness(t)
	var ids []uuid.UUID
	for i := 0; i < 7; i++ {
		ids = append(ids, h.seed(t, "10", "1", false).ID)
	}

	n, err := h.lifecycle.ReconcileDue(context.Background(), t0.Add(time.Hour), 3, 0)
	assert.NoError(t, err)
	check.Equal(t, 7, n)
	for _, id := range ids {
		check.Equal(t, domain.StatusEnded, h.auction(t, id).Status)
	}

	n, err = h.lifecycle.ReconcileDue(context.Background(), t0.Add(2*time.Hour), 3, 0)
	assert.NoError(t, err)
	check.Equal(t, 0, n)
}

func TestReconcileDue_SkipsFailingAuction(t *testing.T) {
	h := newHarness(t)
	first := h.seed(t, "10", "1", false)
	broken := h.seed(t, "10", "1", false)
	last := h.seed(t, "10", "1", false)
	h.withBroken(broken.ID)

	n, err := h.lifecycle.ReconcileDue(context.Background(), t0.Add(time.Hour), 2, 0)
	assert.NoError(t, err)
	check.Equal(t, 2, n)
	check.Equal(t, domain.StatusEnded, h.auction(t, first.ID).Status)
	check.Equal(t, domain.StatusEnded, h.auction(t, last.ID).Status)
	check.Equal(t, domain.StatusDraft, h.auction(t, broken.ID).Status)
}

func TestReconcileDue_StopsAfterMaxBatches(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.seed(t, "10", "1", false)
	}
	repo := h.withBroken()

	n, err := h.lifecycle.ReconcileDue(context.Background(), t0.Add(time.Hour), 2, 1)
	assert.NoError(t, err)
	check.Equal(t, 2, n)
	check.Equal(t, 1, repo.listDue)

	n, err = h.lifecycle.ReconcileDue(context.Background(), t0.Add(time.Hour), 2, 0)
	assert.NoError(t, err)
	check.Equal(t, 3, n)
}

func TestSweeper_Tick(t *testing.T) {
	h := newHarness(t)
	live := h.seed(t, "10", "1", false)
	sweeper := NewSweeper(h.lifecycle, time.Minute, 10)

	check.Equal(t, 1, sweeper.Tick(context.Background(), t0.Add(time.Minute)))
	check.Equal(t, domain.StatusLive, h.auction(t, live.ID).Status)

	check.Equal(t, 1, sweeper.Tick(context.Background(), t0.Add(time.Hour)))
	check.Equal(t, domain.StatusEnded, h.auction(t, live.ID).Status)
	check.Equal(t, 0, sweeper.Tick(context.Background(), t0.Add(time.Hour)))
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10", "1", false)
	sweeper := NewSweeper(h.lifecycle, 5*time.Millisecond, 10)
	sweeper.now = func() time.Time { return t0.Add(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for h.auction(t, a.ID).Status != domain.StatusEnded {
		select {
		case <-deadline:
			t.Fatal("sweeper did not settle the auction")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestTxPolicy_RetriesConflicts(t *testing.T) {
	policy := TxPolicy{Timeout: time.Second, MaxRetries: 3}

	calls := 0
	err := policy.run(context.Background(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrConcurrencyConflict
		}
		return nil
	})
	check.NoError(t, err)
	check.Equal(t, 3, calls)

	calls = 0
	err = policy.run(context.Background(), "test", func(context.Context) error {
		calls++
		return domain.ErrConcurrencyConflict
	})
	check.Equal(t, 3, calls)
	check.True(t, errors.Is(err, domain.ErrStorageFailure))
	check.False(t, errors.Is(err, domain.ErrConcurrencyConflict))

	calls = 0
	err = policy.run(context.Background(), "test", func(context.Context) error {
		calls++
		return domain.ErrAuctionNotLive
	})
	check.Equal(t, 1, calls)
	check.True(t, errors.Is(err, domain.ErrAuctionNotLive))
}

func TestClassify(t *testing.T) {
	check.Nil(t, classify(nil))
	check.True(t, errors.Is(classify(domain.ErrBidTooLow), domain.ErrBidTooLow))
	check.False(t, errors.Is(classify(domain.ErrBidTooLow), domain.ErrStorageFailure))

	wrapped := classify(errors.New("connection reset"))
	check.True(t, errors.Is(wrapped, domain.ErrStorageFailure))
}
