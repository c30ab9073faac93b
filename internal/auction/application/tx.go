package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	catalogdomain "github.com/cristianortiz/vendorAuctions/internal/catalog/domain"
	"github.com/cristianortiz/vendorAuctions/internal/shared/logger"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// TxPolicy bounds how long one locked attempt may take and how often a conflicting attempt is
// re-validated before giving up
type TxPolicy struct {
	Timeout    time.Duration
	MaxRetries int
}

func DefaultTxPolicy() TxPolicy {
	return TxPolicy{Timeout: 5 * time.Second, MaxRetries: 5}
}

// run calls attempt until it returns something other than ErrConcurrencyConflict.
// Each attempt gets its own deadline; conflicts never leave this function.
func (p TxPolicy) run(ctx context.Context, op string, attempt func(ctx context.Context) error) error {
	maxRetries := max(p.MaxRetries, 1)
	for n := 1; ; n++ {
		err := p.attempt(ctx, attempt)
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if n >= maxRetries {
			log.Error("Giving up after repeated write conflicts",
				zap.String("op", op),
				zap.Int("attempts", n),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %s: gave up after %d conflicting attempts", domain.ErrStorageFailure, op, n)
		}
		log.Warn("Write conflict, re-validating",
			zap.String("op", op),
			zap.Int("attempt", n),
			zap.Error(err),
		)
	}
}

func (p TxPolicy) attempt(ctx context.Context, attempt func(ctx context.Context) error) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return attempt(ctx)
}

// runInTx runs fn inside one transaction: commit if fn returns nil, rollback otherwise.
// Validation failures that must still commit a reconciliation are reported by the caller
// outside of fn's return value.
func runInTx(ctx context.Context, db domain.TxBeginner, op string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		log.Error("Failed to begin transaction", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	//config defer() to handles commit/rollback
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic during transaction", zap.String("op", op), zap.Any("panic", r))
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(r)
		}
		if err != nil {
			log.Debug("Rolling back transaction", zap.String("op", op), zap.Error(err))
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("Failed to commit transaction", zap.String("op", op), zap.Error(commitErr))
			_ = tx.Rollback(context.WithoutCancel(ctx))
			err = fmt.Errorf("%s: failed to commit transaction: %w", op, commitErr)
		}
	}()

	return fn(tx)
}

// callerErrors are the kinds handed to callers as they are, anything else is a storage failure
var callerErrors = []error{
	domain.ErrInvalidAmount,
	domain.ErrAuctionNotFound,
	domain.ErrAuctionNotLive,
	domain.ErrOutsideWindow,
	domain.ErrSelfBidForbidden,
	domain.ErrBidTooLow,
	domain.ErrPermissionDenied,
	domain.ErrInvalidTerms,
	domain.ErrInvalidStatusTransition,
	domain.ErrStorageFailure,
	catalogdomain.ErrProductNotFound,
}

func isCallerError(err error) bool {
	for _, kind := range callerErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	if err == nil || isCallerError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

// publish hands evt to the event bus after commit. Failures are logged, the state change
// already happened.
func publish(ctx context.Context, events domain.EventPublisher, evt domain.Event) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := events.Publish(ctx, evt); err != nil {
		log.Warn("Failed to publish auction event",
			zap.String("type", evt.Type.String()),
			zap.String("auctionID", evt.AuctionID.String()),
			zap.Error(err),
		)
	}
}
