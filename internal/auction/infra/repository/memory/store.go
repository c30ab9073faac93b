// Package memory keeps auctions and bids in process. It honours the same contract as the
// postgres repositories: every write runs in a transaction, transactions are serialized (the
// equivalent of the auction row lock) and a rollback restores the state seen at BeginTx.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errNotInTx = errors.New("memory store: write outside of a transaction")

// Store is the shared state behind AuctionRepository and BidRepository
type Store struct {
	txSem chan struct{}

	mu       sync.RWMutex
	auctions map[uuid.UUID]domain.Auction
	bids     map[uuid.UUID]domain.Bid
	seq      int64
	fault    error
}

func NewStore() *Store {
	return &Store{
		txSem:    make(chan struct{}, 1),
		auctions: make(map[uuid.UUID]domain.Auction),
		bids:     make(map[uuid.UUID]domain.Bid),
	}
}

// FailNextWrite makes the next write inside a transaction return err
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = err
}

// BeginTx waits for the running transaction, if any, to finish
func (s *Store) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	tx := &memTx{
		store:    s,
		auctions: make(map[uuid.UUID]domain.Auction, len(s.auctions)),
		bids:     make(map[uuid.UUID]domain.Bid, len(s.bids)),
		seq:      s.seq,
	}
	for id, a := range s.auctions {
		tx.auctions[id] = cloneAuction(a)
	}
	for id, b := range s.bids {
		tx.bids[id] = b
	}
	return tx, nil
}

// write runs fn under the data lock, failing when tx is not one of ours or a fault is armed
func (s *Store) write(tx pgx.Tx, fn func() error) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s || mt.done {
		return errNotInTx
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		err := s.fault
		s.fault = nil
		return err
	}
	return fn()
}

// memTx only implements the part of pgx.Tx the application layer calls
type memTx struct {
	pgx.Tx

	store    *Store
	auctions map[uuid.UUID]domain.Auction
	bids     map[uuid.UUID]domain.Bid
	seq      int64
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		t.restore()
		return err
	}
	t.finish()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.restore()
	return nil
}

func (t *memTx) restore() {
	s := t.store
	s.mu.Lock()
	s.auctions = t.auctions
	s.bids = t.bids
	s.seq = t.seq
	s.mu.Unlock()
	t.finish()
}

func (t *memTx) finish() {
	t.done = true
	<-t.store.txSem
}

func cloneAuction(a domain.Auction) domain.Auction {
	if a.WinningBidID != nil {
		id := *a.WinningBidID
		a.WinningBidID = &id
	}
	if a.LastBidAt != nil {
		at := *a.LastBidAt
		a.LastBidAt = &at
	}
	return a
}
