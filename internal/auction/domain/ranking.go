package domain

import "sort"

// Outranks reports whether a beats b: higher amount first, then the earlier bid, then ledger order.
// Every "who leads" question in the engine goes through this ordering.
func Outranks(a, b *Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// RankBids sorts bids best first, in place, and returns them.
// Cancelled bids are kept but sorted after the rest.
func RankBids(bids []*Bid) []*Bid {
	sort.SliceStable(bids, func(i, j int) bool {
		ci, cj := bids[i].Status == BidCancelled, bids[j].Status == BidCancelled
		if ci != cj {
			return cj
		}
		return Outranks(bids[i], bids[j])
	})
	return bids
}

// TopBid returns the highest ranked non cancelled bid, nil if there is none
func TopBid(bids []*Bid) *Bid {
	var top *Bid
	for _, b := range bids {
		if b.Status == BidCancelled {
			continue
		}
		if top == nil || Outranks(b, top) {
			top = b
		}
	}
	return top
}
