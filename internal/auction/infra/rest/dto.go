package rest

import (
	"encoding/json"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/auction/application"
	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/shopspring/decimal"
)

// PlaceBidRequest is the body of POST /auctions/:id/bids. Amount accepts a JSON number or string.
type PlaceBidRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// amount decodes Amount. Anything but a well formed positive amount is domain.ErrInvalidAmount.
func (r PlaceBidRequest) amount() (decimal.Decimal, error) {
	raw := r.Amount
	if len(raw) == 0 || raw[0] == 'n' || raw[0] == 't' || raw[0] == 'f' || raw[0] == '{' || raw[0] == '[' {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, domain.ErrInvalidAmount
		}
	}
	return domain.ParseAmount(text)
}

// CreateAuctionRequest is the body of POST /auctions
type CreateAuctionRequest struct {
	ProductID         string              `json:"product_id"`
	StartingPrice     decimal.Decimal     `json:"starting_price"`
	ReservePrice      decimal.Decimal     `json:"reserve_price"`
	BuyNowPrice       decimal.NullDecimal `json:"buy_now_price"`
	MinIncrement      decimal.Decimal     `json:"min_increment"`
	StartsAt          time.Time           `json:"starts_at"`
	EndsAt            time.Time           `json:"ends_at"`
	AllowAutoExtend   bool                `json:"allow_auto_extend"`
	AutoExtendMinutes int                 `json:"auto_extend_minutes"`
}

func (r CreateAuctionRequest) terms() domain.AuctionTerms {
	return domain.AuctionTerms{
		StartingPrice:     r.StartingPrice,
		ReservePrice:      r.ReservePrice,
		BuyNowPrice:       r.BuyNowPrice,
		MinIncrement:      r.MinIncrement,
		StartsAt:          r.StartsAt.UTC(),
		EndsAt:            r.EndsAt.UTC(),
		AllowAutoExtend:   r.AllowAutoExtend,
		AutoExtendMinutes: r.AutoExtendMinutes,
	}
}

// ChangeStatusRequest is the body of PATCH /auctions/:id/status
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type AuctionResponse struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	VendorID          string     `json:"vendor_id"`
	Status            string     `json:"status"`
	StartingPrice     string     `json:"starting_price"`
	ReservePrice      string     `json:"reserve_price"`
	BuyNowPrice       *string    `json:"buy_now_price,omitempty"`
	MinIncrement      string     `json:"min_increment"`
	CurrentBid        string     `json:"current_bid"`
	MinimumNextBid    string     `json:"minimum_next_bid"`
	TotalBids         int        `json:"total_bids"`
	WinningBidID      *string    `json:"winning_bid_id,omitempty"`
	WinningAmount     string     `json:"winning_amount"`
	StartsAt          time.Time  `json:"starts_at"`
	EndsAt            time.Time  `json:"ends_at"`
	LastBidAt         *time.Time `json:"last_bid_at,omitempty"`
	AllowAutoExtend   bool       `json:"allow_auto_extend"`
	AutoExtendMinutes int        `json:"auto_extend_minutes"`
}

type BidResponse struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	IsAutoBid bool      `json:"is_auto_bid"`
	CreatedAt time.Time `json:"created_at"`
}

// AuctionDetailResponse is GET /auctions/:id
type AuctionDetailResponse struct {
	AuctionResponse
	TopBid *BidResponse `json:"top_bid,omitempty"`
}

// PlaceBidResponse is an accepted bid with the auction it changed
type PlaceBidResponse struct {
	Bid      BidResponse     `json:"bid"`
	Auction  AuctionResponse `json:"auction"`
	Extended bool            `json:"extended"`
}

// MyBidResponse is one row of GET /me/bids
type MyBidResponse struct {
	BidResponse
	AuctionStatus string    `json:"auction_status"`
	AuctionEndsAt time.Time `json:"auction_ends_at"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ErrorResponse struct {
	Error   string  `json:"error"`
	Code    string  `json:"code"`
	Minimum *string `json:"minimum,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyPlaces)
}

func toAuctionResponse(a *domain.Auction) AuctionResponse {
	res := AuctionResponse{
		ID:                a.ID.String(),
		ProductID:         a.ProductID.String(),
		VendorID:          a.VendorID.String(),
		Status:            string(a.Status),
		StartingPrice:     money(a.StartingPrice),
		ReservePrice:      money(a.ReservePrice),
		MinIncrement:      money(a.MinIncrement),
		CurrentBid:        money(a.CurrentBid),
		MinimumNextBid:    money(a.MinimumNextBid()),
		TotalBids:         a.TotalBids,
		WinningAmount:     money(a.WinningAmount),
		StartsAt:          a.StartsAt.UTC(),
		EndsAt:            a.EndsAt.UTC(),
		LastBidAt:         a.LastBidAt,
		AllowAutoExtend:   a.AllowAutoExtend,
		AutoExtendMinutes: a.AutoExtendMinutes,
	}
	if a.BuyNowPrice.Valid {
		v := money(a.BuyNowPrice.Decimal)
		res.BuyNowPrice = &v
	}
	if a.WinningBidID != nil {
		v := a.WinningBidID.String()
		res.WinningBidID = &v
	}
	return res
}

func toAuctionResponses(auctions []*domain.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, toAuctionResponse(a))
	}
	return out
}

func toBidResponse(b *domain.Bid) BidResponse {
	return BidResponse{
		ID:        b.ID.String(),
		AuctionID: b.AuctionID.String(),
		BidderID:  b.BidderID.String(),
		Amount:    money(b.Amount),
		Status:    string(b.Status),
		IsAutoBid: b.IsAutoBid,
		CreatedAt: b.CreatedAt.UTC(),
	}
}

func toBidResponses(bids []*domain.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, toBidResponse(b))
	}
	return out
}

func toMyBidResponses(views []*application.BidView) []MyBidResponse {
	out := make([]MyBidResponse, 0, len(views))
	for _, v := range views {
		row := MyBidResponse{BidResponse: toBidResponse(v.Bid)}
		if v.Auction != nil {
			row.AuctionStatus = string(v.Auction.Status)
			row.AuctionEndsAt = v.Auction.EndsAt.UTC()
		}
		out = append(out, row)
	}
	return out
}
