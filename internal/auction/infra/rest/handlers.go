// Package rest exposes the auction use cases over HTTP with fiber
package rest

import (
	"fmt"
	"strings"

	"github.com/cristianortiz/vendorAuctions/internal/auction/application"
	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	"github.com/cristianortiz/vendorAuctions/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var log = logger.GetLogger()

// ActorHeader carries the id of the authenticated caller, set by the gateway in front of us
const ActorHeader = "X-Actor-ID"

const actorKey = "actorID"

// AuctionHandler translates HTTP requests into AuctionService calls
type AuctionHandler struct {
	auctionService application.AuctionService
}

func NewAuctionHandler(auctionService application.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// RegisterRoutes mounts the auction routes on r
func (h *AuctionHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/auctions", h.ListPublic)
	r.Get("/auctions/:id", h.GetAuction)
	r.Get("/auctions/:id/bids", h.BidHistory)

	r.Post("/auctions", requireActor, h.CreateAuction)
	r.Post("/auctions/:id/bids", requireActor, h.PlaceBid)
	r.Patch("/auctions/:id/status", requireActor, h.ChangeStatus)
	r.Get("/me/bids", requireActor, h.MyBids)
	r.Get("/vendor/auctions", requireActor, h.ListVendor)
	r.Get("/admin/auctions", requireActor, h.ListAdmin)
}

// requireActor rejects requests without a parseable actor id and stores it for the handlers
func requireActor(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Get(ActorHeader))
	if err != nil {
		return errMissingActor
	}
	c.Locals(actorKey, id)
	return c.Next()
}

func actorID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(actorKey).(uuid.UUID)
	return id
}

func pathID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", errBadID, c.Params("id"))
	}
	return id, nil
}

func page(c *fiber.Ctx) application.Page {
	return application.Page{
		Limit:  c.QueryInt("limit", application.DefaultPageLimit),
		Offset: c.QueryInt("offset", 0),
	}.Normalize()
}

func (h *AuctionHandler) ListPublic(c *fiber.Ctx) error {
	p := page(c)
	auctions, err := h.auctionService.ListPublic(c.UserContext(), c.QueryBool("upcoming"), p)
	if err != nil {
		return err
	}
	return c.JSON(ListResponse[AuctionResponse]{Items: toAuctionResponses(auctions), Limit: p.Limit, Offset: p.Offset})
}

func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	view, err := h.auctionService.GetAuction(c.UserContext(), id)
	if err != nil {
		return err
	}
	res := AuctionDetailResponse{AuctionResponse: toAuctionResponse(view.Auction)}
	if view.TopBid != nil {
		top := toBidResponse(view.TopBid)
		res.TopBid = &top
	}
	return c.JSON(res)
}

func (h *AuctionHandler) BidHistory(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	bids, err := h.auctionService.BidHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ListResponse[BidResponse]{Items: toBidResponses(bids), Limit: len(bids)})
}

func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fmt.Errorf("%w: product_id %q", errBadID, req.ProductID)
	}

	a, err := h.auctionService.CreateAuction(c.UserContext(), application.CreateAuctionDTO{
		ActorID:   actorID(c),
		ProductID: productID,
		Terms:     req.terms(),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toAuctionResponse(a))
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	amount, err := req.amount()
	if err != nil {
		return err
	}

	res, err := h.auctionService.PlaceBid(c.UserContext(), application.PlaceBidDTO{
		AuctionID: id,
		BidderID:  actorID(c),
		Amount:    amount,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(PlaceBidResponse{
		Bid:      toBidResponse(res.Bid),
		Auction:  toAuctionResponse(res.Auction),
		Extended: res.Extended,
	})
}

func (h *AuctionHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}

	a, err := h.auctionService.ChangeStatus(c.UserContext(), application.ChangeStatusDTO{
		ActorID:   actorID(c),
		AuctionID: id,
		Status:    domain.AuctionStatus(strings.ToLower(req.Status)),
	})
	if err != nil {
		return err
	}
	return c.JSON(toAuctionResponse(a))
}

func (h *AuctionHandler) MyBids(c *fiber.Ctx) error {
	p := page(c)
	views, err := h.auctionService.MyBids(c.UserContext(), actorID(c), p)
	if err != nil {
		return err
	}
	return c.JSON(ListResponse[MyBidResponse]{Items: toMyBidResponses(views), Limit: p.Limit, Offset: p.Offset})
}

func (h *AuctionHandler) ListVendor(c *fiber.Ctx) error {
	p := page(c)
	auctions, err := h.auctionService.ListVendor(c.UserContext(), actorID(c), p)
	if err != nil {
		return err
	}
	return c.JSON(ListResponse[AuctionResponse]{Items: toAuctionResponses(auctions), Limit: p.Limit, Offset: p.Offset})
}

// ListAdmin takes ?status=live,ended to narrow the listing
func (h *AuctionHandler) ListAdmin(c *fiber.Ctx) error {
	var statuses []domain.AuctionStatus
	for _, s := range strings.Split(c.Query("status"), ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		status := domain.AuctionStatus(s)
		if !status.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown status %q", s))
		}
		statuses = append(statuses, status)
	}

	p := page(c)
	auctions, err := h.auctionService.ListAdmin(c.UserContext(), actorID(c), statuses, p)
	if err != nil {
		return err
	}
	return c.JSON(ListResponse[AuctionResponse]{Items: toAuctionResponses(auctions), Limit: p.Limit, Offset: p.Offset})
}
