package rest

import (
	"errors"

	"github.com/cristianortiz/vendorAuctions/internal/auction/domain"
	catalogdomain "github.com/cristianortiz/vendorAuctions/internal/catalog/domain"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	errMissingActor = errors.New("missing or malformed X-Actor-ID header")
	errBadID        = errors.New("malformed id")
	errBadBody      = errors.New("malformed request body")
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

// first match wins, so the more specific kinds go first
var errorMappings = []errorMapping{
	{domain.ErrInvalidAmount, fiber.StatusUnprocessableEntity, "invalid_amount"},
	{domain.ErrInvalidTerms, fiber.StatusUnprocessableEntity, "invalid_terms"},
	{domain.ErrAuctionNotFound, fiber.StatusNotFound, "auction_not_found"},
	{catalogdomain.ErrProductNotFound, fiber.StatusNotFound, "product_not_found"},
	{domain.ErrAuctionNotLive, fiber.StatusConflict, "auction_not_live"},
	{domain.ErrOutsideWindow, fiber.StatusConflict, "outside_window"},
	{domain.ErrInvalidStatusTransition, fiber.StatusConflict, "invalid_status_transition"},
	{domain.ErrBidTooLow, fiber.StatusConflict, "bid_too_low"},
	{domain.ErrSelfBidForbidden, fiber.StatusForbidden, "self_bid_forbidden"},
	{domain.ErrPermissionDenied, fiber.StatusForbidden, "permission_denied"},
	{errMissingActor, fiber.StatusUnauthorized, "missing_actor"},
	{errBadID, fiber.StatusBadRequest, "bad_request"},
	{errBadBody, fiber.StatusBadRequest, "bad_request"},
}

// ErrorHandler renders every error a handler returns as an ErrorResponse
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Code: "http_error"})
	}

	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		res := ErrorResponse{Error: m.kind.Error(), Code: m.code}
		var tooLow *domain.BidTooLowError
		if errors.As(err, &tooLow) {
			minimum := money(tooLow.Minimum)
			res.Minimum = &minimum
			res.Error = tooLow.Error()
		}
		var termsErr *domain.TermsError
		if errors.As(err, &termsErr) {
			res.Error = termsErr.Error()
		}
		return c.Status(m.status).JSON(res)
	}

	log.Error("Unhandled request error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: "internal error",
		Code:  "internal",
	})
}
