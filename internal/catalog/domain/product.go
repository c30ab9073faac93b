package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")

// ProductDirectory answers which vendor owns a product. The catalog itself is managed elsewhere.
type ProductDirectory interface {
	LookupProductVendor(ctx context.Context, productID uuid.UUID) (uuid.UUID, error)
}
