package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/vendorAuctions/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepository implements domain.ProductDirectory over the products table
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) LookupProductVendor(ctx context.Context, productID uuid.UUID) (uuid.UUID, error) {
	var vendorID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT vendor_id FROM products WHERE id = $1`, productID).Scan(&vendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.ErrProductNotFound
		}
		return uuid.Nil, err
	}
	return vendorID, nil
}
