package postgres

import (
	"context"
	"errors"

	"github.com/cristianortiz/vendorAuctions/internal/user/domain" // Importa el dominio del usuario
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implementa la interfaz domain.UserRepository para PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository crea una nueva instancia de UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID obtiene un usuario por su ID, junto con su vendor y permisos cuando es staff.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
        SELECT u.id, u.role, s.vendor_id, COALESCE(s.permissions, '{}')
        FROM users u
        LEFT JOIN vendor_staff s ON s.user_id = u.id
        WHERE u.id = $1
    `
	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Role,
		&user.VendorID,
		&user.Permissions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		// Otro error de base de datos
		return nil, err
	}

	return user, nil
}
