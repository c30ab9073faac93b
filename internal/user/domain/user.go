package domain

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

// Role is the coarse role of an actor
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// PermissionManageAuctions lets vendor staff create auctions and override their status
const PermissionManageAuctions = "manage_auctions"

var ErrUserNotFound = errors.New("user not found")

// User is the actor as seen by the auction engine. Authentication happens elsewhere.
type User struct {
	ID   uuid.UUID
	Role Role
	// VendorID is set for vendor staff
	VendorID    *uuid.UUID
	Permissions []string
}

// Anonymous is used for actors the identity store does not know: plain customers without a vendor
func Anonymous(id uuid.UUID) *User {
	return &User{ID: id, Role: RoleCustomer}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ResolveVendor returns the vendor the actor works for, nil if none
func (u *User) ResolveVendor() *uuid.UUID {
	return u.VendorID
}

func (u *User) HasPermission(p string) bool {
	return slices.Contains(u.Permissions, p)
}

// CanManageAuctionsOf reports whether the actor may create or override auctions of vendorID
func (u *User) CanManageAuctionsOf(vendorID uuid.UUID) bool {
	if u.IsAdmin() {
		return true
	}
	return u.VendorID != nil && *u.VendorID == vendorID && u.HasPermission(PermissionManageAuctions)
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
