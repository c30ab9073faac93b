package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"
)

func TestCanManageAuctionsOf(t *testing.T) {
	vendor := uuid.New()
	other := uuid.New()

	admin := &User{ID: uuid.New(), Role: RoleAdmin}
	staff := &User{ID: uuid.New(), Role: RoleVendor, VendorID: &vendor, Permissions: []string{PermissionManageAuctions}}
	readOnlyStaff := &User{ID: uuid.New(), Role: RoleVendor, VendorID: &vendor}
	customer := Anonymous(uuid.New())

	check.True(t, admin.CanManageAuctionsOf(other))
	check.True(t, staff.CanManageAuctionsOf(vendor))
	check.False(t, staff.CanManageAuctionsOf(other))
	check.False(t, readOnlyStaff.CanManageAuctionsOf(vendor))
	check.False(t, customer.CanManageAuctionsOf(vendor))
	check.Nil(t, customer.ResolveVendor())
	check.Equal(t, vendor, *readOnlyStaff.ResolveVendor())
}
