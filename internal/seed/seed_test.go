package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smmart/internal/accounts"
	"smmart/internal/db/dbtest"
	"smmart/internal/models"
	"smmart/internal/rbac"
	"smmart/internal/seed"
	"smmart/internal/subscription"
)

func TestFirstSetupIsIdempotent(t *testing.T) {
	gdb := dbtest.New(t)
	ctx := context.Background()
	subs := subscription.NewService(gdb, 30*24*time.Hour)
	mgr := accounts.NewManager(gdb, subs, "basic")
	opts := seed.Options{DefaultPackage: "basic", AdminEmail: "Root@Example.COM", AdminPassword: "rootpass"}

	require.NoError(t, seed.FirstSetup(ctx, gdb, subs, mgr, opts))
	require.NoError(t, seed.FirstSetup(ctx, gdb, subs, mgr, opts))

	var n int64
	require.NoError(t, gdb.Model(&models.Package{}).Count(&n).Error)
	assert.Equal(t, int64(len(seed.Packages)), n)
	require.NoError(t, gdb.Model(&models.Permission{}).Count(&n).Error)
	assert.Equal(t, int64(len(rbac.Definitions)), n)
	require.NoError(t, gdb.Model(&models.PackageStatus{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	var admin models.UserRole
	require.NoError(t, gdb.Preload("Permissions").Where("name = ?", models.RoleAdmin).First(&admin).Error)
	assert.Len(t, admin.Permissions, len(rbac.RolePermissions[models.RoleAdmin]))

	var root models.User
	require.NoError(t, gdb.Where("email = ?", "Root@example.com").First(&root).Error)
	assert.True(t, root.IsSuperuser)
	assert.True(t, root.IsStaff)

	cur, err := subs.Current(ctx, root.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, "basic", cur.Package.Name)
}

func TestFirstSetupUnknownDefaultPackage(t *testing.T) {
	gdb := dbtest.New(t)
	subs := subscription.NewService(gdb, time.Hour)
	mgr := accounts.NewManager(gdb, subs, "gold")

	err := seed.FirstSetup(context.Background(), gdb, subs, mgr, seed.Options{DefaultPackage: "gold"})
	assert.ErrorIs(t, err, subscription.ErrPackageNotFound)
}
