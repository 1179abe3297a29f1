package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"smmart/internal/accounts"
	"smmart/internal/db/dbtest"
	"smmart/internal/models"
	"smmart/internal/subscription"
)

func newManager(t *testing.T) (*accounts.Manager, *gorm.DB) {
	t.Helper()
	gdb := dbtest.New(t)
	require.NoError(t, gdb.Create(&models.UserRole{Name: models.RoleAdmin}).Error)
	require.NoError(t, gdb.Create(&models.UserRole{Name: models.RoleUser}).Error)
	require.NoError(t, gdb.Create(&models.Package{Name: "basic", Price: 9.99}).Error)
	require.NoError(t, gdb.Create(&models.Organization{Name: "Default Organization"}).Error)

	subs := subscription.NewService(gdb, 30*24*time.Hour)
	return accounts.NewManager(gdb, subs, "basic"), gdb
}

func baseUser(email string) accounts.NewUser {
	return accounts.NewUser{Email: email, Password: "testpass123", OrganizationID: 1, RoleID: 1, PackageID: 1}
}

func TestNormalizeEmail(t *testing.T) {
	cases := [][2]string{
		{"test1@EXAMPLE.com", "test1@example.com"},
		{"Test2@Example.com", "Test2@example.com"},
		{"TEST3@EXAMPLE.COM", "TEST3@example.com"},
		{"test4@example.COM", "test4@example.com"},
		{"  spaced@Example.Com ", "spaced@example.com"},
		{"no-at-sign", "no-at-sign"},
	}
	for _, c := range cases {
		assert.Equal(t, c[1], accounts.NormalizeEmail(c[0]), c[0])
	}
}

func TestCreateUserWithEmail(t *testing.T) {
	m, _ := newManager(t)

	u, err := m.CreateUser(context.Background(), baseUser("test@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsStaff)
	assert.NotEqual(t, "testpass123", u.PasswordHash)
	assert.True(t, accounts.CheckPassword(u, "testpass123"))
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	m, _ := newManager(t)

	for _, c := range [][2]string{
		{"test1@EXAMPLE.com", "test1@example.com"},
		{"Test2@Example.com", "Test2@example.com"},
		{"TEST3@EXAMPLE.COM", "TEST3@example.com"},
	} {
		u, err := m.CreateUser(context.Background(), baseUser(c[0]))
		require.NoError(t, err)
		assert.Equal(t, c[1], u.Email)
	}
}

func TestCreateUserWithoutEmail(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.CreateUser(context.Background(), baseUser(""))
	assert.ErrorIs(t, err, accounts.ErrEmailRequired)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	_, err := m.CreateUser(ctx, baseUser("dup@example.com"))
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, baseUser("dup@EXAMPLE.com"))
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)
}

func TestCreateSuperuser(t *testing.T) {
	m, gdb := newManager(t)

	u, err := m.CreateSuperuser(context.Background(), baseUser("root@example.com"))
	require.NoError(t, err)
	assert.True(t, u.IsStaff)
	assert.True(t, u.IsSuperuser)

	var stored models.User
	require.NoError(t, gdb.First(&stored, u.ID).Error)
	assert.True(t, stored.IsStaff)
	assert.True(t, stored.IsSuperuser)
}

func TestAuthenticate(t *testing.T) {
	m, gdb := newManager(t)
	ctx := context.Background()

	created, err := m.CreateUser(ctx, baseUser("Login@Example.com"))
	require.NoError(t, err)

	u, err := m.Authenticate(ctx, "Login@EXAMPLE.COM", "testpass123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.NotNil(t, u.LastLogin)

	_, err = m.Authenticate(ctx, "Login@example.com", "wrong")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	_, err = m.Authenticate(ctx, "nobody@example.com", "testpass123")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	_, err = m.Authenticate(ctx, "Login@example.com", "testpass123")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func TestSetPassword(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	u, err := m.CreateUser(ctx, baseUser("pw@example.com"))
	require.NoError(t, err)
	require.NoError(t, m.SetPassword(ctx, u, "newpass"))

	_, err = m.Authenticate(ctx, "pw@example.com", "newpass")
	assert.NoError(t, err)
}

func TestRegister(t *testing.T) {
	m, gdb := newManager(t)
	ctx := context.Background()

	u, err := m.Register(ctx, accounts.Registration{
		Email:        "founder@Startup.io",
		Password:     "secret1",
		Name:         "Founder",
		Organization: models.Organization{Name: "Startup", Industry: "media"},
	})
	require.NoError(t, err)
	assert.Equal(t, "founder@startup.io", u.Email)
	require.NotNil(t, u.Organization)
	assert.Equal(t, "Startup", u.Organization.Name)
	assert.Equal(t, models.RoleAdmin, u.UserRole.Name)
	assert.Equal(t, "basic", u.Package.Name)

	var st models.PackageStatus
	require.NoError(t, gdb.Where("organization_id = ?", u.OrganizationID).First(&st).Error)
	assert.Equal(t, models.PackageActive, st.Status)
	assert.Equal(t, u.PackageID, st.PackageID)

	var org models.Organization
	require.NoError(t, gdb.First(&org, u.OrganizationID).Error)
	require.NotNil(t, org.CreatedBy)
	assert.Equal(t, u.ID, *org.CreatedBy)
}

func TestRegisterRollsBackOnDuplicateEmail(t *testing.T) {
	m, gdb := newManager(t)
	ctx := context.Background()

	_, err := m.CreateUser(ctx, baseUser("taken@example.com"))
	require.NoError(t, err)

	_, err = m.Register(ctx, accounts.Registration{
		Email:        "taken@example.com",
		Password:     "secret1",
		Organization: models.Organization{Name: "Second"},
	})
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)

	var orgs int64
	require.NoError(t, gdb.Model(&models.Organization{}).Count(&orgs).Error)
	assert.Equal(t, int64(1), orgs)
}

func TestUpdateUser(t *testing.T) {
	m, gdb := newManager(t)
	ctx := context.Background()
	u, err := m.CreateUser(ctx, baseUser("first@example.com"))
	require.NoError(t, err)
	_, err = m.CreateUser(ctx, baseUser("other@example.com"))
	require.NoError(t, err)

	email := "Renamed@EXAMPLE.com"
	name := " New Name "
	password := "newpass"
	require.NoError(t, m.UpdateUser(ctx, u, accounts.Changes{Email: &email, Name: &name, Password: &password}, u.ID))

	var stored models.User
	require.NoError(t, gdb.First(&stored, u.ID).Error)
	assert.Equal(t, "Renamed@example.com", stored.Email)
	assert.Equal(t, "New Name", stored.Name)
	assert.True(t, accounts.CheckPassword(&stored, "newpass"))
	assert.Equal(t, u.ID, *stored.LastUpdatedBy)

	taken := "other@example.com"
	assert.ErrorIs(t, m.UpdateUser(ctx, u, accounts.Changes{Email: &taken}, u.ID), accounts.ErrEmailTaken)

	empty := "  "
	assert.ErrorIs(t, m.UpdateUser(ctx, u, accounts.Changes{Email: &empty}, u.ID), accounts.ErrEmailRequired)

	same := "Renamed@example.com"
	assert.NoError(t, m.UpdateUser(ctx, u, accounts.Changes{Email: &same}, u.ID))
}

func TestDeleteUserRemovesTopics(t *testing.T) {
	m, gdb := newManager(t)
	ctx := context.Background()
	u, err := m.CreateUser(ctx, baseUser("owner@example.com"))
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&models.Topic{UserID: u.ID, Name: "launch"}).Error)

	require.NoError(t, m.DeleteUser(ctx, u))

	var n int64
	require.NoError(t, gdb.Model(&models.Topic{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", u.ID).Count(&n).Error)
	assert.Zero(t, n)
}
