package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"smmart/internal/audit"
	"smmart/internal/db/dbtest"
	"smmart/internal/models"
	"smmart/internal/payment"
	"smmart/internal/subscription"
)

type fakeProcessor struct {
	customerErr error
	chargeErr   error
	status      string
	charges     []payment.ChargeRequest
}

func (f *fakeProcessor) EnsureCustomer(_ context.Context, _, email, _ string) (*payment.Customer, error) {
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	return &payment.Customer{ID: "cus_1", Email: email}, nil
}

func (f *fakeProcessor) Charge(_ context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	f.charges = append(f.charges, req)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	status := f.status
	if status == "" {
		status = "succeeded"
	}
	return &payment.Charge{ID: "pi_" + req.IdempotencyKey, Status: status, Succeeded: status == "succeeded"}, nil
}

type env struct {
	db    *gorm.DB
	svc   *payment.Service
	proc  *fakeProcessor
	user  models.User
	actor audit.Actor
	basic models.Package
	pro   models.Package
}

func setup(t *testing.T) *env {
	t.Helper()
	gdb := dbtest.New(t)
	e := &env{db: gdb, proc: &fakeProcessor{}}

	e.basic = models.Package{Name: "basic", Price: 9.99}
	e.pro = models.Package{Name: "pro", Price: 29.99}
	require.NoError(t, gdb.Create(&e.basic).Error)
	require.NoError(t, gdb.Create(&e.pro).Error)
	require.NoError(t, gdb.Create(&models.UserRole{Name: models.RoleAdmin}).Error)
	org := models.Organization{Name: "Acme"}
	require.NoError(t, gdb.Create(&org).Error)

	subs := subscription.NewService(gdb, 30*24*time.Hour)
	_, err := subs.Provision(context.Background(), gdb, org.ID, &e.basic, 0)
	require.NoError(t, err)

	e.user = models.User{Email: "admin@acme.io", Name: "Admin", IsActive: true, UserRoleID: 1, OrganizationID: org.ID, PackageID: e.basic.ID}
	require.NoError(t, gdb.Create(&e.user).Error)
	e.actor = audit.Actor{UserID: e.user.ID, OrgID: org.ID, Name: e.user.Name}

	e.svc = payment.NewService(gdb, e.proc, subs, "usd")
	return e
}

func TestConfirmSuccess(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	first, err := e.svc.Confirm(ctx, &e.user, e.actor, payment.ConfirmRequest{PackageName: "pro", PaymentMethodID: "pm_1", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, first.Payment.Succeeded)
	assert.Equal(t, "Acme", first.Organization.Name)
	require.NotNil(t, first.Subscription)
	assert.Equal(t, e.pro.ID, first.Subscription.PackageID)

	require.Len(t, e.proc.charges, 1)
	assert.Equal(t, int64(2999), e.proc.charges[0].Amount)
	assert.Equal(t, "usd", e.proc.charges[0].Currency)
	assert.Equal(t, "k1", e.proc.charges[0].IdempotencyKey)

	second, err := e.svc.Confirm(ctx, &e.user, e.actor, payment.ConfirmRequest{PackageName: "basic", PaymentMethodID: "pm_1"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.proc.charges[1].IdempotencyKey)

	var payments []models.Payment
	require.NoError(t, e.db.Order("id").Find(&payments).Error)
	require.Len(t, payments, 2)
	assert.False(t, payments[0].IsActive)
	assert.True(t, payments[1].IsActive)
	assert.Equal(t, second.Payment.ID, payments[1].ID)

	var u models.User
	require.NoError(t, e.db.First(&u, e.user.ID).Error)
	assert.Equal(t, e.basic.ID, u.PackageID)
}

func TestConfirmCardDeclined(t *testing.T) {
	e := setup(t)
	e.proc.chargeErr = &payment.CardError{Message: "Your card was declined."}

	_, err := e.svc.Confirm(context.Background(), &e.user, e.actor, payment.ConfirmRequest{PackageName: "pro", PaymentMethodID: "pm_x"})
	assert.ErrorIs(t, err, payment.ErrCardDeclined)
	assert.EqualError(t, err, "Your card was declined.")

	var n int64
	require.NoError(t, e.db.Model(&models.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestConfirmProcessorFailurePropagates(t *testing.T) {
	e := setup(t)
	boom := errors.New("network down")
	e.proc.customerErr = boom

	_, err := e.svc.Confirm(context.Background(), &e.user, e.actor, payment.ConfirmRequest{PackageName: "pro", PaymentMethodID: "pm_x"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, payment.ErrCardDeclined)
}

func TestConfirmUnknownPackage(t *testing.T) {
	e := setup(t)

	_, err := e.svc.Confirm(context.Background(), &e.user, e.actor, payment.ConfirmRequest{PackageName: "gold", PaymentMethodID: "pm_x"})
	assert.ErrorIs(t, err, subscription.ErrPackageNotFound)
	assert.Empty(t, e.proc.charges)
}

func TestConfirmPendingChargeKeepsPackage(t *testing.T) {
	e := setup(t)
	e.proc.status = "requires_action"

	r, err := e.svc.Confirm(context.Background(), &e.user, e.actor, payment.ConfirmRequest{PackageName: "pro", PaymentMethodID: "pm_1"})
	require.NoError(t, err)
	assert.False(t, r.Payment.Succeeded)
	assert.True(t, r.Payment.IsActive)
	assert.Nil(t, r.Subscription)

	var u models.User
	require.NoError(t, e.db.First(&u, e.user.ID).Error)
	assert.Equal(t, e.basic.ID, u.PackageID)
}

func TestConfirmRetryWithSameKeyRecordsOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	req := payment.ConfirmRequest{PackageName: "pro", PaymentMethodID: "pm_1", IdempotencyKey: "k1"}

	first, err := e.svc.Confirm(ctx, &e.user, e.actor, req)
	require.NoError(t, err)
	var auditBefore int64
	require.NoError(t, e.db.Model(&models.AuditLog{}).Count(&auditBefore).Error)

	retry, err := e.svc.Confirm(ctx, &e.user, e.actor, req)
	require.NoError(t, err)

	assert.Equal(t, first.Payment.ID, retry.Payment.ID)
	require.NotNil(t, retry.Subscription)
	assert.Equal(t, first.Subscription.ID, retry.Subscription.ID)
	assert.Equal(t, first.Subscription.EndDate.Unix(), retry.Subscription.EndDate.Unix())

	var payments []models.Payment
	require.NoError(t, e.db.Where("payment_intent_id = ?", "pi_k1").Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].IsActive)

	var rows int64
	require.NoError(t, e.db.Model(&models.PackageStatus{}).Where("organization_id = ?", e.user.OrganizationID).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)

	var auditAfter int64
	require.NoError(t, e.db.Model(&models.AuditLog{}).Count(&auditAfter).Error)
	assert.Equal(t, auditBefore, auditAfter)
}

func TestConfirmRetryAfterPendingChargeAssigns(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	req := payment.ConfirmRequest{PackageName: "pro", PaymentMethodID: "pm_1", IdempotencyKey: "k2"}

	e.proc.status = "requires_action"
	pending, err := e.svc.Confirm(ctx, &e.user, e.actor, req)
	require.NoError(t, err)
	assert.Nil(t, pending.Subscription)

	e.proc.status = "succeeded"
	done, err := e.svc.Confirm(ctx, &e.user, e.actor, req)
	require.NoError(t, err)
	assert.Equal(t, pending.Payment.ID, done.Payment.ID)
	assert.True(t, done.Payment.Succeeded)
	require.NotNil(t, done.Subscription)
	assert.Equal(t, e.pro.ID, done.Subscription.PackageID)

	var n int64
	require.NoError(t, e.db.Model(&models.Payment{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
