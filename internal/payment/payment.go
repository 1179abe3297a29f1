// Package payment charges an organization for a package through the
// payment processor and records the result.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smmart/internal/audit"
	"smmart/internal/models"
	"smmart/internal/subscription"
)

type Service struct {
	db        *gorm.DB
	processor Processor
	subs      *subscription.Service
	currency  string
}

func NewService(db *gorm.DB, processor Processor, subs *subscription.Service, currency string) *Service {
	return &Service{db: db, processor: processor, subs: subs, currency: currency}
}

type ConfirmRequest struct {
	PackageName     string
	PaymentMethodID string
	// IdempotencyKey makes client retries safe; one is generated when empty.
	IdempotencyKey string
}

type Receipt struct {
	Payment      *models.Payment
	Customer     *Customer
	Organization *models.Organization
	Subscription *models.PackageStatus
}

// Confirm charges the price of the requested package. A declined card
// returns a *CardError and writes nothing. On success every earlier payment
// of the organization is deactivated, the new one stored as active, and the
// organization moved to the purchased package. A retry that reaches the
// same payment intent returns the stored payment instead.
func (s *Service) Confirm(ctx context.Context, user *models.User, actor audit.Actor, req ConfirmRequest) (*Receipt, error) {
	pkg, err := subscription.FindPackage(s.db.WithContext(ctx), req.PackageName)
	if err != nil {
		return nil, err
	}

	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, user.OrganizationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("loading organization %d: %w", user.OrganizationID, err)
	}

	customer, err := s.processor.EnsureCustomer(ctx, user.Name, user.Email, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	charge, err := s.processor.Charge(ctx, ChargeRequest{
		CustomerID:      customer.ID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          pkg.PriceCents(),
		Currency:        s.currency,
		ReceiptEmail:    user.Email,
		IdempotencyKey:  key,
	})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Customer: customer, Organization: &org}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recorded models.Payment
		err := tx.Where("payment_intent_id = ?", charge.ID).First(&recorded).Error
		switch {
		case err == nil:
			return s.replay(ctx, tx, &recorded, charge, actor, pkg, receipt)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("looking up payment %s: %w", charge.ID, err)
		}

		if err := tx.Model(&models.Payment{}).
			Where("organization_id = ? AND is_active = ?", org.ID, true).
			Updates(map[string]any{"is_active": false, "last_updated_by": user.ID}).Error; err != nil {
			return fmt.Errorf("deactivating previous payments: %w", err)
		}

		p := models.Payment{
			PaymentIntentID: charge.ID,
			OrganizationID:  org.ID,
			PackageID:       pkg.ID,
			Amount:          pkg.PriceCents(),
			Currency:        s.currency,
			Succeeded:       charge.Succeeded,
			IsActive:        true,
		}
		p.Stamp(user.ID)
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("storing payment: %w", err)
		}
		receipt.Payment = &p

		if err := audit.Record(ctx, tx, actor, audit.Entry{
			Action:       "payment.confirm",
			ResourceType: "payment",
			ResourceID:   p.ID,
			Metadata: map[string]any{
				"package":           pkg.Name,
				"amount":            p.Amount,
				"payment_intent_id": charge.ID,
				"status":            charge.Status,
			},
		}); err != nil {
			return err
		}

		if !charge.Succeeded {
			return nil
		}
		res, err := s.subs.AssignTx(ctx, tx, actor, pkg.Name)
		if err != nil {
			return err
		}
		receipt.Subscription = res.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// replay answers a retried confirmation whose payment intent is already
// stored. Nothing is written again unless the intent has since succeeded.
func (s *Service) replay(ctx context.Context, tx *gorm.DB, p *models.Payment, charge *Charge, actor audit.Actor, pkg *models.Package, receipt *Receipt) error {
	receipt.Payment = p

	if charge.Succeeded && !p.Succeeded {
		if err := tx.Model(p).Updates(map[string]any{"succeeded": true, "last_updated_by": actor.UserID}).Error; err != nil {
			return fmt.Errorf("marking payment %d succeeded: %w", p.ID, err)
		}
		p.Succeeded = true
		res, err := s.subs.AssignTx(ctx, tx, actor, pkg.Name)
		if err != nil {
			return err
		}
		receipt.Subscription = res.Status
		return nil
	}

	if !p.Succeeded {
		return nil
	}
	st, err := subscription.Active(ctx, tx, p.OrganizationID)
	if err != nil && !errors.Is(err, subscription.ErrNoActiveSubscription) {
		return err
	}
	receipt.Subscription = st
	return nil
}
