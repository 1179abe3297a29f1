// Package subscription manages which package an organization is subscribed
// to. Each change of package appends a PackageStatus row; renewing the same
// package extends the active row in place.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smmart/internal/audit"
	"smmart/internal/models"
)

var (
	ErrPackageNotFound      = errors.New("package does not exist")
	ErrNoActiveSubscription = errors.New("package status not found for the user organization")
	ErrOrganizationNotFound = errors.New("organization not found")
)

type Service struct {
	db     *gorm.DB
	period time.Duration
	now    func() time.Time
}

func NewService(db *gorm.DB, period time.Duration) *Service {
	return &Service{db: db, period: period, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Result is the outcome of an assignment.
type Result struct {
	Status   *models.PackageStatus
	Previous *models.PackageStatus
	Renewed  bool
}

// Packages lists every package ordered by price.
func (s *Service) Packages(ctx context.Context) ([]models.Package, error) {
	var pkgs []models.Package
	if err := s.db.WithContext(ctx).Order("price ASC, id ASC").Find(&pkgs).Error; err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	return pkgs, nil
}

// FindPackage resolves a package by name.
func FindPackage(tx *gorm.DB, name string) (*models.Package, error) {
	if name == "" {
		return nil, ErrPackageNotFound
	}
	var pkg models.Package
	if err := tx.Where("name = ?", name).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("finding package %q: %w", name, err)
	}
	return &pkg, nil
}

// Current returns the active subscription of orgID with its package.
func (s *Service) Current(ctx context.Context, orgID int64) (*models.PackageStatus, error) {
	return Active(ctx, s.db, orgID)
}

// Active is Current on a caller-owned handle, usually a transaction.
func Active(ctx context.Context, tx *gorm.DB, orgID int64) (*models.PackageStatus, error) {
	var st models.PackageStatus
	err := tx.WithContext(ctx).
		Preload("Package").
		Where("organization_id = ? AND status = ?", orgID, models.PackageActive).
		Order("id DESC").
		First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("loading active subscription for org %d: %w", orgID, err)
	}
	return &st, nil
}

// History lists every subscription period of orgID, newest first.
func (s *Service) History(ctx context.Context, orgID int64) ([]models.PackageStatus, error) {
	var rows []models.PackageStatus
	err := s.db.WithContext(ctx).
		Preload("Package").
		Where("organization_id = ?", orgID).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading subscription history for org %d: %w", orgID, err)
	}
	return rows, nil
}

// Provision opens the first subscription period of a new organization.
func (s *Service) Provision(ctx context.Context, tx *gorm.DB, orgID int64, pkg *models.Package, actorID int64) (*models.PackageStatus, error) {
	now := s.now()
	st := models.PackageStatus{
		OrganizationID: orgID,
		PackageID:      pkg.ID,
		Status:         models.PackageActive,
		StartDate:      now,
		EndDate:        now.Add(s.period),
	}
	st.Stamp(actorID)
	if err := tx.WithContext(ctx).Create(&st).Error; err != nil {
		return nil, fmt.Errorf("provisioning subscription for org %d: %w", orgID, err)
	}
	st.Package = pkg
	return &st, nil
}

// Assign moves the actor's organization to packageName inside one
// transaction.
func (s *Service) Assign(ctx context.Context, actor audit.Actor, packageName string) (*Result, error) {
	var res *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.AssignTx(ctx, tx, actor, packageName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AssignTx is Assign on a caller-owned transaction. The organization row is
// locked first so concurrent assignments for one organization serialize.
func (s *Service) AssignTx(ctx context.Context, tx *gorm.DB, actor audit.Actor, packageName string) (*Result, error) {
	tx = tx.WithContext(ctx)

	var org models.Organization
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&org, actor.OrgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("locking org %d: %w", actor.OrgID, err)
	}

	pkg, err := FindPackage(tx, packageName)
	if err != nil {
		return nil, err
	}

	var current *models.PackageStatus
	var row models.PackageStatus
	err = tx.Where("organization_id = ? AND status = ?", org.ID, models.PackageActive).
		Order("id DESC").
		First(&row).Error
	switch {
	case err == nil:
		current = &row
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("loading active subscription for org %d: %w", org.ID, err)
	}

	now := s.now()

	if current != nil && current.PackageID == pkg.ID {
		current.StartDate = now
		current.EndDate = now.Add(s.period)
		current.Stamp(actor.UserID)
		if err := tx.Save(current).Error; err != nil {
			return nil, fmt.Errorf("renewing subscription %d: %w", current.ID, err)
		}
		if err := tx.Model(&models.PackageStatus{}).
			Where("organization_id = ? AND status = ? AND id <> ?", org.ID, models.PackageActive, current.ID).
			Updates(map[string]any{"status": models.PackageInactive, "last_updated_by": actor.UserID}).Error; err != nil {
			return nil, fmt.Errorf("closing stray subscriptions of org %d: %w", org.ID, err)
		}
		if err := audit.Record(ctx, tx, actor, audit.Entry{
			Action:       "package.renew",
			ResourceType: "package_status",
			ResourceID:   current.ID,
			Metadata:     map[string]any{"package": pkg.Name, "end_date": current.EndDate},
		}); err != nil {
			return nil, err
		}
		current.Package = pkg
		return &Result{Status: current, Renewed: true}, nil
	}

	// Deactivate by organization rather than by row so that stray active
	// rows left by older data are closed too.
	if err := tx.Model(&models.PackageStatus{}).
		Where("organization_id = ? AND status = ?", org.ID, models.PackageActive).
		Updates(map[string]any{"status": models.PackageInactive, "last_updated_by": actor.UserID}).Error; err != nil {
		return nil, fmt.Errorf("deactivating subscriptions of org %d: %w", org.ID, err)
	}

	next, err := s.Provision(ctx, tx, org.ID, pkg, actor.UserID)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&models.User{}).
		Where("organization_id = ?", org.ID).
		Update("package_id", pkg.ID).Error; err != nil {
		return nil, fmt.Errorf("moving users of org %d to package %d: %w", org.ID, pkg.ID, err)
	}

	meta := map[string]any{"package": pkg.Name}
	if current != nil {
		current.Status = models.PackageInactive
		meta["previous_package_id"] = current.PackageID
	}
	if err := audit.Record(ctx, tx, actor, audit.Entry{
		Action:       "package.assign",
		ResourceType: "package_status",
		ResourceID:   next.ID,
		Metadata:     meta,
	}); err != nil {
		return nil, err
	}

	return &Result{Status: next, Previous: current}, nil
}
