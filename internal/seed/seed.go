package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"smmart/internal/accounts"
	"smmart/internal/models"
	"smmart/internal/rbac"
	"smmart/internal/subscription"
)

// Packages offered out of the box.
var Packages = []models.Package{
	{Name: "basic", Price: 9.99},
	{Name: "pro", Price: 29.99},
	{Name: "premium", Price: 99.99},
}

const DefaultOrganization = "Default Organization"

type Options struct {
	DefaultPackage string
	AdminEmail     string
	AdminPassword  string
}

// FirstSetup makes sure the reference data exists. Safe to run on every
// start.
func FirstSetup(ctx context.Context, db *gorm.DB, subs *subscription.Service, mgr *accounts.Manager, opts Options) error {
	// -------------------------
	// 1) Permissions and roles
	// -------------------------
	perms := map[string]models.Permission{}
	for _, d := range rbac.Definitions {
		p := models.Permission{Key: d.Key, Description: d.Description}
		if err := db.WithContext(ctx).Where(models.Permission{Key: p.Key}).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seeding permission %s: %w", d.Key, err)
		}
		perms[p.Key] = p
	}

	for name, keys := range rbac.RolePermissions {
		role := models.UserRole{Name: name}
		if err := db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seeding role %s: %w", name, err)
		}
		grant := make([]models.Permission, 0, len(keys))
		for _, k := range keys {
			grant = append(grant, perms[k])
		}
		if err := db.WithContext(ctx).Model(&role).Association("Permissions").Replace(grant); err != nil {
			return fmt.Errorf("granting permissions to %s: %w", name, err)
		}
	}

	// -------------------------
	// 2) Packages
	// -------------------------
	for _, p := range Packages {
		pkg := p
		if err := db.WithContext(ctx).Where("name = ?", pkg.Name).Attrs(models.Package{Price: pkg.Price}).FirstOrCreate(&pkg).Error; err != nil {
			return fmt.Errorf("seeding package %s: %w", p.Name, err)
		}
	}
	defaultPkg, err := subscription.FindPackage(db.WithContext(ctx), opts.DefaultPackage)
	if err != nil {
		return fmt.Errorf("default package %q: %w", opts.DefaultPackage, err)
	}

	// -------------------------
	// 3) Default organization with an active subscription
	// -------------------------
	org := models.Organization{Name: DefaultOrganization}
	if err := db.WithContext(ctx).Where("name = ?", org.Name).FirstOrCreate(&org).Error; err != nil {
		return fmt.Errorf("seeding organization: %w", err)
	}
	if _, err := subs.Current(ctx, org.ID); errors.Is(err, subscription.ErrNoActiveSubscription) {
		if _, err := subs.Provision(ctx, db, org.ID, defaultPkg, 0); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	// -------------------------
	// 4) Superuser
	// -------------------------
	if opts.AdminEmail == "" {
		log.Info().Int("permissions", len(perms)).Msg("seed ok")
		return nil
	}
	adminRole, err := accounts.RoleByName(db.WithContext(ctx), models.RoleAdmin)
	if err != nil {
		return err
	}
	_, err = mgr.CreateSuperuser(ctx, accounts.NewUser{
		Email:          opts.AdminEmail,
		Password:       opts.AdminPassword,
		Name:           "Admin User",
		OrganizationID: org.ID,
		RoleID:         adminRole.ID,
		PackageID:      defaultPkg.ID,
	})
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
	case err != nil:
		return fmt.Errorf("seeding superuser: %w", err)
	}

	log.Info().Str("admin", accounts.NormalizeEmail(opts.AdminEmail)).Int("permissions", len(perms)).
		Msg("seed ok")
	return nil
}
