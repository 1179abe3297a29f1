package rbac

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"smmart/internal/models"
)

// Permission keys, composed as "<resource>:<action>".
const (
	ProfileManage      = "profile:manage"
	TopicsManage       = "topics:manage"
	UsersManage        = "users:manage"
	OrganizationManage = "organization:manage"
	PackagesManage     = "packages:manage"
	PaymentsCreate     = "payments:create"
	AuditRead          = "audit:read"
)

// Definition describes a permission for seeding.
type Definition struct {
	Key         string
	Description string
}

var Definitions = []Definition{
	{ProfileManage, "Manage own profile"},
	{TopicsManage, "Manage own topics"},
	{UsersManage, "Manage users of the organization"},
	{OrganizationManage, "Manage the organization"},
	{PackagesManage, "View and assign the organization package"},
	{PaymentsCreate, "Pay for a package"},
	{AuditRead, "View the organization audit trail"},
}

// RolePermissions is the default grant per role.
var RolePermissions = map[string][]string{
	models.RoleAdmin: {
		ProfileManage, TopicsManage, UsersManage, OrganizationManage,
		PackagesManage, PaymentsCreate, AuditRead,
	},
	models.RoleUser: {ProfileManage, TopicsManage},
}

// Set is the resolved capability set of one user.
type Set map[string]struct{}

func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys lists the set in definition order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, d := range Definitions {
		if s.Has(d.Key) {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

func all() Set {
	s := make(Set, len(Definitions))
	for _, d := range Definitions {
		s[d.Key] = struct{}{}
	}
	return s
}

type Checker struct{ DB *gorm.DB }

// Resolve loads the user's role with its permissions. Staff and superusers
// hold every permission regardless of role.
func (c Checker) Resolve(ctx context.Context, u *models.User) (*models.UserRole, Set, error) {
	var role models.UserRole
	err := c.DB.WithContext(ctx).Preload("Permissions").First(&role, u.UserRoleID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("loading role %d: %w", u.UserRoleID, err)
	}
	if u.IsStaff || u.IsSuperuser {
		return &role, all(), nil
	}
	if err != nil {
		return nil, Set{}, nil
	}

	set := make(Set, len(role.Permissions))
	for _, p := range role.Permissions {
		set[p.Key] = struct{}{}
	}
	return &role, set, nil
}
