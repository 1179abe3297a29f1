// Package accounts creates and authenticates users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"smmart/internal/audit"
	"smmart/internal/models"
	"smmart/internal/subscription"
)

var (
	ErrEmailRequired      = errors.New("user must have an email")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	ErrRoleNotFound       = errors.New("role does not exist")
)

// NormalizeEmail lowercases the domain part of an address and leaves the
// local part as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// NewUser carries the fields needed to create a user.
type NewUser struct {
	Email          string
	Password       string
	Name           string
	OrganizationID int64
	RoleID         int64
	PackageID      int64
	CreatedBy      int64
}

type Manager struct {
	db   *gorm.DB
	subs *subscription.Service
	// DefaultPackage is assigned to organizations created by Register.
	DefaultPackage string
}

func NewManager(db *gorm.DB, subs *subscription.Service, defaultPackage string) *Manager {
	return &Manager{db: db, subs: subs, DefaultPackage: defaultPackage}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the user's hash.
func CheckPassword(u *models.User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CreateUser stores an active user with a hashed password.
func (m *Manager) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	return m.createUser(ctx, m.db, in)
}

func (m *Manager) createUser(ctx context.Context, tx *gorm.DB, in NewUser) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	var existing int64
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	u := models.User{
		Email:          email,
		Name:           strings.TrimSpace(in.Name),
		IsActive:       true,
		UserRoleID:     in.RoleID,
		OrganizationID: in.OrganizationID,
		PackageID:      in.PackageID,
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	u.Stamp(in.CreatedBy)

	if err := tx.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &u, nil
}

// CreateSuperuser creates a user with the staff and superuser flags set.
func (m *Manager) CreateSuperuser(ctx context.Context, in NewUser) (*models.User, error) {
	var u *models.User
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		u, err = m.createUser(ctx, tx, in)
		if err != nil {
			return err
		}
		u.IsStaff = true
		u.IsSuperuser = true
		return tx.Model(u).Updates(map[string]any{"is_staff": true, "is_superuser": true}).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns the active user matching email and password and
// records the login time.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := m.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !u.IsActive || !CheckPassword(&u, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := m.db.WithContext(ctx).Model(&u).UpdateColumn("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	u.LastLogin = &now
	return &u, nil
}

// SetPassword replaces the user's password hash.
func (m *Manager) SetPassword(ctx context.Context, u *models.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := m.db.WithContext(ctx).Model(u).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("updating password of user %d: %w", u.ID, err)
	}
	u.PasswordHash = hash
	return nil
}

// Changes lists the user fields to overwrite; nil leaves a field alone.
type Changes struct {
	Email    *string
	Name     *string
	Password *string
	RoleID   *int64
	IsActive *bool
}

// UpdateUser applies ch to u and reloads it. Email changes are normalized
// and must stay unique.
func (m *Manager) UpdateUser(ctx context.Context, u *models.User, ch Changes, actorID int64) error {
	db := m.db.WithContext(ctx)
	updates := map[string]any{}

	if ch.Email != nil {
		email := NormalizeEmail(*ch.Email)
		if email == "" {
			return ErrEmailRequired
		}
		var taken int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, u.ID).Count(&taken).Error; err != nil {
			return fmt.Errorf("checking email: %w", err)
		}
		if taken > 0 {
			return ErrEmailTaken
		}
		updates["email"] = email
	}
	if ch.Name != nil {
		updates["name"] = strings.TrimSpace(*ch.Name)
	}
	if ch.Password != nil {
		hash, err := HashPassword(*ch.Password)
		if err != nil {
			return err
		}
		updates["password_hash"] = hash
	}
	if ch.RoleID != nil {
		updates["user_role_id"] = *ch.RoleID
	}
	if ch.IsActive != nil {
		updates["is_active"] = *ch.IsActive
	}
	if len(updates) == 0 {
		return nil
	}
	if actorID != 0 {
		updates["last_updated_by"] = actorID
		updates["last_update_login"] = actorID
	}

	if err := db.Model(&models.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	if err := db.First(u, u.ID).Error; err != nil {
		return fmt.Errorf("reloading user %d: %w", u.ID, err)
	}
	return nil
}

// DeleteUser removes u together with the topics it owns.
func (m *Manager) DeleteUser(ctx context.Context, u *models.User) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", u.ID).Delete(&models.Topic{}).Error; err != nil {
			return fmt.Errorf("deleting topics of user %d: %w", u.ID, err)
		}
		if err := tx.Delete(&models.User{}, u.ID).Error; err != nil {
			return fmt.Errorf("deleting user %d: %w", u.ID, err)
		}
		return nil
	})
}

// RoleByName resolves a role.
func RoleByName(tx *gorm.DB, name string) (*models.UserRole, error) {
	var role models.UserRole
	if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("finding role %q: %w", name, err)
	}
	return &role, nil
}

// Registration is a self-service signup: a new organization and its first
// user, who becomes the organization's admin.
type Registration struct {
	Email        string
	Password     string
	Name         string
	Organization models.Organization
	IP           string
	UserAgent    string
}

// Register creates the organization, opens its default subscription and
// creates the admin user, all in one transaction.
func (m *Manager) Register(ctx context.Context, r Registration) (*models.User, error) {
	if NormalizeEmail(r.Email) == "" {
		return nil, ErrEmailRequired
	}

	var user *models.User
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := RoleByName(tx, models.RoleAdmin)
		if err != nil {
			return err
		}
		pkg, err := subscription.FindPackage(tx, m.DefaultPackage)
		if err != nil {
			return fmt.Errorf("default package %q: %w", m.DefaultPackage, err)
		}

		org := r.Organization
		org.ID = 0
		if err := tx.Create(&org).Error; err != nil {
			return fmt.Errorf("creating organization: %w", err)
		}

		user, err = m.createUser(ctx, tx, NewUser{
			Email:          r.Email,
			Password:       r.Password,
			Name:           r.Name,
			OrganizationID: org.ID,
			RoleID:         role.ID,
			PackageID:      pkg.ID,
		})
		if err != nil {
			return err
		}

		org.Stamp(user.ID)
		if err := tx.Model(&org).Updates(map[string]any{
			"created_by":        user.ID,
			"last_updated_by":   user.ID,
			"last_update_login": user.ID,
		}).Error; err != nil {
			return fmt.Errorf("stamping organization: %w", err)
		}

		if _, err := m.subs.Provision(ctx, tx, org.ID, pkg, user.ID); err != nil {
			return err
		}

		user.Organization = &org
		user.UserRole = role
		user.Package = pkg

		return audit.Record(ctx, tx, audit.Actor{
			UserID:    user.ID,
			OrgID:     org.ID,
			Name:      user.Name,
			IP:        r.IP,
			UserAgent: r.UserAgent,
		}, audit.Entry{
			Action:       "organization.register",
			ResourceType: "organization",
			ResourceID:   org.ID,
			Metadata:     map[string]any{"package": pkg.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
