package models

import "time"

type User struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name           string     `gorm:"size:255" json:"name"`
	PasswordHash   string     `gorm:"size:255" json:"-"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	IsStaff        bool       `gorm:"not null" json:"is_staff"`
	IsSuperuser    bool       `gorm:"not null" json:"is_superuser"`
	LastLogin      *time.Time `json:"last_login"`
	UserRoleID     int64      `gorm:"index;not null" json:"user_role_id"`
	OrganizationID int64      `gorm:"index;not null" json:"organization_id"`
	PackageID      int64      `gorm:"index;not null" json:"package_id"`
	AuditColumns

	UserRole     *UserRole     `gorm:"foreignKey:UserRoleID" json:"role,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Package      *Package      `gorm:"foreignKey:PackageID" json:"package,omitempty"`
}
