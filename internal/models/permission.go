package models

type Permission struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Key         string `gorm:"uniqueIndex;size:200;not null" json:"key"`
	Description string `gorm:"size:255" json:"description"`
}

// UserRole is the permission tier a user holds inside an organization.
type UserRole struct {
	ID          int64        `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	AuditColumns
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
