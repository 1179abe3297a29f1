package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	OrgID         int64          `gorm:"index;not null" json:"org_id"`
	UserID        int64          `gorm:"index" json:"user_id"` // zero for system actions
	Action        string         `gorm:"size:200;not null" json:"action"`
	ResourceType  string         `gorm:"size:100" json:"resource_type"`
	ResourceID    int64          `gorm:"index" json:"resource_id"`
	Metadata      datatypes.JSON `json:"metadata"`
	IP            string         `gorm:"size:64" json:"ip"`
	InitiatorName string         `gorm:"size:255" json:"initiator_name"`
	UserAgent     string         `gorm:"size:255" json:"user_agent"`
	CreatedAt     time.Time      `json:"created_at"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&Permission{},
		&UserRole{},
		&Package{},
		&Organization{},
		&User{},
		&PackageStatus{},
		&Topic{},
		&Payment{},
		&AuditLog{},
	}
}
