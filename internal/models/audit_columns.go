package models

import "time"

// AuditColumns are carried by every domain table: who created the row, who
// touched it last and when.
type AuditColumns struct {
	CreatedBy       *int64    `json:"created_by"`
	LastUpdatedBy   *int64    `json:"last_updated_by"`
	LastUpdateLogin *int64    `json:"last_update_login"`
	CreatedAt       time.Time `gorm:"column:creation_date" json:"creation_date"`
	UpdatedAt       time.Time `gorm:"column:last_update_date" json:"last_update_date"`
}

// Stamp records actorID as creator when the row is new and as last updater.
func (a *AuditColumns) Stamp(actorID int64) {
	if actorID == 0 {
		return
	}
	id := actorID
	if a.CreatedBy == nil {
		a.CreatedBy = &id
	}
	a.LastUpdatedBy = &id
	a.LastUpdateLogin = &id
}
