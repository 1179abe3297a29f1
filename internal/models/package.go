package models

import (
	"math"
	"time"
)

type Package struct {
	ID    int64   `gorm:"primaryKey" json:"id"`
	Name  string  `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Price float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	AuditColumns
}

// PriceCents is the price in the currency's minor unit.
func (p Package) PriceCents() int64 {
	return int64(math.Round(p.Price * 100))
}

type PackageState string

const (
	PackageActive   PackageState = "y"
	PackageInactive PackageState = "n"
)

// PackageStatus is one subscription period of an organization. Rows are
// never deleted; at most one per organization is active.
type PackageStatus struct {
	ID             int64        `gorm:"primaryKey" json:"id"`
	OrganizationID int64        `gorm:"index:idx_package_status_org_state;not null" json:"organization_id"`
	PackageID      int64        `gorm:"index;not null" json:"package_id"`
	Status         PackageState `gorm:"size:1;index:idx_package_status_org_state;not null" json:"status"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        time.Time    `json:"end_date"`
	AuditColumns

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Package      *Package      `gorm:"foreignKey:PackageID" json:"package,omitempty"`
}

func (s PackageStatus) Active() bool { return s.Status == PackageActive }
