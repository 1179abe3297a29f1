package models

// Payment is a charge attempt against the payment processor. Only the latest
// payment of an organization is active.
type Payment struct {
	ID              int64  `gorm:"primaryKey" json:"id"`
	PaymentIntentID string `gorm:"size:255;uniqueIndex" json:"payment_intent_id"`
	OrganizationID  int64  `gorm:"index;not null" json:"organization_id"`
	PackageID       int64  `gorm:"index;not null" json:"package_id"`
	Amount          int64  `json:"amount"`
	Currency        string `gorm:"size:8" json:"currency"`
	Succeeded       bool   `gorm:"not null" json:"succeeded"`
	IsActive        bool   `gorm:"not null" json:"is_active"`
	AuditColumns

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}
