package models

type Organization struct {
	ID              int64  `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:255;not null" json:"name"`
	Description     string `gorm:"size:3000" json:"description"`
	LinkedinProfile string `gorm:"size:500" json:"linkedin_profile"`
	FacebookProfile string `gorm:"size:500" json:"facebook_profile"`
	Industry        string `gorm:"size:1000" json:"industry"`
	AuditColumns

	Users []User `gorm:"foreignKey:OrganizationID" json:"-"`
}
