package models

import "strings"

type TopicStatus string

const (
	TopicPending   TopicStatus = "p"
	TopicCompleted TopicStatus = "c"
	TopicFailed    TopicStatus = "f"
)

// Topic is a content generation request. Keywords and platforms are stored
// comma-joined.
type Topic struct {
	ID       int64       `gorm:"primaryKey" json:"id"`
	UserID   int64       `gorm:"index;not null" json:"user_id"`
	Name     string      `gorm:"size:255" json:"name"`
	Prompt   string      `gorm:"size:255" json:"prompt"`
	Keywords string      `gorm:"size:255" json:"keywords"`
	Platform string      `gorm:"size:255" json:"platform"`
	Status   TopicStatus `gorm:"size:1" json:"status"`
	AuditColumns

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// JoinList trims every item, drops empties and joins with commas.
func JoinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return strings.Join(out, ",")
}

// SplitList is the inverse of JoinList.
func SplitList(s string) []string {
	list := []string{}
	if s == "" {
		return list
	}
	for _, it := range strings.Split(s, ",") {
		if it = strings.TrimSpace(it); it != "" {
			list = append(list, it)
		}
	}
	return list
}
