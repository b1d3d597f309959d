package models

import (
	"time"
)

// Picture is an uploaded image referenced by poll items through its UID.
type Picture struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	UID        string    `gorm:"column:uid;type:varchar(36);uniqueIndex;not null" json:"uid"`
	URL        string    `gorm:"not null" json:"url"`
	PreviewURL string    `gorm:"not null" json:"preview_url"`
	CreatedAt  time.Time `json:"created_at"`
}
