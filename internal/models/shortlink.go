package models

import (
	"time"
)

// ShortURL is a row in the ssn.lat shortener's table. This service is the
// sole writer of stall codes; the shortener itself serves the redirects.
type ShortURL struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShortCode   string    `gorm:"uniqueIndex;not null" json:"short_code"`
	LongURL     string    `gorm:"not null" json:"long_url"`
	CustomAlias *string   `json:"custom_alias,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName keeps gorm pointed at the shortener's existing table.
func (ShortURL) TableName() string {
	return "short_urls"
}
