package models

import "time"

// Scan records one classified image kept in the scan archive until ExpireAt.
type Scan struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"size:64;not null;uniqueIndex" json:"key"`
	Label       string    `gorm:"size:16;index;not null" json:"label"`
	Score       float64   `json:"score"`
	ContentType string    `gorm:"size:64" json:"content_type"`
	Size        int64     `json:"size"`
	Backend     string    `gorm:"size:16" json:"backend"`
	Location    string    `gorm:"size:1024" json:"location"` // filesystem path or object name
	ExpireAt    time.Time `gorm:"index" json:"expire_at"`
	CreatedAt   time.Time `json:"created_at"`
}
