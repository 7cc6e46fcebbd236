package models

import "time"

// Post is a blog article. CreatedAt is assigned by the server when the post is stored.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Subtitle  string    `gorm:"size:100" json:"subtitle"`
	Author    string    `gorm:"size:50" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}
