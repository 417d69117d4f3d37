package models

import "time"

// Category groups posts; each post belongs to at most one category.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null" json:"name"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	PostsCount int64  `gorm:"->;-:migration" json:"posts_count"`
	Posts      []Post `json:"posts,omitempty"`
}
