package models

import "time"

// Tag labels posts; tags and posts are linked through the post_tags join table.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:30;not null" json:"name"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PostsCount int64  `gorm:"->;-:migration" json:"posts_count"`
	Posts      []Post `gorm:"many2many:post_tags;" json:"posts,omitempty"`
}
