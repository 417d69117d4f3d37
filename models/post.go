package models

import "time"

// Post represents a blog article written by a user.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Slug       string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Excerpt    string    `gorm:"size:1000" json:"excerpt"`
	Published  bool      `gorm:"index;not null;default:false" json:"published"`
	Featured   bool      `gorm:"not null;default:false" json:"featured"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Views      int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	CommentsCount int64     `gorm:"->;-:migration" json:"comments_count"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"author"`
	Category      *Category `json:"category"`
	Tags          []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Comments      []Comment `json:"comments,omitempty"`
}
