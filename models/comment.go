package models

import "time"

// DeletedCommentContent replaces the body of a removed comment that still has replies.
const DeletedCommentContent = "[This comment has been deleted]"

// Comment is a reply to a post or, when ParentID is set, to another comment of the same post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Depth     int       `gorm:"not null;default:0" json:"depth"`
	Deleted   bool      `gorm:"not null;default:false" json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RepliesCount int64     `gorm:"->;-:migration" json:"replies_count"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"author"`
	Post         *Post     `json:"post,omitempty"`
	Parent       *Comment  `json:"parent,omitempty"`
	Replies      []Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
}
