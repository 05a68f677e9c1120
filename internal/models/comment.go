package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Threads are exactly two levels
// deep: a comment with a ParentCommentID is a reply and may not itself
// carry replies.
type Comment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PostID          uint           `gorm:"not null;index" json:"post_id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	User            User           `gorm:"foreignKey:UserID" json:"user"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	ParentCommentID *uint          `gorm:"index" json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsReply reports whether the comment is a second-level reply.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}
