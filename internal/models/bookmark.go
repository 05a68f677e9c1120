package models

import "time"

// Bookmark marks that a user saved a post for later. Same uniqueness
// invariant as Like, but bookmarks carry no aggregate count.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_bookmarks_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_bookmarks_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
