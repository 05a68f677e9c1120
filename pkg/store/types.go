package store

import "time"

// User is the authenticated account the store acts as.
type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}

// Post is the store's projection of a post. Counts and the Liked/Bookmarked
// flags reflect the last server response plus any local adjustments.
type Post struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	ImageURL     string    `json:"image_url,omitempty"`
	ViewCount    int64     `json:"view_count"`
	IsDraft      bool      `json:"is_draft"`
	UserID       uint      `json:"user_id"`
	Author       *User     `json:"user,omitempty"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	Liked        bool      `json:"liked"`
	Bookmarked   bool      `json:"bookmarked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment is a single thread entry. ParentCommentID is nil for top-level
// comments and set for replies; threads never nest deeper.
type Comment struct {
	ID              uint      `json:"id"`
	PostID          uint      `json:"post_id"`
	UserID          uint      `json:"user_id"`
	Author          *User     `json:"user,omitempty"`
	Content         string    `json:"content"`
	ParentCommentID *uint     `json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// PostInput carries the fields for creating a post.
type PostInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
	IsDraft  bool   `json:"is_draft"`
}

// PostPatch is a partial update; nil fields are left untouched.
type PostPatch struct {
	Title    *string `json:"title,omitempty"`
	Body     *string `json:"body,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
	IsDraft  *bool   `json:"is_draft,omitempty"`
}
