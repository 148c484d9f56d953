package models

import "time"

// Reaction kinds stored on post and comment reactions.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// PostReaction is a user's like or dislike on a post.
// The combination of UserID and PostID must be unique.
type PostReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_reaction_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_reaction_user_post;index" json:"post_id"`
	Kind      string    `gorm:"size:16;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentReaction is a user's like or dislike on a comment.
type CommentReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_reaction_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_reaction_user_comment;index" json:"comment_id"`
	Kind      string    `gorm:"size:16;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
