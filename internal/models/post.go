// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a post in the engagement service.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Engagement is computed at query time for the requesting user.
	PostEngagement `gorm:"-"`
	// Comments holds top-level comments with their replies nested.
	Comments []*Comment `gorm:"-" json:"comments,omitempty"`
}

// PostEngagement holds the counters and per-user flags of a post.
type PostEngagement struct {
	LikesCount      int  `json:"likes_count"`
	DislikesCount   int  `json:"dislikes_count"`
	CommentsCount   int  `json:"comments_count"`
	SharesCount     int  `json:"shares_count"`
	RepostCount     int  `json:"repost_count"`
	UserHasLiked    bool `json:"user_has_liked"`
	UserHasDisliked bool `json:"user_has_disliked"`
	UserHasReposted bool `json:"user_has_reposted"`
}
