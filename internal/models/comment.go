package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Replies reference a top-level
// comment through ParentID.
type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	ParentID  *uint          `gorm:"index" json:"parent_id"`
	IsEdited  bool           `gorm:"not null;default:false" json:"is_edited"`
	User      User           `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LikesCount      int        `gorm:"-" json:"likes_count"`
	DislikesCount   int        `gorm:"-" json:"dislikes_count"`
	UserHasLiked    bool       `gorm:"-" json:"user_has_liked"`
	UserHasDisliked bool       `gorm:"-" json:"user_has_disliked"`
	Replies         []*Comment `gorm:"-" json:"replies"`
}

// IsReply reports whether c answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
