package models

import "time"

// Repost records that a user reposted a post, optionally with a comment.
type Repost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_repost_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_repost_user_post;index" json:"post_id"`
	Comment   string    `gorm:"size:500" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DirectShare is a post sent privately to one or more users.
type DirectShare struct {
	ID         uint                   `gorm:"primaryKey" json:"id"`
	PostID     uint                   `gorm:"not null;index" json:"post_id"`
	SenderID   uint                   `gorm:"not null;index" json:"sender_id"`
	Note       string                 `gorm:"size:500" json:"note,omitempty"`
	Recipients []DirectShareRecipient `gorm:"foreignKey:ShareID" json:"recipients"`
	CreatedAt  time.Time              `json:"created_at"`
}

// DirectShareRecipient is one receiver of a DirectShare.
type DirectShareRecipient struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	ShareID     uint `gorm:"not null;index" json:"share_id"`
	RecipientID uint `gorm:"not null;index" json:"recipient_id"`
}
