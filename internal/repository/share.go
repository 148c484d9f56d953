package repository

import (
	"context"

	"engagement/internal/models"
	"engagement/internal/observability"

	"gorm.io/gorm"
)

// ShareRepository defines the data operations on reposts and direct shares.
type ShareRepository interface {
	ToggleRepost(ctx context.Context, userID, postID uint, comment string) (bool, error)
	CreateDirectShare(ctx context.Context, share *models.DirectShare) error
}

type shareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new ShareRepository
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

// ToggleRepost removes the user's repost if one exists, otherwise creates it.
// It reports whether the user has reposted the post afterwards.
func (r *shareRepository) ToggleRepost(ctx context.Context, userID, postID uint, comment string) (bool, error) {
	defer observability.TrackQuery("toggle", "reposts")()
	reposted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Repost
		if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			return tx.Delete(&existing[0]).Error
		}
		reposted = true
		return tx.Create(&models.Repost{UserID: userID, PostID: postID, Comment: comment}).Error
	})
	return reposted, err
}

// CreateDirectShare stores a share together with its recipients.
func (r *shareRepository) CreateDirectShare(ctx context.Context, share *models.DirectShare) error {
	defer observability.TrackQuery("insert", "direct_shares")()
	return r.db.WithContext(ctx).Create(share).Error
}
