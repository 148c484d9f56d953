// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"engagement/internal/models"
	"engagement/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Engagement(ctx context.Context, postID, currentUserID uint) (models.PostEngagement, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// engagementQuery fetches every counter and per-user flag of a post in a
// single round trip.
const engagementQuery = `SELECT
	(SELECT COUNT(*) FROM post_reactions WHERE post_id = @post AND kind = @like) AS likes_count,
	(SELECT COUNT(*) FROM post_reactions WHERE post_id = @post AND kind = @dislike) AS dislikes_count,
	(SELECT COUNT(*) FROM comments WHERE post_id = @post AND deleted_at IS NULL) AS comments_count,
	(SELECT COUNT(*) FROM direct_shares WHERE post_id = @post) AS shares_count,
	(SELECT COUNT(*) FROM reposts WHERE post_id = @post) AS repost_count,
	EXISTS(SELECT 1 FROM post_reactions WHERE post_id = @post AND user_id = @user AND kind = @like) AS user_has_liked,
	EXISTS(SELECT 1 FROM post_reactions WHERE post_id = @post AND user_id = @user AND kind = @dislike) AS user_has_disliked,
	EXISTS(SELECT 1 FROM reposts WHERE post_id = @post AND user_id = @user) AS user_has_reposted`

// Engagement returns the counters of a post and the reaction flags of
// currentUserID. A zero user has every flag unset.
func (r *postRepository) Engagement(ctx context.Context, postID, currentUserID uint) (models.PostEngagement, error) {
	defer observability.TrackQuery("select", "post_engagement")()
	var e models.PostEngagement
	err := r.db.WithContext(ctx).Raw(engagementQuery, map[string]interface{}{
		"post":    postID,
		"user":    currentUserID,
		"like":    models.ReactionLike,
		"dislike": models.ReactionDislike,
	}).Scan(&e).Error
	return e, err
}
