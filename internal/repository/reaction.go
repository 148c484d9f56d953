package repository

import (
	"context"
	"time"

	"engagement/internal/models"
	"engagement/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentTally is the reaction summary of one comment for one viewer.
type CommentTally struct {
	Likes    int
	Dislikes int
	// Mine is the viewer's reaction kind, or "" when the viewer has none.
	Mine string
}

// ReactionRepository defines the data operations on post and comment reactions.
type ReactionRepository interface {
	GetPostReaction(ctx context.Context, userID, postID uint) (*models.PostReaction, error)
	SetPostReaction(ctx context.Context, userID, postID uint, kind string) error
	DeletePostReaction(ctx context.Context, userID, postID uint) error

	GetCommentReaction(ctx context.Context, userID, commentID uint) (*models.CommentReaction, error)
	SetCommentReaction(ctx context.Context, userID, commentID uint, kind string) error
	DeleteCommentReaction(ctx context.Context, userID, commentID uint, kind string) error
	CommentTallies(ctx context.Context, commentIDs []uint, viewerID uint) (map[uint]CommentTally, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// GetPostReaction returns the user's reaction on a post, or nil when there is none.
func (r *reactionRepository) GetPostReaction(ctx context.Context, userID, postID uint) (*models.PostReaction, error) {
	defer observability.TrackQuery("select", "post_reactions")()
	var rows []models.PostReaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SetPostReaction upserts the user's reaction, replacing an opposite one.
func (r *reactionRepository) SetPostReaction(ctx context.Context, userID, postID uint, kind string) error {
	defer observability.TrackQuery("upsert", "post_reactions")()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"kind": kind, "updated_at": time.Now()}),
	}).Create(&models.PostReaction{UserID: userID, PostID: postID, Kind: kind}).Error
}

func (r *reactionRepository) DeletePostReaction(ctx context.Context, userID, postID uint) error {
	defer observability.TrackQuery("delete", "post_reactions")()
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostReaction{}).Error
}

// GetCommentReaction returns the user's reaction on a comment, or nil when there is none.
func (r *reactionRepository) GetCommentReaction(ctx context.Context, userID, commentID uint) (*models.CommentReaction, error) {
	defer observability.TrackQuery("select", "comment_reactions")()
	var rows []models.CommentReaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *reactionRepository) SetCommentReaction(ctx context.Context, userID, commentID uint, kind string) error {
	defer observability.TrackQuery("upsert", "comment_reactions")()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "comment_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"kind": kind, "updated_at": time.Now()}),
	}).Create(&models.CommentReaction{UserID: userID, CommentID: commentID, Kind: kind}).Error
}

// DeleteCommentReaction removes the user's reaction on a comment if it is of kind.
func (r *reactionRepository) DeleteCommentReaction(ctx context.Context, userID, commentID uint, kind string) error {
	defer observability.TrackQuery("delete", "comment_reactions")()
	return r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ? AND kind = ?", userID, commentID, kind).
		Delete(&models.CommentReaction{}).Error
}

// CommentTallies counts likes and dislikes for each comment and records the
// viewer's own reaction. Comments without reactions are absent from the map.
func (r *reactionRepository) CommentTallies(ctx context.Context, commentIDs []uint, viewerID uint) (map[uint]CommentTally, error) {
	out := make(map[uint]CommentTally, len(commentIDs))
	if len(commentIDs) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("select", "comment_reactions")()

	var rows []struct {
		CommentID uint
		Kind      string
		Total     int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CommentReaction{}).
		Select("comment_id, kind, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id, kind").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		t := out[row.CommentID]
		switch row.Kind {
		case models.ReactionLike:
			t.Likes = row.Total
		case models.ReactionDislike:
			t.Dislikes = row.Total
		}
		out[row.CommentID] = t
	}

	if viewerID == 0 {
		return out, nil
	}
	var mine []models.CommentReaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id IN ?", viewerID, commentIDs).
		Find(&mine).Error; err != nil {
		return nil, err
	}
	for _, m := range mine {
		t := out[m.CommentID]
		t.Mine = m.Kind
		out[m.CommentID] = t
	}
	return out, nil
}
