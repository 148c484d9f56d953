package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"engagement/internal/cache"
	"engagement/internal/featureflags"
	"engagement/internal/models"
	"engagement/internal/repository"
)

const (
	maxRepostCommentLen = 500
	maxShareNoteLen     = 500
	maxShareRecipients  = 50
)

// EngagementService owns post reactions, reposts, direct shares and the
// assembled post view.
type EngagementService struct {
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	shareRepo    repository.ShareRepository
	userRepo     repository.UserRepository
	comments     *CommentService
	cache        *cache.Cache
	flags        *featureflags.Manager
}

type RepostInput struct {
	UserID  uint
	PostID  uint
	Comment string
}

type DirectShareInput struct {
	SenderID     uint
	PostID       uint
	RecipientIDs []uint
	Note         string
}

func NewEngagementService(
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	shareRepo repository.ShareRepository,
	userRepo repository.UserRepository,
	comments *CommentService,
	c *cache.Cache,
	flags *featureflags.Manager,
) *EngagementService {
	return &EngagementService{
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		shareRepo:    shareRepo,
		userRepo:     userRepo,
		comments:     comments,
		cache:        c,
		flags:        flags,
	}
}

// GetPost returns a post with its counters, the viewer's flags and the
// comment tree. The anonymous view is cached in Redis.
func (s *EngagementService) GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	span, ctx := startCall(ctx, "EngagementService", "GetPost", map[string]interface{}{"post_id": postID, "viewer_id": viewerID})
	defer span.End()

	if viewerID != 0 {
		return s.loadPost(ctx, postID, viewerID)
	}

	var post models.Post
	err := s.cache.Aside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		loaded, err := s.loadPost(ctx, postID, 0)
		if err != nil {
			return err
		}
		post = *loaded
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return &post, nil
}

func (s *EngagementService) loadPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.PostEngagement, err = s.postRepo.Engagement(ctx, postID, viewerID); err != nil {
		return nil, err
	}
	if post.Comments, err = s.comments.ListComments(ctx, postID, viewerID); err != nil {
		return nil, err
	}
	return post, nil
}

// TogglePostReaction toggles the user's like or dislike. Reacting with the
// kind already held removes it; otherwise the new kind replaces any other.
func (s *EngagementService) TogglePostReaction(ctx context.Context, userID, postID uint, kind string) (models.PostEngagement, error) {
	span, ctx := startCall(ctx, "EngagementService", "TogglePostReaction", map[string]interface{}{
		"post_id": postID, "user_id": userID, "kind": kind,
	})
	defer span.End()

	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return models.PostEngagement{}, models.NewValidationError("Unknown reaction")
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return models.PostEngagement{}, err
	}

	existing, err := s.reactionRepo.GetPostReaction(ctx, userID, postID)
	if err != nil {
		return models.PostEngagement{}, err
	}
	if existing != nil && existing.Kind == kind {
		err = s.reactionRepo.DeletePostReaction(ctx, userID, postID)
	} else {
		err = s.reactionRepo.SetPostReaction(ctx, userID, postID, kind)
	}
	if err != nil {
		span.SetError(err)
		return models.PostEngagement{}, err
	}
	s.cache.InvalidatePost(ctx, postID)

	return s.postRepo.Engagement(ctx, postID, userID)
}

// ToggleRepost reposts the post, or withdraws an existing repost.
func (s *EngagementService) ToggleRepost(ctx context.Context, in RepostInput) (models.PostEngagement, error) {
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > maxRepostCommentLen {
		return models.PostEngagement{}, models.NewValidationError("Repost comment too long (max 500 characters)")
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return models.PostEngagement{}, err
	}

	if _, err := s.shareRepo.ToggleRepost(ctx, in.UserID, in.PostID, comment); err != nil {
		return models.PostEngagement{}, err
	}
	s.cache.InvalidatePost(ctx, in.PostID)

	return s.postRepo.Engagement(ctx, in.PostID, in.UserID)
}

// DirectShare sends a post to other users. Recipients are deduplicated and the
// sender is dropped; every remaining recipient must exist.
func (s *EngagementService) DirectShare(ctx context.Context, in DirectShareInput) (*models.DirectShare, error) {
	span, ctx := startCall(ctx, "EngagementService", "DirectShare", map[string]interface{}{
		"post_id": in.PostID, "sender_id": in.SenderID, "recipients": len(in.RecipientIDs),
	})
	defer span.End()

	if !s.flags.EnabledByDefault(featureflags.DirectShares, in.SenderID) {
		return nil, models.NewForbiddenError("Direct sharing is disabled")
	}

	recipients := NormalizeRecipients(in.SenderID, in.RecipientIDs)
	if len(recipients) == 0 {
		return nil, models.NewValidationError("At least one recipient is required")
	}
	if len(recipients) > maxShareRecipients {
		return nil, models.NewValidationError(fmt.Sprintf("Too many recipients (max %d)", maxShareRecipients))
	}
	note := strings.TrimSpace(in.Note)
	if utf8.RuneCountInString(note) > maxShareNoteLen {
		return nil, models.NewValidationError("Share note too long (max 500 characters)")
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.ExistingIDs(ctx, recipients)
	if err != nil {
		return nil, err
	}
	if len(existing) != len(recipients) {
		var missing []string
		for _, id := range recipients {
			if !slices.Contains(existing, id) {
				missing = append(missing, fmt.Sprint(id))
			}
		}
		return nil, models.NewValidationError("Unknown recipients: " + strings.Join(missing, ", "))
	}

	share := &models.DirectShare{
		PostID:   in.PostID,
		SenderID: in.SenderID,
		Note:     note,
	}
	for _, id := range recipients {
		share.Recipients = append(share.Recipients, models.DirectShareRecipient{RecipientID: id})
	}
	if err := s.shareRepo.CreateDirectShare(ctx, share); err != nil {
		span.SetError(err)
		return nil, err
	}
	s.cache.InvalidatePost(ctx, in.PostID)

	return share, nil
}

// Engagement returns the counters of a post and the flags of viewerID.
func (s *EngagementService) Engagement(ctx context.Context, postID, viewerID uint) (models.PostEngagement, error) {
	return s.postRepo.Engagement(ctx, postID, viewerID)
}

// NormalizeRecipients removes zero ids, duplicates and the sender, keeping
// first-seen order.
func NormalizeRecipients(senderID uint, ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == senderID || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
