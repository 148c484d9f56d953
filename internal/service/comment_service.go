package service

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"engagement/internal/cache"
	"engagement/internal/featureflags"
	"engagement/internal/models"
	"engagement/internal/repository"
)

const maxCommentLen = 10000

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@(\w{3,30})`)

type CommentService struct {
	commentRepo  repository.CommentRepository
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
	userRepo     repository.UserRepository
	cache        *cache.Cache
	flags        *featureflags.Manager
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	PostID    uint
	CommentID uint
}

// CommentAction is one of the four comment reaction endpoints.
type CommentAction int

const (
	CommentLike CommentAction = iota
	CommentUnlike
	CommentDislike
	CommentUndislike
)

type CommentReactionInput struct {
	UserID    uint
	CommentID uint
	Action    CommentAction
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	reactionRepo repository.ReactionRepository,
	userRepo repository.UserRepository,
	c *cache.Cache,
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		postRepo:     postRepo,
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		cache:        c,
		flags:        flags,
	}
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return content, nil
}

// CreateComment adds a top-level comment, or a reply when ParentID is set.
// Replies must answer a top-level comment of the same post.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	span, ctx := startCall(ctx, "CommentService", "CreateComment", map[string]interface{}{
		"post_id": in.PostID, "user_id": in.UserID, "is_reply": in.ParentID != nil,
	})
	defer span.End()

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to another post")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("Replies cannot be nested")
		}
	}

	comment := &models.Comment{
		Content:  content,
		UserID:   in.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		span.SetError(err)
		return nil, err
	}
	s.cache.InvalidatePost(ctx, in.PostID)

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	created.Replies = []*models.Comment{}
	return created, nil
}

// ListComments returns the comment tree of a post: top-level comments oldest
// first, each with its replies, with reaction counts for viewerID.
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint) ([]*models.Comment, error) {
	flat, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.applyTallies(ctx, flat, viewerID); err != nil {
		return nil, err
	}
	return buildTree(flat), nil
}

func buildTree(flat []*models.Comment) []*models.Comment {
	byID := make(map[uint]*models.Comment, len(flat))
	roots := make([]*models.Comment, 0, len(flat))
	for _, c := range flat {
		c.Replies = []*models.Comment{}
		byID[c.ID] = c
		if !c.IsReply() {
			roots = append(roots, c)
		}
	}
	for _, c := range flat {
		if !c.IsReply() {
			continue
		}
		// Replies whose parent is gone are not shown.
		if parent, ok := byID[*c.ParentID]; ok && !parent.IsReply() {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return roots
}

func (s *CommentService) applyTallies(ctx context.Context, comments []*models.Comment, viewerID uint) error {
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	tallies, err := s.reactionRepo.CommentTallies(ctx, ids, viewerID)
	if err != nil {
		return err
	}
	for _, c := range comments {
		t := tallies[c.ID]
		c.LikesCount = t.Likes
		c.DislikesCount = t.Dislikes
		c.UserHasLiked = t.Mine == models.ReactionLike
		c.UserHasDisliked = t.Mine == models.ReactionDislike
	}
	return nil
}

func (s *CommentService) commentOnPost(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if postID != 0 && comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return comment, nil
}

// UpdateComment replaces the content of the caller's own comment.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentOnPost(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own comments")
	}
	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	comment.IsEdited = true
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	s.cache.InvalidatePost(ctx, comment.PostID)

	updated, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	if err := s.applyTallies(ctx, []*models.Comment{updated}, in.UserID); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteComment removes a comment with its replies. The comment author and
// the post author may delete. It returns the deleted comment and how many
// comments were removed in total.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, int64, error) {
	comment, err := s.commentOnPost(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, 0, err
	}

	if comment.UserID != in.UserID {
		post, err := s.postRepo.GetByID(ctx, comment.PostID)
		if err != nil {
			return nil, 0, err
		}
		if post.UserID != in.UserID {
			return nil, 0, models.NewForbiddenError("You can only delete your own comments")
		}
	}

	removed, err := s.commentRepo.DeleteThread(ctx, comment.ID)
	if err != nil {
		return nil, 0, err
	}
	s.cache.InvalidatePost(ctx, comment.PostID)

	return comment, removed, nil
}

// ReactToComment applies a like, unlike, dislike or undislike and returns the
// comment with its updated counts. Liking replaces a dislike and vice versa;
// unlike and undislike only remove a reaction of their own kind.
func (s *CommentService) ReactToComment(ctx context.Context, in CommentReactionInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	switch in.Action {
	case CommentLike:
		err = s.reactionRepo.SetCommentReaction(ctx, in.UserID, comment.ID, models.ReactionLike)
	case CommentDislike:
		err = s.reactionRepo.SetCommentReaction(ctx, in.UserID, comment.ID, models.ReactionDislike)
	case CommentUnlike:
		err = s.reactionRepo.DeleteCommentReaction(ctx, in.UserID, comment.ID, models.ReactionLike)
	case CommentUndislike:
		err = s.reactionRepo.DeleteCommentReaction(ctx, in.UserID, comment.ID, models.ReactionDislike)
	default:
		return nil, models.NewValidationError("Unknown comment reaction")
	}
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePost(ctx, comment.PostID)

	if err := s.applyTallies(ctx, []*models.Comment{comment}, in.UserID); err != nil {
		return nil, err
	}
	return comment, nil
}

// MentionedUsers returns the users named with @username in content, excluding
// the author. It returns nothing unless mention notifications are enabled for
// the author.
func (s *CommentService) MentionedUsers(ctx context.Context, authorID uint, content string) ([]models.User, error) {
	if !s.flags.Enabled(featureflags.MentionNotifications, authorID) {
		return nil, nil
	}
	names := ParseMentions(content)
	if len(names) == 0 {
		return nil, nil
	}
	users, err := s.userRepo.GetByUsernames(ctx, names)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if u.ID != authorID {
			out = append(out, u)
		}
	}
	return out, nil
}

// ParseMentions extracts the distinct lowercased usernames mentioned in content.
func ParseMentions(content string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
