package server

import (
	"context"

	"engagement/internal/middleware"
	"engagement/internal/models"
	"engagement/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns the comment tree of a post (public)
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewerID, _ := middleware.UserIDFrom(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return s.respondError(c, err)
	}
	comments, err := s.commentService.ListComments(ctx, postID, viewerID)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(comments)
}

// CreateComment creates a comment or reply on a post (protected)
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUser(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.ParentID != nil && *req.ParentID == 0 {
		req.ParentID = nil
	}

	created, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		UserID:   userID,
		PostID:   postID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(ctx, postID, EventCommentCreated, map[string]interface{}{
		"comment":        created,
		"comments_count": s.commentsCount(ctx, postID),
	})
	s.notifyMentions(ctx, created)

	return c.Status(fiber.StatusCreated).JSON(created)
}

// UpdateComment updates a comment (only owner)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUser(c)

	postID, err := s.optionalPostID(c)
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	updated, err := s.commentService.UpdateComment(ctx, service.UpdateCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(ctx, updated.PostID, EventCommentUpdated, map[string]interface{}{
		"comment": updated,
	})

	return c.JSON(updated)
}

// DeleteComment deletes a comment and its replies (comment or post author)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUser(c)

	postID, err := s.optionalPostID(c)
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	deleted, removed, err := s.commentService.DeleteComment(ctx, service.DeleteCommentInput{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(ctx, deleted.PostID, EventCommentDeleted, map[string]interface{}{
		"comment_id":     commentID,
		"removed":        removed,
		"comments_count": s.commentsCount(ctx, deleted.PostID),
	})

	return c.JSON(fiber.Map{"deleted": removed})
}

// commentReaction returns the handler of one comment reaction endpoint (protected)
func (s *Server) commentReaction(action service.CommentAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		userID := currentUser(c)

		commentID, err := s.parseID(c, "commentId")
		if err != nil {
			return nil
		}

		comment, err := s.commentService.ReactToComment(ctx, service.CommentReactionInput{
			UserID:    userID,
			CommentID: commentID,
			Action:    action,
		})
		if err != nil {
			return s.respondError(c, err)
		}

		s.publishPostEvent(ctx, comment.PostID, EventCommentReactionUpdated, map[string]interface{}{
			"comment_id":     comment.ID,
			"likes_count":    comment.LikesCount,
			"dislikes_count": comment.DislikesCount,
		})

		return c.JSON(fiber.Map{"comment": comment})
	}
}

func (s *Server) commentsCount(ctx context.Context, postID uint) int {
	engagement, err := s.engagementService.Engagement(ctx, postID, 0)
	if err != nil {
		return 0
	}
	return engagement.CommentsCount
}

// notifyMentions tells users mentioned in a new comment about it.
func (s *Server) notifyMentions(ctx context.Context, comment *models.Comment) {
	users, err := s.commentService.MentionedUsers(ctx, comment.UserID, comment.Content)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve mentions")
		return
	}
	for _, u := range users {
		s.notifyUser(ctx, u.ID, EventMentioned, map[string]interface{}{
			"post_id":    comment.PostID,
			"comment_id": comment.ID,
			"author":     userSummary(comment.User),
			"mentioned":  userSummary(u),
		})
	}
}
