package server

import (
	"engagement/internal/middleware"
	"engagement/internal/models"
	"engagement/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts returns recent posts with their counters (public).
func (s *Server) ListPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewerID, _ := middleware.UserIDFrom(c)
	page := parsePagination(c, 20)

	posts, err := s.postRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	for _, post := range posts {
		if post.PostEngagement, err = s.engagementService.Engagement(ctx, post.ID, viewerID); err != nil {
			return s.respondError(c, err)
		}
	}
	return c.JSON(posts)
}

// GetPost returns a post with its counters, the caller's reaction flags and
// the comment tree (public).
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := middleware.UserIDFrom(c)

	post, err := s.engagementService.GetPost(c.UserContext(), postID, viewerID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// LikePost toggles the caller's like on a post (protected)
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.togglePostReaction(c, models.ReactionLike)
}

// DislikePost toggles the caller's dislike on a post (protected)
func (s *Server) DislikePost(c *fiber.Ctx) error {
	return s.togglePostReaction(c, models.ReactionDislike)
}

func (s *Server) togglePostReaction(c *fiber.Ctx, kind string) error {
	ctx := c.UserContext()
	userID := currentUser(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	engagement, err := s.engagementService.TogglePostReaction(ctx, userID, postID, kind)
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(ctx, postID, EventPostReactionUpdated, map[string]interface{}{
		"likes_count":    engagement.LikesCount,
		"dislikes_count": engagement.DislikesCount,
	})

	return c.JSON(fiber.Map{"post": engagement})
}

// RepostPost toggles the caller's repost of a post (protected)
func (s *Server) RepostPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUser(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Comment string `json:"comment"`
	}
	// An empty body is a repost without comment.
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	engagement, err := s.engagementService.ToggleRepost(ctx, service.RepostInput{
		UserID:  userID,
		PostID:  postID,
		Comment: req.Comment,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	s.publishPostEvent(ctx, postID, EventPostReposted, map[string]interface{}{
		"repost_count": engagement.RepostCount,
	})

	return c.JSON(fiber.Map{"post": engagement})
}

// SharePost sends a post directly to other users (protected)
func (s *Server) SharePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUser(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		RecipientIDs []uint `json:"recipient_ids"`
		Note         string `json:"note"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	share, err := s.engagementService.DirectShare(ctx, service.DirectShareInput{
		SenderID:     userID,
		PostID:       postID,
		RecipientIDs: req.RecipientIDs,
		Note:         req.Note,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	sharesCount := 0
	if engagement, engErr := s.engagementService.Engagement(ctx, postID, userID); engErr == nil {
		sharesCount = engagement.SharesCount
	}
	s.publishPostEvent(ctx, postID, EventPostShared, map[string]interface{}{
		"shares_count": sharesCount,
	})
	for _, r := range share.Recipients {
		s.notifyUser(ctx, r.RecipientID, EventShareReceived, map[string]interface{}{
			"post_id":   postID,
			"share_id":  share.ID,
			"sender_id": userID,
			"note":      share.Note,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(share)
}
