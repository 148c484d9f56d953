// Package interactions implements the command layer over a post's social
// state: reactions, comments, comment reactions, reposts and direct shares,
// each applied to a poststate.Store after (or, for comment reactions, before)
// the remote interaction service confirms it.
package interactions

import (
	"context"
	"time"

	"engagement/internal/poststate"
)

// ReactionKind is the reaction a user toggles on a post or a comment.
type ReactionKind string

// Supported reactions.
const (
	Like    ReactionKind = "like"
	Dislike ReactionKind = "dislike"
)

// Valid reports whether k is a supported reaction.
func (k ReactionKind) Valid() bool {
	return k == Like || k == Dislike
}

// PostReaction is the authoritative reaction state of a post returned by the
// remote service after a like or dislike.
type PostReaction struct {
	LikesCount      int
	DislikesCount   int
	UserHasLiked    bool
	UserHasDisliked bool
}

// NewComment is the payload of a comment creation.
type NewComment struct {
	PostID   string
	Content  string
	ParentID string
}

// CommentRecord is a comment as stored by the remote service.
type CommentRecord struct {
	ID            string
	PostID        string
	ParentID      string
	AuthorID      string
	AuthorDisplay string
	Content       string
	IsEdited      bool
	LikesCount    int
	DislikesCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RepostStatus is the authoritative repost state of a post for the current user.
type RepostStatus struct {
	UserHasReposted bool
	RepostCount     int
}

// RemoteService is the remote interaction service the controller talks to.
// Implementations own transport, authentication and retries.
type RemoteService interface {
	LikePost(ctx context.Context, postID string) (PostReaction, error)
	DislikePost(ctx context.Context, postID string) (PostReaction, error)

	CreateComment(ctx context.Context, in NewComment) (CommentRecord, error)
	UpdateComment(ctx context.Context, commentID, content string) (CommentRecord, error)
	DeleteComment(ctx context.Context, commentID string) error

	LikeComment(ctx context.Context, commentID string) error
	UnlikeComment(ctx context.Context, commentID string) error
	DislikeComment(ctx context.Context, commentID string) error
	UndislikeComment(ctx context.Context, commentID string) error

	// Repost creates or toggles the current user's repost. A nil status with
	// a nil error means the service answered without a usable body.
	Repost(ctx context.Context, postID, comment string) (*RepostStatus, error)
	DirectShare(ctx context.Context, postID string, recipientIDs []string, note string) error
}

// toComment converts a freshly created server comment into a tree node.
func (r CommentRecord) toComment(postID, parentID string) poststate.Comment {
	if r.PostID == "" {
		r.PostID = postID
	}
	if r.ParentID == "" {
		r.ParentID = parentID
	}
	return poststate.Comment{
		ID:            r.ID,
		PostID:        r.PostID,
		AuthorID:      r.AuthorID,
		AuthorDisplay: r.AuthorDisplay,
		Content:       r.Content,
		IsEdited:      r.IsEdited,
		ParentID:      r.ParentID,
		LikesCount:    max(r.LikesCount, 0),
		DislikesCount: max(r.DislikesCount, 0),
		Replies:       []poststate.Comment{},
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
