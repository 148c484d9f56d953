// Package poststate holds the social-state snapshot of a single rendered post
// and the store that publishes it to subscribers.
package poststate

import "time"

// Comment is one node of a post's comment tree. Top-level comments have an
// empty ParentID; replies carry the id of the comment they answer.
type Comment struct {
	ID              string    `json:"id" yaml:"id"`
	PostID          string    `json:"post_id" yaml:"post_id"`
	AuthorID        string    `json:"author_id" yaml:"author_id"`
	AuthorDisplay   string    `json:"author_display" yaml:"author_display"`
	Content         string    `json:"content" yaml:"content"`
	IsEdited        bool      `json:"is_edited" yaml:"is_edited"`
	ParentID        string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	LikesCount      int       `json:"likes_count" yaml:"likes_count"`
	DislikesCount   int       `json:"dislikes_count" yaml:"dislikes_count"`
	UserHasLiked    bool      `json:"user_has_liked" yaml:"user_has_liked"`
	UserHasDisliked bool      `json:"user_has_disliked" yaml:"user_has_disliked"`
	RepliesCount    int       `json:"replies_count" yaml:"replies_count"`
	Replies         []Comment `json:"replies" yaml:"replies,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// IsReply reports whether the comment answers another comment.
func (c Comment) IsReply() bool {
	return c.ParentID != ""
}

// State is the immutable social-state snapshot of one post. A published State
// is never written again; every change produces a new value whose changed
// slices are fresh copies.
type State struct {
	ID            string    `json:"id" yaml:"id"`
	LikesCount    int       `json:"likes_count" yaml:"likes_count"`
	DislikesCount int       `json:"dislikes_count" yaml:"dislikes_count"`
	SharesCount   int       `json:"shares_count" yaml:"shares_count"`
	RepostsCount  int       `json:"reposts_count" yaml:"reposts_count"`
	CommentsCount int       `json:"comments_count" yaml:"comments_count"`
	IsLiked       bool      `json:"is_liked" yaml:"is_liked"`
	IsDisliked    bool      `json:"is_disliked" yaml:"is_disliked"`
	IsReposted    bool      `json:"is_reposted" yaml:"is_reposted"`
	Comments      []Comment `json:"comments" yaml:"comments"`
}

// Seed is the server snapshot a State is built from. Nil pointers mean the
// server did not send the field.
type Seed struct {
	ID            string
	LikesCount    *int
	DislikesCount *int
	SharesCount   *int
	RepostsCount  *int
	CommentsCount *int
	IsLiked       *bool
	IsDisliked    *bool
	IsReposted    *bool
	Comments      []Comment
}

// Initialize builds the first snapshot of a post from its seed. Missing or
// negative counters become 0, missing flags false, and the comment tree is
// normalised so that every node satisfies the reply-count and reaction
// invariants.
func Initialize(seed Seed) State {
	comments := normalizeComments(seed.Comments)

	st := State{
		ID:            seed.ID,
		LikesCount:    nonNegative(seed.LikesCount),
		DislikesCount: nonNegative(seed.DislikesCount),
		SharesCount:   nonNegative(seed.SharesCount),
		RepostsCount:  nonNegative(seed.RepostsCount),
		CommentsCount: nonNegative(seed.CommentsCount),
		IsLiked:       flag(seed.IsLiked),
		IsDisliked:    flag(seed.IsDisliked),
		IsReposted:    flag(seed.IsReposted),
		Comments:      comments,
	}
	// A seed reporting both reactions keeps the like.
	if st.IsLiked && st.IsDisliked {
		st.IsDisliked = false
	}
	if loaded := countNodes(comments); st.CommentsCount < loaded {
		st.CommentsCount = loaded
	}
	return st
}

func normalizeComments(in []Comment) []Comment {
	out := make([]Comment, len(in))
	for i, c := range in {
		c.Replies = normalizeComments(c.Replies)
		c.RepliesCount = len(c.Replies)
		if c.LikesCount < 0 {
			c.LikesCount = 0
		}
		if c.DislikesCount < 0 {
			c.DislikesCount = 0
		}
		if c.UserHasLiked && c.UserHasDisliked {
			c.UserHasDisliked = false
		}
		out[i] = c
	}
	return out
}

func countNodes(tree []Comment) int {
	n := 0
	for _, c := range tree {
		n += 1 + countNodes(c.Replies)
	}
	return n
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

func flag(v *bool) bool {
	return v != nil && *v
}
