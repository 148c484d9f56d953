package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"engagement/internal/interactions"
	"engagement/internal/poststate"
)

// flexID accepts ids encoded as JSON strings or numbers. null decodes to "".
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" && id != "0" {
			return string(id)
		}
	}
	return ""
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstIntPtr(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstBool(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func isTrue(v *bool) bool { return v != nil && *v }

type wireUser struct {
	ID          flexID `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// wireComment accepts the comment spellings used across the app's endpoints.
type wireComment struct {
	ID            flexID        `json:"id"`
	PostID        flexID        `json:"post_id"`
	ParentID      flexID        `json:"parent_id"`
	AuthorID      flexID        `json:"author_id"`
	UserID        flexID        `json:"user_id"`
	AuthorDisplay string        `json:"author_display"`
	User          *wireUser     `json:"user"`
	Content       string        `json:"content"`
	IsEdited      bool          `json:"is_edited"`
	LikesCount    *int          `json:"likes_count"`
	LikeCount     *int          `json:"like_count"`
	DislikesCount *int          `json:"dislikes_count"`
	DislikeCount  *int          `json:"dislike_count"`
	UserHasLiked  *bool         `json:"user_has_liked"`
	Liked         *bool         `json:"liked"`
	UserDisliked  *bool         `json:"user_has_disliked"`
	Disliked      *bool         `json:"disliked"`
	Replies       []wireComment `json:"replies"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (w wireComment) authorID() string {
	var userID flexID
	if w.User != nil {
		userID = w.User.ID
	}
	return firstID(w.AuthorID, w.UserID, userID)
}

func (w wireComment) authorDisplay() string {
	if w.AuthorDisplay != "" {
		return w.AuthorDisplay
	}
	if w.User == nil {
		return ""
	}
	if w.User.DisplayName != "" {
		return w.User.DisplayName
	}
	return w.User.Username
}

func (w wireComment) record() interactions.CommentRecord {
	return interactions.CommentRecord{
		ID:            firstID(w.ID),
		PostID:        firstID(w.PostID),
		ParentID:      firstID(w.ParentID),
		AuthorID:      w.authorID(),
		AuthorDisplay: w.authorDisplay(),
		Content:       w.Content,
		IsEdited:      w.IsEdited,
		LikesCount:    firstInt(w.LikesCount, w.LikeCount),
		DislikesCount: firstInt(w.DislikesCount, w.DislikeCount),
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func (w wireComment) node() poststate.Comment {
	replies := make([]poststate.Comment, 0, len(w.Replies))
	for _, r := range w.Replies {
		replies = append(replies, r.node())
	}
	return poststate.Comment{
		ID:              firstID(w.ID),
		PostID:          firstID(w.PostID),
		AuthorID:        w.authorID(),
		AuthorDisplay:   w.authorDisplay(),
		Content:         w.Content,
		IsEdited:        w.IsEdited,
		ParentID:        firstID(w.ParentID),
		LikesCount:      firstInt(w.LikesCount, w.LikeCount),
		DislikesCount:   firstInt(w.DislikesCount, w.DislikeCount),
		UserHasLiked:    isTrue(firstBool(w.UserHasLiked, w.Liked)),
		UserHasDisliked: isTrue(firstBool(w.UserDisliked, w.Disliked)),
		Replies:         replies,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// wirePost accepts post bodies: a full post view or the reaction and repost
// summaries.
type wirePost struct {
	ID              flexID        `json:"id"`
	LikesCount      *int          `json:"likes_count"`
	LikeCount       *int          `json:"like_count"`
	DislikesCount   *int          `json:"dislikes_count"`
	DislikeCount    *int          `json:"dislike_count"`
	CommentsCount   *int          `json:"comments_count"`
	CommentCount    *int          `json:"comment_count"`
	SharesCount     *int          `json:"shares_count"`
	ShareCount      *int          `json:"share_count"`
	RepostCount     *int          `json:"repost_count"`
	RepostsCount    *int          `json:"reposts_count"`
	UserHasLiked    *bool         `json:"user_has_liked"`
	Liked           *bool         `json:"liked"`
	IsLiked         *bool         `json:"is_liked"`
	UserHasDisliked *bool         `json:"user_has_disliked"`
	Disliked        *bool         `json:"disliked"`
	IsDisliked      *bool         `json:"is_disliked"`
	UserHasReposted *bool         `json:"user_has_reposted"`
	Reposted        *bool         `json:"reposted"`
	IsReposted      *bool         `json:"is_reposted"`
	Comments        []wireComment `json:"comments"`
}

func (w wirePost) reaction() interactions.PostReaction {
	return interactions.PostReaction{
		LikesCount:      firstInt(w.LikesCount, w.LikeCount),
		DislikesCount:   firstInt(w.DislikesCount, w.DislikeCount),
		UserHasLiked:    isTrue(firstBool(w.UserHasLiked, w.Liked, w.IsLiked)),
		UserHasDisliked: isTrue(firstBool(w.UserHasDisliked, w.Disliked, w.IsDisliked)),
	}
}

// repost returns nil when the body carries no repost flag.
func (w wirePost) repost() *interactions.RepostStatus {
	flag := firstBool(w.UserHasReposted, w.Reposted, w.IsReposted)
	if flag == nil {
		return nil
	}
	return &interactions.RepostStatus{
		UserHasReposted: *flag,
		RepostCount:     firstInt(w.RepostCount, w.RepostsCount),
	}
}

func (w wirePost) seed(postID string) poststate.Seed {
	comments := make([]poststate.Comment, 0, len(w.Comments))
	for _, c := range w.Comments {
		comments = append(comments, c.node())
	}
	id := firstID(w.ID)
	if id == "" {
		id = postID
	}
	return poststate.Seed{
		ID:            id,
		LikesCount:    firstIntPtr(w.LikesCount, w.LikeCount),
		DislikesCount: firstIntPtr(w.DislikesCount, w.DislikeCount),
		CommentsCount: firstIntPtr(w.CommentsCount, w.CommentCount),
		SharesCount:   firstIntPtr(w.SharesCount, w.ShareCount),
		RepostsCount:  firstIntPtr(w.RepostCount, w.RepostsCount),
		IsLiked:       firstBool(w.UserHasLiked, w.Liked, w.IsLiked),
		IsDisliked:    firstBool(w.UserHasDisliked, w.Disliked, w.IsDisliked),
		IsReposted:    firstBool(w.UserHasReposted, w.Reposted, w.IsReposted),
		Comments:      comments,
	}
}

// unwrap returns the object under key when body is an envelope such as
// {"post": {...}}, and body itself otherwise.
func unwrap(body []byte, key string) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if inner, ok := envelope[key]; ok && len(inner) > 0 && inner[0] == '{' {
		return inner
	}
	return body
}

// numericIDs converts string ids into the numbers the API expects.
func numericIDs(ids []string) ([]uint64, error) {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
