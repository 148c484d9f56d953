package remote

import (
	"context"
	"strconv"
	"testing"
	"time"

	"engagement/internal/config"
	"engagement/internal/interactions"
	"engagement/internal/middleware"
	"engagement/internal/models"
	"engagement/internal/server"
	"engagement/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "remote-test-secret-0123456789abcdef0123"

type liveAPI struct {
	baseURL string
	db      *gorm.DB
	author  *models.User
	reader  *models.User
	post    *models.Post
}

func newLiveAPI(t *testing.T) *liveAPI {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	_, rdb := testutil.NewRedis(t)
	s, err := server.NewServerWithDeps(&config.Config{JWTSecret: testSecret, Env: "test"}, db, rdb)
	require.NoError(t, err)

	api := &liveAPI{
		baseURL: serve(t, s.App()),
		db:      db,
		author:  testutil.CreateUser(t, db, "author"),
		reader:  testutil.CreateUser(t, db, "reader"),
	}
	api.post = testutil.CreatePost(t, db, api.author.ID)
	return api
}

func (a *liveAPI) clientFor(t *testing.T, user *models.User) *Client {
	t.Helper()
	tok, err := middleware.MintToken(testSecret, user.ID, time.Hour)
	require.NoError(t, err)
	return NewClient(Config{BaseURL: a.baseURL, Token: tok, Timeout: 5 * time.Second})
}

func idOf(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestController_AgainstServer(t *testing.T) {
	api := newLiveAPI(t)
	client := api.clientFor(t, api.reader)
	ctx := context.Background()
	postID := idOf(api.post.ID)

	seed, err := client.FetchPost(ctx, postID)
	require.NoError(t, err)

	registry := interactions.NewRegistry(client, interactions.WithErrorDisplay(0))
	defer registry.Close()
	ctrl := registry.Open(seed)

	ctrl.ToggleReaction(ctx, interactions.Like)
	ctrl.ToggleReaction(ctx, interactions.Dislike)
	st := ctrl.Snapshot()
	assert.Zero(t, st.LikesCount)
	assert.Equal(t, 1, st.DislikesCount)
	assert.True(t, st.IsDisliked)
	assert.False(t, st.IsLiked)

	ctrl.AddComment(ctx, "  first  ", "")
	require.Len(t, ctrl.Snapshot().Comments, 1)
	top := ctrl.Snapshot().Comments[0]
	assert.Equal(t, "first", top.Content)
	assert.Equal(t, idOf(api.reader.ID), top.AuthorID)
	assert.Equal(t, "reader", top.AuthorDisplay)

	ctrl.AddComment(ctx, "second", top.ID)
	st = ctrl.Snapshot()
	assert.Equal(t, 2, st.CommentsCount)
	require.Len(t, st.Comments[0].Replies, 1)
	reply := st.Comments[0].Replies[0]
	assert.Equal(t, top.ID, reply.ParentID)

	ctrl.ToggleCommentReaction(ctx, reply.ID, interactions.Like)
	ctrl.EditComment(ctx, top.ID, "first, edited")
	ctrl.Repost(ctx, "worth reading")
	ctrl.DirectShare(ctx, []string{idOf(api.author.ID)}, "look")
	assert.Empty(t, ctrl.Error())

	st = ctrl.Snapshot()
	assert.Equal(t, 1, st.Comments[0].Replies[0].LikesCount)
	assert.True(t, st.Comments[0].Replies[0].UserHasLiked)
	assert.Equal(t, "first, edited", st.Comments[0].Content)
	assert.True(t, st.Comments[0].IsEdited)
	assert.True(t, st.IsReposted)
	assert.Equal(t, 1, st.RepostsCount)
	assert.Equal(t, 1, st.SharesCount)

	// The server agrees with the local snapshot.
	fresh, err := client.FetchPost(ctx, postID)
	require.NoError(t, err)
	require.Len(t, fresh.Comments, 1)
	require.Len(t, fresh.Comments[0].Replies, 1)
	assert.Equal(t, 1, fresh.Comments[0].Replies[0].LikesCount)
	assert.Equal(t, 2, *fresh.CommentsCount)
	assert.Equal(t, 1, *fresh.SharesCount)
	assert.True(t, *fresh.IsReposted)

	ctrl.DeleteComment(ctx, top.ID)
	st = ctrl.Snapshot()
	assert.Empty(t, st.Comments)
	assert.Zero(t, st.CommentsCount)

	fresh, err = client.FetchPost(ctx, postID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Comments)
	assert.Zero(t, *fresh.CommentsCount)
}

func TestController_ServerRejectionsSurfaceAsErrors(t *testing.T) {
	api := newLiveAPI(t)
	ctx := context.Background()
	postID := idOf(api.post.ID)
	authorClient := api.clientFor(t, api.author)
	readerClient := api.clientFor(t, api.reader)

	created, err := authorClient.CreateComment(ctx, interactions.NewComment{PostID: postID, Content: "mine"})
	require.NoError(t, err)

	seed, err := readerClient.FetchPost(ctx, postID)
	require.NoError(t, err)
	ctrl := interactions.NewController(readerClient, seed, interactions.WithErrorDisplay(0))
	defer ctrl.Close()

	ctrl.EditComment(ctx, created.ID, "not yours")
	assert.Equal(t, "Failed to edit comment: You can only update your own comments", ctrl.Error())
	assert.Equal(t, "mine", ctrl.Snapshot().Comments[0].Content)

	ctrl.DirectShare(ctx, []string{"999"}, "")
	assert.Equal(t, "Failed to share post: Unknown recipients: 999", ctrl.Error())
	assert.Zero(t, ctrl.Snapshot().SharesCount)

	anonymous := NewClient(Config{BaseURL: api.baseURL})
	anon := interactions.NewController(anonymous, seed, interactions.WithErrorDisplay(0))
	defer anon.Close()

	anon.ToggleCommentReaction(ctx, created.ID, interactions.Like)
	assert.Contains(t, anon.Error(), "Failed to like comment: ")
	assert.Zero(t, anon.Snapshot().Comments[0].LikesCount)
	assert.False(t, anon.Snapshot().Comments[0].UserHasLiked)
}
