package remote

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"engagement/internal/interactions"
	"engagement/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve runs app on a loopback listener and returns its /api base URL.
func serve(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String() + "/api"
}

func newFakeAPI() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

type recorder struct {
	mu      sync.Mutex
	headers map[string]string
	body    string
}

func (r *recorder) capture(c *fiber.Ctx, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = make(map[string]string, len(names))
	for _, n := range names {
		r.headers[n] = utils.CopyString(c.Get(n))
	}
	r.body = string(c.Body())
}

func (r *recorder) header(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[name]
}

func (r *recorder) requestBody() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body
}

func TestClient_LikePostSendsIdentityHeaders(t *testing.T) {
	rec := &recorder{}
	app := newFakeAPI()
	app.Post("/api/posts/:id/like", func(c *fiber.Ctx) error {
		rec.capture(c, fiber.HeaderAuthorization, fiber.HeaderXRequestID)
		return c.JSON(fiber.Map{"post": fiber.Map{"like_count": 3, "liked": true, "dislikes_count": 1}})
	})
	client := NewClient(Config{BaseURL: serve(t, app) + "/", Token: "tok"})

	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	got, err := client.LikePost(ctx, "42")
	require.NoError(t, err)

	assert.Equal(t, interactions.PostReaction{LikesCount: 3, DislikesCount: 1, UserHasLiked: true}, got)
	assert.Equal(t, "Bearer tok", rec.header(fiber.HeaderAuthorization))
	assert.Equal(t, "corr-1", rec.header(fiber.HeaderXRequestID))
}

func TestClient_GeneratesRequestID(t *testing.T) {
	rec := &recorder{}
	app := newFakeAPI()
	app.Post("/api/posts/:id/dislike", func(c *fiber.Ctx) error {
		rec.capture(c, fiber.HeaderXRequestID, fiber.HeaderAuthorization)
		return c.JSON(fiber.Map{"dislikes_count": 1, "user_has_disliked": true})
	})
	client := NewClient(Config{BaseURL: serve(t, app)})

	got, err := client.DislikePost(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, interactions.PostReaction{DislikesCount: 1, UserHasDisliked: true}, got)
	assert.Len(t, rec.header(fiber.HeaderXRequestID), 36)
	assert.Empty(t, rec.header(fiber.HeaderAuthorization))
}

func TestClient_ErrorResponses(t *testing.T) {
	app := newFakeAPI()
	app.Put("/api/comments/:id", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You can only update your own comments",
			"code":  "FORBIDDEN",
		})
	})
	app.Delete("/api/comments/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadGateway)
	})
	client := NewClient(Config{BaseURL: serve(t, app)})

	_, err := client.UpdateComment(context.Background(), "7", "x")
	require.Error(t, err)
	assert.Equal(t, "You can only update your own comments", err.Error())
	assert.True(t, IsStatus(err, fiber.StatusForbidden))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)

	err = client.DeleteComment(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, "Bad Gateway", err.Error())
	assert.False(t, IsStatus(err, fiber.StatusForbidden))
}

func TestClient_CreateCommentNormalizesRecord(t *testing.T) {
	rec := &recorder{}
	app := newFakeAPI()
	app.Post("/api/posts/:id/comments", func(c *fiber.Ctx) error {
		rec.capture(c)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":         9,
			"post_id":    1,
			"parent_id":  5,
			"user":       fiber.Map{"id": 4, "username": "ann", "display_name": ""},
			"content":    "hi",
			"like_count": 2,
		})
	})
	client := NewClient(Config{BaseURL: serve(t, app)})

	got, err := client.CreateComment(context.Background(), interactions.NewComment{PostID: "1", Content: "hi", ParentID: "5"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"content":"hi","parent_id":5}`, rec.requestBody())
	assert.Equal(t, "9", got.ID)
	assert.Equal(t, "1", got.PostID)
	assert.Equal(t, "5", got.ParentID)
	assert.Equal(t, "4", got.AuthorID)
	assert.Equal(t, "ann", got.AuthorDisplay)
	assert.Equal(t, 2, got.LikesCount)
}

func TestClient_RejectsNonNumericIDsLocally(t *testing.T) {
	var calls atomic.Int32
	app := newFakeAPI()
	app.Use(func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.SendStatus(fiber.StatusOK)
	})
	client := NewClient(Config{BaseURL: serve(t, app)})

	_, err := client.CreateComment(context.Background(), interactions.NewComment{PostID: "1", Content: "x", ParentID: "temp-1"})
	assert.Error(t, err)
	err = client.DirectShare(context.Background(), "1", []string{"2", "bob"}, "")
	assert.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestClient_Repost(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *interactions.RepostStatus
	}{
		{name: "envelope", body: `{"post":{"user_has_reposted":true,"repost_count":4}}`, want: &interactions.RepostStatus{UserHasReposted: true, RepostCount: 4}},
		{name: "flat alternate names", body: `{"reposted":false,"reposts_count":2}`, want: &interactions.RepostStatus{RepostCount: 2}},
		{name: "no flag", body: `{"post":{"repost_count":4}}`},
		{name: "not json", body: `ok`},
		{name: "empty", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newFakeAPI()
			app.Post("/api/posts/:id/repost", func(c *fiber.Ctx) error {
				return c.SendString(tt.body)
			})
			client := NewClient(Config{BaseURL: serve(t, app)})

			got, err := client.Repost(context.Background(), "1", "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_FetchPost(t *testing.T) {
	app := newFakeAPI()
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error {
		return c.SendString(`{
			"id": 12,
			"user_id": 3,
			"likes_count": 5,
			"comment_count": 2,
			"is_liked": true,
			"comments": [{
				"id": 1, "user_id": 3, "author_display": "Ann", "content": "top",
				"likes_count": 1, "liked": true,
				"replies": [{"id": "2", "parent_id": "1", "user": {"id": 4, "username": "bob"}, "content": "reply"}]
			}]
		}`)
	})
	client := NewClient(Config{BaseURL: serve(t, app)})

	seed, err := client.FetchPost(context.Background(), "12")
	require.NoError(t, err)

	assert.Equal(t, "12", seed.ID)
	require.NotNil(t, seed.LikesCount)
	assert.Equal(t, 5, *seed.LikesCount)
	require.NotNil(t, seed.CommentsCount)
	assert.Equal(t, 2, *seed.CommentsCount)
	assert.Nil(t, seed.SharesCount)
	require.NotNil(t, seed.IsLiked)
	assert.True(t, *seed.IsLiked)
	assert.Nil(t, seed.IsReposted)

	require.Len(t, seed.Comments, 1)
	top := seed.Comments[0]
	assert.Equal(t, "1", top.ID)
	assert.Equal(t, "3", top.AuthorID)
	assert.Equal(t, "Ann", top.AuthorDisplay)
	assert.True(t, top.UserHasLiked)
	require.Len(t, top.Replies, 1)
	assert.Equal(t, "2", top.Replies[0].ID)
	assert.Equal(t, "1", top.Replies[0].ParentID)
	assert.Equal(t, "4", top.Replies[0].AuthorID)
	assert.Equal(t, "bob", top.Replies[0].AuthorDisplay)
}

func TestClient_Timeouts(t *testing.T) {
	app := newFakeAPI()
	app.Post("/api/comments/:id/like", func(c *fiber.Ctx) error {
		time.Sleep(300 * time.Millisecond)
		return c.SendStatus(fiber.StatusOK)
	})
	client := NewClient(Config{BaseURL: serve(t, app), Timeout: 50 * time.Millisecond})

	start := time.Now()
	err := client.LikeComment(context.Background(), "1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.UnlikeComment(ctx, "1"), context.Canceled)
}
