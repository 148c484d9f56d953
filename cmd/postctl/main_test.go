package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"engagement/internal/config"
	"engagement/internal/interactions"
	"engagement/internal/models"
	"engagement/internal/notifications"
	"engagement/internal/server"
	"engagement/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const testSecret = "postctl-test-secret-0123456789abcdef0123"

type env struct {
	cfg    *config.Config
	db     *gorm.DB
	mr     *miniredis.Miniredis
	author *models.User
	reader *models.User
	post   *models.Post
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	mr, rdb := testutil.NewRedis(t)
	srv, err := server.NewServerWithDeps(&config.Config{JWTSecret: testSecret, Env: "test"}, db, rdb)
	require.NoError(t, err)

	app := srv.App()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	e := &env{
		cfg: &config.Config{
			JWTSecret:         testSecret,
			APIBaseURL:        "http://" + ln.Addr().String() + "/api",
			APITimeoutSeconds: 5,
			RedisURL:          mr.Addr(),
			Env:               "test",
		},
		db:     db,
		mr:     mr,
		author: testutil.CreateUser(t, db, "author"),
		reader: testutil.CreateUser(t, db, "reader"),
	}
	e.post = testutil.CreatePost(t, db, e.author.ID)
	return e
}

func (e *env) opts(action string) options {
	return options{postID: strconv.FormatUint(uint64(e.post.ID), 10), action: action, mint: e.reader.ID}
}

func (e *env) run(t *testing.T, opts options) (interactions.View, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), e.cfg, opts, &out)

	var view interactions.View
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &view), out.String())
	return view, err
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-post", "5", "-action", "share", "-recipients", " 2, ,3 ", "-mint", "9"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "5", opts.postID)
	assert.Equal(t, []string{"2", "3"}, opts.recipients)
	assert.Equal(t, uint(9), opts.mint)

	opts, err = parseFlags([]string{"-post", "5"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "show", opts.action)

	_, err = parseFlags([]string{"-action", "like"}, io.Discard)
	assert.EqualError(t, err, "-post is required")

	_, err = parseFlags([]string{"-post", "5", "-action", "boost"}, io.Discard)
	assert.EqualError(t, err, `unknown action "boost"`)
}

func TestRun_Actions(t *testing.T) {
	e := newEnv(t)

	view, err := e.run(t, e.opts("like"))
	require.NoError(t, err)
	assert.True(t, view.Post.IsLiked)
	assert.Equal(t, 1, view.Post.LikesCount)

	comment := e.opts("comment")
	comment.text = "hello there"
	view, err = e.run(t, comment)
	require.NoError(t, err)
	require.Len(t, view.Post.Comments, 1)
	top := view.Post.Comments[0]
	assert.Equal(t, "hello there", top.Content)

	reply := e.opts("reply")
	reply.target = top.ID
	reply.text = "and again"
	view, err = e.run(t, reply)
	require.NoError(t, err)
	require.Len(t, view.Post.Comments[0].Replies, 1)
	assert.Equal(t, 2, view.Post.CommentsCount)

	react := e.opts("like-comment")
	react.target = top.ID
	view, err = e.run(t, react)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Post.Comments[0].LikesCount)

	share := e.opts("share")
	share.recipients = []string{strconv.FormatUint(uint64(e.author.ID), 10)}
	view, err = e.run(t, share)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Post.SharesCount)

	del := e.opts("delete")
	del.target = top.ID
	view, err = e.run(t, del)
	require.NoError(t, err)
	assert.Empty(t, view.Post.Comments)
	assert.Zero(t, view.Post.CommentsCount)
}

func TestRun_Failures(t *testing.T) {
	e := newEnv(t)

	share := e.opts("share")
	share.recipients = []string{"999"}
	view, err := e.run(t, share)
	require.EqualError(t, err, "Failed to share post: Unknown recipients: 999")
	assert.Equal(t, "Failed to share post: Unknown recipients: 999", view.Error)
	assert.Zero(t, view.Post.SharesCount)

	edit := e.opts("edit")
	edit.target = "12345"
	edit.text = "x"
	var out bytes.Buffer
	err = run(context.Background(), e.cfg, edit, &out)
	assert.EqualError(t, err, "comment 12345 not found on post "+e.opts("").postID)
	assert.Empty(t, out.String())

	missing := e.opts("show")
	missing.postID = "999"
	err = run(context.Background(), e.cfg, missing, &out)
	assert.EqualError(t, err, "post 999 not found")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_WatchPrintsEvents(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- run(ctx, e.cfg, e.opts("watch"), out) }()

	channel := notifications.PostChannel(e.post.ID)
	require.Eventually(t, func() bool {
		return e.mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := e.run(t, e.opts("dislike"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("type: post_reaction_updated"))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestRun_WatchValidation(t *testing.T) {
	cfg := &config.Config{}
	assert.Error(t, run(context.Background(), cfg, options{postID: "abc", action: "watch"}, io.Discard))
	assert.EqualError(t, run(context.Background(), cfg, options{postID: "1", action: "watch"}, io.Discard),
		"REDIS_URL is required to watch events")
}
