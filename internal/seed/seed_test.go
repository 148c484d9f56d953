package seed

import (
	"context"
	"strings"
	"testing"

	"engagement/internal/models"
	"engagement/internal/testutil"

	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, model interface{}) int {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return int(n)
}

func TestRun_CreatesConsistentData(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	res, err := Run(ctx, db, Options{Users: 6, Posts: 3, Comments: 8, Seed: 42})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Users != 6 || countRows(t, db, &models.User{}) != 6 {
		t.Fatalf("expected 6 users, result=%d", res.Users)
	}
	if res.Posts != 3 || countRows(t, db, &models.Post{}) != 3 {
		t.Fatalf("expected 3 posts, result=%d", res.Posts)
	}
	if res.Comments != 24 || countRows(t, db, &models.Comment{}) != 24 {
		t.Fatalf("expected 24 comments, result=%d", res.Comments)
	}
	if got := countRows(t, db, &models.PostReaction{}); got != res.PostReactions {
		t.Fatalf("post reactions: table has %d, result says %d", got, res.PostReactions)
	}
	if got := countRows(t, db, &models.CommentReaction{}); got != res.CommentReactions {
		t.Fatalf("comment reactions: table has %d, result says %d", got, res.CommentReactions)
	}
	if got := countRows(t, db, &models.Repost{}); got != res.Reposts {
		t.Fatalf("reposts: table has %d, result says %d", got, res.Reposts)
	}
	if got := countRows(t, db, &models.DirectShare{}); got != res.Shares {
		t.Fatalf("shares: table has %d, result says %d", got, res.Shares)
	}

	var comments []models.Comment
	if err := db.Find(&comments).Error; err != nil {
		t.Fatalf("load comments: %v", err)
	}
	byID := make(map[uint]models.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok {
			t.Fatalf("comment %d has unknown parent %d", c.ID, *c.ParentID)
		}
		if parent.ParentID != nil {
			t.Fatalf("comment %d replies to reply %d", c.ID, parent.ID)
		}
		if parent.PostID != c.PostID {
			t.Fatalf("comment %d and its parent are on different posts", c.ID)
		}
	}

	var reposts []models.Repost
	if err := db.Find(&reposts).Error; err != nil {
		t.Fatalf("load reposts: %v", err)
	}
	for _, r := range reposts {
		var post models.Post
		if err := db.First(&post, r.PostID).Error; err != nil {
			t.Fatalf("load post: %v", err)
		}
		if post.UserID == r.UserID {
			t.Fatalf("user %d reposted their own post", r.UserID)
		}
	}

	var recipients []models.DirectShareRecipient
	if err := db.Find(&recipients).Error; err != nil {
		t.Fatalf("load recipients: %v", err)
	}
	for _, r := range recipients {
		var share models.DirectShare
		if err := db.First(&share, r.ShareID).Error; err != nil {
			t.Fatalf("load share: %v", err)
		}
		if share.SenderID == r.RecipientID {
			t.Fatalf("share %d sent to its own sender", share.ID)
		}
	}
}

func TestRun_Validation(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	if _, err := Run(context.Background(), db, Options{Users: 1, Posts: 1}); err == nil {
		t.Fatal("expected an error with a single user")
	}
	if _, err := Run(context.Background(), db, Options{Users: 2, Posts: 1, Comments: -1}); err == nil {
		t.Fatal("expected an error with negative comments")
	}
	if n := countRows(t, db, &models.User{}); n != 0 {
		t.Fatalf("rejected runs must not write, found %d users", n)
	}
}

func TestRun_CleanRemovesExistingRows(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	author := testutil.CreateUser(t, db, "leftover")
	testutil.CreatePost(t, db, author.ID)

	if _, err := Run(context.Background(), db, Options{Users: 2, Clean: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if n := countRows(t, db, &models.User{}); n != 2 {
		t.Fatalf("expected 2 users after clean, got %d", n)
	}
	if n := countRows(t, db, &models.Post{}); n != 0 {
		t.Fatalf("expected no posts after clean, got %d", n)
	}
}

func TestFactory_SeedIsReproducible(t *testing.T) {
	a := NewFactory(nil, 7).BuildUser()
	b := NewFactory(nil, 7).BuildUser()

	if a.Username != b.Username || a.DisplayName != b.DisplayName {
		t.Fatalf("same seed produced %q/%q and %q/%q", a.Username, a.DisplayName, b.Username, b.DisplayName)
	}
	if a.Username != strings.ToLower(a.Username) {
		t.Fatalf("username %q is not lowercase", a.Username)
	}
}

func TestFactory_CreateCommentWithMention(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	f := NewFactory(db, 1)

	author := testutil.CreateUser(t, db, "author")
	friend := testutil.CreateUser(t, db, "friend")
	post := testutil.CreatePost(t, db, author.ID)

	top, err := f.CreateComment(ctx, post, author, nil, friend)
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if !strings.HasPrefix(top.Content, "@friend ") {
		t.Fatalf("expected mention prefix, got %q", top.Content)
	}

	reply, err := f.CreateComment(ctx, post, friend, top, nil)
	if err != nil {
		t.Fatalf("CreateComment reply failed: %v", err)
	}
	if reply.ParentID == nil || *reply.ParentID != top.ID {
		t.Fatalf("reply parent = %v, want %d", reply.ParentID, top.ID)
	}
	if reply.CreatedAt.Before(top.CreatedAt) {
		t.Fatalf("reply created before its parent")
	}
}
