package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"engagement/internal/models"
	"engagement/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Content: "Content", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1`)).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByID(context.Background(), 7)
	assertNotFound(t, err)
	assert.Nil(t, post)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Engagement(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	reactions := NewReactionRepository(db)
	shares := NewShareRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author")
	ann := testutil.CreateUser(t, db, "ann")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, author.ID)
	other := testutil.CreatePost(t, db, author.ID)

	require.NoError(t, reactions.SetPostReaction(ctx, ann.ID, post.ID, models.ReactionLike))
	require.NoError(t, reactions.SetPostReaction(ctx, bob.ID, post.ID, models.ReactionDislike))
	require.NoError(t, reactions.SetPostReaction(ctx, ann.ID, other.ID, models.ReactionLike))

	top := testutil.CreateComment(t, db, post.ID, ann.ID, 0, "top")
	testutil.CreateComment(t, db, post.ID, bob.ID, top.ID, "reply")
	gone := testutil.CreateComment(t, db, post.ID, bob.ID, 0, "gone")
	require.NoError(t, db.Delete(gone).Error)

	_, err := shares.ToggleRepost(ctx, bob.ID, post.ID, "")
	require.NoError(t, err)
	require.NoError(t, shares.CreateDirectShare(ctx, &models.DirectShare{
		PostID:     post.ID,
		SenderID:   ann.ID,
		Recipients: []models.DirectShareRecipient{{RecipientID: bob.ID}, {RecipientID: author.ID}},
	}))

	got, err := repo.Engagement(ctx, post.ID, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostEngagement{
		LikesCount:    1,
		DislikesCount: 1,
		CommentsCount: 2,
		SharesCount:   1,
		RepostCount:   1,
		UserHasLiked:  true,
	}, got)

	got, err = repo.Engagement(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, got.UserHasDisliked)
	assert.True(t, got.UserHasReposted)
	assert.False(t, got.UserHasLiked)

	got, err = repo.Engagement(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, got.UserHasLiked || got.UserHasDisliked || got.UserHasReposted)
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	author := testutil.CreateUser(t, db, "author")

	first := testutil.CreatePost(t, db, author.ID)
	second := testutil.CreatePost(t, db, author.ID)
	require.NoError(t, db.Model(first).Update("created_at", second.CreatedAt.Add(-time.Minute)).Error)

	posts, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, "author", posts[0].User.Username)

	posts, err = repo.List(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, first.ID, posts[0].ID)
}
