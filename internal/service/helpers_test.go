package service

import (
	"errors"
	"testing"

	"engagement/internal/cache"
	"engagement/internal/featureflags"
	"engagement/internal/models"
	"engagement/internal/repository"
	"engagement/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

type testEnv struct {
	db       *gorm.DB
	redis    *miniredis.Miniredis
	comments *CommentService
	posts    *EngagementService

	author *models.User
	reader *models.User
	other  *models.User
	post   *models.Post
}

// newTestEnv wires both services to an in-memory database and Redis. The
// post belongs to author.
func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	mr, rdb := testutil.NewRedis(t)
	c := cache.New(rdb)
	ff := featureflags.NewManager(flags)

	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	userRepo := repository.NewUserRepository(db)
	shareRepo := repository.NewShareRepository(db)

	comments := NewCommentService(commentRepo, postRepo, reactionRepo, userRepo, c, ff)
	env := &testEnv{
		db:       db,
		redis:    mr,
		comments: comments,
		posts:    NewEngagementService(postRepo, reactionRepo, shareRepo, userRepo, comments, c, ff),
		author:   testutil.CreateUser(t, db, "author"),
		reader:   testutil.CreateUser(t, db, "reader"),
		other:    testutil.CreateUser(t, db, "other"),
	}
	env.post = testutil.CreatePost(t, db, env.author.ID)
	return env
}
