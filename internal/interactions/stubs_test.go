package interactions

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

var errUnexpectedCall = errors.New("unexpected remote call")

// remoteStub is a stub for RemoteService; unset functions fail the call.
type remoteStub struct {
	likePostFn         func(context.Context, string) (PostReaction, error)
	dislikePostFn      func(context.Context, string) (PostReaction, error)
	createCommentFn    func(context.Context, NewComment) (CommentRecord, error)
	updateCommentFn    func(context.Context, string, string) (CommentRecord, error)
	deleteCommentFn    func(context.Context, string) error
	likeCommentFn      func(context.Context, string) error
	unlikeCommentFn    func(context.Context, string) error
	dislikeCommentFn   func(context.Context, string) error
	undislikeCommentFn func(context.Context, string) error
	repostFn           func(context.Context, string, string) (*RepostStatus, error)
	directShareFn      func(context.Context, string, []string, string) error
}

func (s *remoteStub) LikePost(ctx context.Context, postID string) (PostReaction, error) {
	if s.likePostFn == nil {
		return PostReaction{}, errUnexpectedCall
	}
	return s.likePostFn(ctx, postID)
}

func (s *remoteStub) DislikePost(ctx context.Context, postID string) (PostReaction, error) {
	if s.dislikePostFn == nil {
		return PostReaction{}, errUnexpectedCall
	}
	return s.dislikePostFn(ctx, postID)
}

func (s *remoteStub) CreateComment(ctx context.Context, in NewComment) (CommentRecord, error) {
	if s.createCommentFn == nil {
		return CommentRecord{}, errUnexpectedCall
	}
	return s.createCommentFn(ctx, in)
}

func (s *remoteStub) UpdateComment(ctx context.Context, id, content string) (CommentRecord, error) {
	if s.updateCommentFn == nil {
		return CommentRecord{}, errUnexpectedCall
	}
	return s.updateCommentFn(ctx, id, content)
}

func (s *remoteStub) DeleteComment(ctx context.Context, id string) error {
	if s.deleteCommentFn == nil {
		return errUnexpectedCall
	}
	return s.deleteCommentFn(ctx, id)
}

func (s *remoteStub) LikeComment(ctx context.Context, id string) error {
	if s.likeCommentFn == nil {
		return errUnexpectedCall
	}
	return s.likeCommentFn(ctx, id)
}

func (s *remoteStub) UnlikeComment(ctx context.Context, id string) error {
	if s.unlikeCommentFn == nil {
		return errUnexpectedCall
	}
	return s.unlikeCommentFn(ctx, id)
}

func (s *remoteStub) DislikeComment(ctx context.Context, id string) error {
	if s.dislikeCommentFn == nil {
		return errUnexpectedCall
	}
	return s.dislikeCommentFn(ctx, id)
}

func (s *remoteStub) UndislikeComment(ctx context.Context, id string) error {
	if s.undislikeCommentFn == nil {
		return errUnexpectedCall
	}
	return s.undislikeCommentFn(ctx, id)
}

func (s *remoteStub) Repost(ctx context.Context, postID, comment string) (*RepostStatus, error) {
	if s.repostFn == nil {
		return nil, errUnexpectedCall
	}
	return s.repostFn(ctx, postID, comment)
}

func (s *remoteStub) DirectShare(ctx context.Context, postID string, recipients []string, note string) error {
	if s.directShareFn == nil {
		return errUnexpectedCall
	}
	return s.directShareFn(ctx, postID, recipients, note)
}

// fakeService is an in-memory interaction service with the backend's toggle
// semantics for a single user.
type fakeService struct {
	mu       sync.Mutex
	liked    bool
	disliked bool
	likes    int
	dislikes int
	nextID   int
	failNext error
}

func (f *fakeService) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeService) react(like bool) (PostReaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return PostReaction{}, err
	}
	switch {
	case like && f.liked:
		f.liked = false
		f.likes--
	case like:
		f.liked = true
		f.likes++
		if f.disliked {
			f.disliked = false
			f.dislikes--
		}
	case f.disliked:
		f.disliked = false
		f.dislikes--
	default:
		f.disliked = true
		f.dislikes++
		if f.liked {
			f.liked = false
			f.likes--
		}
	}
	return PostReaction{LikesCount: f.likes, DislikesCount: f.dislikes, UserHasLiked: f.liked, UserHasDisliked: f.disliked}, nil
}

func (f *fakeService) LikePost(context.Context, string) (PostReaction, error) { return f.react(true) }

func (f *fakeService) DislikePost(context.Context, string) (PostReaction, error) {
	return f.react(false)
}

func (f *fakeService) CreateComment(_ context.Context, in NewComment) (CommentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return CommentRecord{}, err
	}
	f.nextID++
	now := time.Now()
	return CommentRecord{
		ID:            "srv-" + strconv.Itoa(f.nextID),
		PostID:        in.PostID,
		ParentID:      in.ParentID,
		AuthorID:      "7",
		AuthorDisplay: "tester",
		Content:       in.Content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (f *fakeService) UpdateComment(_ context.Context, id, content string) (CommentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return CommentRecord{}, err
	}
	return CommentRecord{ID: id, Content: content, IsEdited: true, UpdatedAt: time.Now()}, nil
}

func (f *fakeService) simple() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.takeFailure()
}

func (f *fakeService) DeleteComment(context.Context, string) error    { return f.simple() }
func (f *fakeService) LikeComment(context.Context, string) error      { return f.simple() }
func (f *fakeService) UnlikeComment(context.Context, string) error    { return f.simple() }
func (f *fakeService) DislikeComment(context.Context, string) error   { return f.simple() }
func (f *fakeService) UndislikeComment(context.Context, string) error { return f.simple() }

func (f *fakeService) Repost(context.Context, string, string) (*RepostStatus, error) {
	return nil, f.simple()
}

func (f *fakeService) DirectShare(context.Context, string, []string, string) error {
	return f.simple()
}
