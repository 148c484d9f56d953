package interactions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"engagement/internal/commenttree"
	"engagement/internal/observability"
	"engagement/internal/poststate"
)

// DefaultErrorDisplay is how long a command failure stays visible.
const DefaultErrorDisplay = 5 * time.Second

// Command names used in logs and metrics.
const (
	cmdToggleReaction        = "toggle_reaction"
	cmdAddComment            = "add_comment"
	cmdEditComment           = "edit_comment"
	cmdDeleteComment         = "delete_comment"
	cmdToggleCommentReaction = "toggle_comment_reaction"
	cmdRepost                = "repost"
	cmdDirectShare           = "direct_share"
)

// View is what the UI renders: the post snapshot plus the controller status.
type View struct {
	Post      poststate.State `json:"post" yaml:"post"`
	IsLoading bool            `json:"is_loading" yaml:"is_loading"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithErrorDisplay sets how long a failure message is kept before it is
// cleared. Zero keeps it until the next command or ClearError.
func WithErrorDisplay(d time.Duration) Option {
	return func(c *Controller) {
		c.errorDisplay = d
	}
}

// WithLogger sets the logger used for command outcomes.
func WithLogger(l *observability.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller runs interaction commands against one post. Only one command
// runs at a time; a command issued while another is in flight is dropped.
// Commands never return errors: failures show up as an unchanged (or rolled
// back) snapshot plus a transient Error message.
type Controller struct {
	store        *poststate.Store
	remote       RemoteService
	logger       *observability.Logger
	errorDisplay time.Duration

	mu         sync.Mutex
	busy       bool
	closed     bool
	lastError  string
	errorGen   uint64
	errorTimer *time.Timer

	// pubMu orders deliveries: each View is built and handed to every
	// subscriber before the next one is built.
	pubMu       sync.Mutex
	subMu       sync.Mutex
	subs        map[int]func(View)
	nextSub     int
	unsubscribe func()
}

// NewController creates a controller for the post described by seed.
func NewController(remote RemoteService, seed poststate.Seed, opts ...Option) *Controller {
	c := &Controller{
		store:        poststate.NewStore(seed),
		remote:       remote,
		logger:       observability.GlobalLogger.Component("interactions"),
		errorDisplay: DefaultErrorDisplay,
		subs:         make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = c.store.Subscribe(func(poststate.State) { c.publish() })
	return c
}

// PostID returns the id of the post this controller manages.
func (c *Controller) PostID() string {
	return c.store.Snapshot().ID
}

// Snapshot returns the current post state.
func (c *Controller) Snapshot() poststate.State {
	return c.store.Snapshot()
}

// IsLoading reports whether a command is in flight.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Error returns the current failure message, or "" when there is none.
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// View returns the snapshot together with the controller status.
func (c *Controller) View() View {
	c.mu.Lock()
	busy, msg := c.busy, c.lastError
	c.mu.Unlock()
	return View{Post: c.store.Snapshot(), IsLoading: busy, Error: msg}
}

// Subscribe registers fn to receive a View on every state or status change.
// Views arrive in order and the last one delivered reflects the latest
// state. fn runs synchronously and must not call the controller's commands
// or ClearError.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// ClearError dismisses the current failure message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	changed := c.lastError != ""
	c.resetErrorLocked()
	c.mu.Unlock()
	if changed {
		c.publish()
	}
}

// Close stops the error timer, drops subscribers and rejects further commands.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.resetErrorLocked()
	c.mu.Unlock()

	c.unsubscribe()
	c.subMu.Lock()
	c.subs = make(map[int]func(View))
	c.subMu.Unlock()
}

// ToggleReaction likes or dislikes the post. The post's reaction fields are
// taken verbatim from the service response; nothing is applied before it.
// This deliberately differs from ToggleCommentReaction, which updates the
// comment optimistically and rolls back on failure.
func (c *Controller) ToggleReaction(ctx context.Context, kind ReactionKind) {
	if !kind.Valid() {
		c.invalid(ctx, cmdToggleReaction, "unknown reaction kind")
		return
	}
	ctx, ok := c.begin(ctx, cmdToggleReaction)
	if !ok {
		return
	}
	defer c.end()

	postID := c.PostID()
	var res PostReaction
	err := c.call(ctx, cmdToggleReaction, func(ctx context.Context) error {
		var err error
		if kind == Like {
			res, err = c.remote.LikePost(ctx, postID)
		} else {
			res, err = c.remote.DislikePost(ctx, postID)
		}
		return err
	})
	if err != nil {
		c.fail(ctx, cmdToggleReaction, fmt.Sprintf("Failed to %s post: %s", kind, reason(err)), err)
		return
	}

	c.store.Apply(func(st poststate.State) poststate.State {
		st.LikesCount = max(res.LikesCount, 0)
		st.DislikesCount = max(res.DislikesCount, 0)
		st.IsLiked = res.UserHasLiked
		st.IsDisliked = res.UserHasDisliked
		if st.IsLiked && st.IsDisliked {
			st.IsLiked = kind == Like
			st.IsDisliked = kind == Dislike
		}
		return st
	})
	c.succeed(ctx, cmdToggleReaction, map[string]interface{}{"kind": string(kind)})
}

// AddComment creates a comment, or a reply when parentID is set, and inserts
// the server's record once the service accepts it. Replies nest one level:
// a parentID that is unknown or names a reply is ignored without a call.
func (c *Controller) AddComment(ctx context.Context, text, parentID string) {
	content := strings.TrimSpace(text)
	if content == "" {
		c.invalid(ctx, cmdAddComment, "empty content")
		return
	}
	if parentID != "" {
		if _, found := commenttree.FindTopLevel(c.Snapshot().Comments, parentID); !found {
			c.invalid(ctx, cmdAddComment, "parent is not a top-level comment")
			return
		}
	}
	ctx, ok := c.begin(ctx, cmdAddComment)
	if !ok {
		return
	}
	defer c.end()

	postID := c.PostID()
	var rec CommentRecord
	err := c.call(ctx, cmdAddComment, func(ctx context.Context) error {
		var err error
		rec, err = c.remote.CreateComment(ctx, NewComment{PostID: postID, Content: content, ParentID: parentID})
		return err
	})
	if err != nil {
		c.fail(ctx, cmdAddComment, "Failed to add comment: "+reason(err), err)
		return
	}

	node := rec.toComment(postID, parentID)
	inserted := true
	c.store.Apply(func(st poststate.State) poststate.State {
		if parentID == "" {
			comments := make([]poststate.Comment, 0, len(st.Comments)+1)
			comments = append(comments, st.Comments...)
			st.Comments = append(comments, node)
			st.CommentsCount++
			return st
		}
		tree, ok := commenttree.AppendReply(st.Comments, parentID, node)
		if !ok {
			inserted = false
			return st
		}
		st.Comments = tree
		st.CommentsCount++
		return st
	})
	if !inserted {
		c.logger.WarnContext(ctx, "reply parent disappeared before insert",
			"post_id", postID, "parent_id", parentID, "comment_id", node.ID)
	}
	c.succeed(ctx, cmdAddComment, map[string]interface{}{"comment_id": node.ID, "parent_id": parentID})
}

// EditComment replaces the content of a comment anywhere in the tree.
func (c *Controller) EditComment(ctx context.Context, commentID, text string) {
	content := strings.TrimSpace(text)
	if content == "" {
		c.invalid(ctx, cmdEditComment, "empty content")
		return
	}
	ctx, ok := c.begin(ctx, cmdEditComment)
	if !ok {
		return
	}
	defer c.end()

	var rec CommentRecord
	err := c.call(ctx, cmdEditComment, func(ctx context.Context) error {
		var err error
		rec, err = c.remote.UpdateComment(ctx, commentID, content)
		return err
	})
	if err != nil {
		c.fail(ctx, cmdEditComment, "Failed to edit comment: "+reason(err), err)
		return
	}

	c.store.Apply(func(st poststate.State) poststate.State {
		st.Comments, _ = commenttree.Map(st.Comments, commentID, func(n poststate.Comment) poststate.Comment {
			n.Content = content
			n.IsEdited = true
			if !rec.UpdatedAt.IsZero() {
				n.UpdatedAt = rec.UpdatedAt
			}
			return n
		})
		return st
	})
	c.succeed(ctx, cmdEditComment, map[string]interface{}{"comment_id": commentID})
}

// DeleteComment removes a comment and its whole reply subtree.
func (c *Controller) DeleteComment(ctx context.Context, commentID string) {
	ctx, ok := c.begin(ctx, cmdDeleteComment)
	if !ok {
		return
	}
	defer c.end()

	err := c.call(ctx, cmdDeleteComment, func(ctx context.Context) error {
		return c.remote.DeleteComment(ctx, commentID)
	})
	if err != nil {
		c.fail(ctx, cmdDeleteComment, "Failed to delete comment: "+reason(err), err)
		return
	}

	var removed int
	c.store.Apply(func(st poststate.State) poststate.State {
		st.Comments, removed = commenttree.Remove(st.Comments, commentID)
		st.CommentsCount = max(st.CommentsCount-removed, 0)
		return st
	})
	c.succeed(ctx, cmdDeleteComment, map[string]interface{}{"comment_id": commentID, "removed": removed})
}

// ToggleCommentReaction flips the user's like or dislike on a comment. The
// new reaction is shown immediately and reverted if the service rejects it.
func (c *Controller) ToggleCommentReaction(ctx context.Context, commentID string, kind ReactionKind) {
	if !kind.Valid() {
		c.invalid(ctx, cmdToggleCommentReaction, "unknown reaction kind")
		return
	}
	if _, found := commenttree.Find(c.Snapshot().Comments, commentID); !found {
		c.invalid(ctx, cmdToggleCommentReaction, "unknown comment")
		return
	}
	ctx, ok := c.begin(ctx, cmdToggleCommentReaction)
	if !ok {
		return
	}
	defer c.end()

	var before reaction
	var present bool
	c.store.Apply(func(st poststate.State) poststate.State {
		st.Comments, present = commenttree.Map(st.Comments, commentID, func(n poststate.Comment) poststate.Comment {
			before = reactionOf(n)
			return before.toggle(kind).applyTo(n)
		})
		return st
	})
	if !present {
		return
	}

	err := c.call(ctx, cmdToggleCommentReaction, func(ctx context.Context) error {
		switch {
		case kind == Like && before.liked:
			return c.remote.UnlikeComment(ctx, commentID)
		case kind == Like:
			return c.remote.LikeComment(ctx, commentID)
		case before.disliked:
			return c.remote.UndislikeComment(ctx, commentID)
		default:
			return c.remote.DislikeComment(ctx, commentID)
		}
	})
	if err != nil {
		c.store.Apply(func(st poststate.State) poststate.State {
			st.Comments, _ = commenttree.Map(st.Comments, commentID, before.applyTo)
			return st
		})
		observability.RecordRollback(cmdToggleCommentReaction)
		c.fail(ctx, cmdToggleCommentReaction, fmt.Sprintf("Failed to %s comment: %s", kind, reason(err)), err)
		return
	}
	c.succeed(ctx, cmdToggleCommentReaction, map[string]interface{}{"comment_id": commentID, "kind": string(kind)})
}

// Repost creates or toggles the user's repost of the post. When the service
// answers without a usable body the flag is toggled locally instead.
func (c *Controller) Repost(ctx context.Context, comment string) {
	ctx, ok := c.begin(ctx, cmdRepost)
	if !ok {
		return
	}
	defer c.end()

	postID := c.PostID()
	var status *RepostStatus
	err := c.call(ctx, cmdRepost, func(ctx context.Context) error {
		var err error
		status, err = c.remote.Repost(ctx, postID, strings.TrimSpace(comment))
		return err
	})
	if err != nil {
		c.fail(ctx, cmdRepost, "Failed to repost: "+reason(err), err)
		return
	}

	if status == nil {
		c.store.Apply(func(st poststate.State) poststate.State {
			st.IsReposted = !st.IsReposted
			if st.IsReposted {
				st.RepostsCount++
			} else {
				st.RepostsCount = max(st.RepostsCount-1, 0)
			}
			return st
		})
		observability.RecordCommand(cmdRepost, observability.OutcomeFallback)
		c.logger.LogCommand(ctx, postID, cmdRepost, observability.OutcomeFallback, nil)
		return
	}

	c.store.Apply(func(st poststate.State) poststate.State {
		st.IsReposted = status.UserHasReposted
		st.RepostsCount = max(status.RepostCount, 0)
		return st
	})
	c.succeed(ctx, cmdRepost, map[string]interface{}{"reposted": status.UserHasReposted})
}

// DirectShare sends the post to the given recipients and counts one share.
func (c *Controller) DirectShare(ctx context.Context, recipientIDs []string, note string) {
	recipients := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id = strings.TrimSpace(id); id != "" {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		c.invalid(ctx, cmdDirectShare, "no recipients")
		return
	}
	ctx, ok := c.begin(ctx, cmdDirectShare)
	if !ok {
		return
	}
	defer c.end()

	postID := c.PostID()
	err := c.call(ctx, cmdDirectShare, func(ctx context.Context) error {
		return c.remote.DirectShare(ctx, postID, recipients, strings.TrimSpace(note))
	})
	if err != nil {
		c.fail(ctx, cmdDirectShare, "Failed to share post: "+reason(err), err)
		return
	}

	c.store.Apply(func(st poststate.State) poststate.State {
		st.SharesCount++
		return st
	})
	c.succeed(ctx, cmdDirectShare, map[string]interface{}{"recipients": len(recipients)})
}

// begin claims the busy flag. It returns false when another command is in
// flight or the controller is closed.
func (c *Controller) begin(ctx context.Context, command string) (context.Context, bool) {
	c.mu.Lock()
	if c.busy || c.closed {
		c.mu.Unlock()
		observability.RecordCommand(command, observability.OutcomeRejected)
		return ctx, false
	}
	c.busy = true
	c.resetErrorLocked()
	c.mu.Unlock()

	c.publish()
	return observability.EnsureCorrelationID(ctx), true
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
	c.publish()
}

// call runs one remote call inside a span and records its latency.
func (c *Controller) call(ctx context.Context, command string, fn func(context.Context) error) error {
	span, ctx := observability.TraceRemoteCall(ctx, command, c.PostID())
	defer span.End()
	defer observability.TrackRemoteCall(command)()

	err := fn(ctx)
	span.SetError(err)
	return err
}

func (c *Controller) succeed(ctx context.Context, command string, fields map[string]interface{}) {
	observability.RecordCommand(command, observability.OutcomeSuccess)
	c.logger.LogCommand(ctx, c.PostID(), command, observability.OutcomeSuccess, fields)
}

func (c *Controller) invalid(ctx context.Context, command, why string) {
	observability.RecordCommand(command, observability.OutcomeInvalid)
	c.logger.DebugContext(ctx, "interaction command ignored",
		"post_id", c.PostID(), "command", command, "reason", why)
}

func (c *Controller) fail(ctx context.Context, command, message string, err error) {
	observability.RecordCommand(command, observability.OutcomeFailure)
	c.logger.LogCommand(ctx, c.PostID(), command, observability.OutcomeFailure,
		map[string]interface{}{"error": err.Error()})

	c.mu.Lock()
	c.resetErrorLocked()
	c.lastError = message
	gen := c.errorGen
	if c.errorDisplay > 0 && !c.closed {
		c.errorTimer = time.AfterFunc(c.errorDisplay, func() { c.expireError(gen) })
	}
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) expireError(gen uint64) {
	c.mu.Lock()
	if c.errorGen != gen || c.lastError == "" {
		c.mu.Unlock()
		return
	}
	c.lastError = ""
	c.mu.Unlock()
	c.publish()
}

// resetErrorLocked clears the message and invalidates any pending expiry.
func (c *Controller) resetErrorLocked() {
	c.lastError = ""
	c.errorGen++
	if c.errorTimer != nil {
		c.errorTimer.Stop()
		c.errorTimer = nil
	}
}

func (c *Controller) publish() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.subMu.Lock()
	if len(c.subs) == 0 {
		c.subMu.Unlock()
		return
	}
	subs := make([]func(View), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	v := c.View()
	for _, fn := range subs {
		fn(v)
	}
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
