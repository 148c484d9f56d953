// Package remote is the HTTP client of the interaction API served by
// internal/server. It implements interactions.RemoteService.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"engagement/internal/interactions"
	"engagement/internal/observability"
	"engagement/internal/poststate"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultTimeout applies when Config.Timeout is not set.
const DefaultTimeout = 10 * time.Second

// Config configures a Client. BaseURL includes the /api prefix.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client calls the interaction API as the user identified by Token.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

var _ interactions.RemoteService = (*Client)(nil)

// NewClient creates a client for cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
	}
}

// APIError is a non-2xx answer of the API. Its message is the server's
// error text so it can be shown to the user as is.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return utils.StatusMessage(e.Status)
}

func decodeError(status int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Details string `json:"details"`
	}
	_ = json.Unmarshal(body, &payload)
	return &APIError{
		Status:  status,
		Code:    payload.Code,
		Message: payload.Error,
		Details: payload.Details,
	}
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func postPath(postID string, parts ...string) string {
	p := "/posts/" + url.PathEscape(postID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func commentPath(commentID string, parts ...string) string {
	p := "/comments/" + url.PathEscape(commentID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)

	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	a.Set(fiber.HeaderXRequestID, requestID(ctx))
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		a.Set(k, v)
	}
	if body != nil {
		a.JSON(body)
	}
	a.Timeout(timeout)

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	status, respBody, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return nil, decodeError(status, respBody)
	}
	return respBody, nil
}

func requestID(ctx context.Context) string {
	if id := observability.ExtractCorrelationID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func decodeInto(body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FetchPost loads the server snapshot of a post for the current user.
func (c *Client) FetchPost(ctx context.Context, postID string) (poststate.Seed, error) {
	body, err := c.do(ctx, fiber.MethodGet, postPath(postID), nil)
	if err != nil {
		return poststate.Seed{}, err
	}
	var post wirePost
	if err := decodeInto(unwrap(body, "post"), &post); err != nil {
		return poststate.Seed{}, err
	}
	return post.seed(postID), nil
}

func (c *Client) react(ctx context.Context, postID, kind string) (interactions.PostReaction, error) {
	body, err := c.do(ctx, fiber.MethodPost, postPath(postID, kind), nil)
	if err != nil {
		return interactions.PostReaction{}, err
	}
	var post wirePost
	if err := decodeInto(unwrap(body, "post"), &post); err != nil {
		return interactions.PostReaction{}, err
	}
	return post.reaction(), nil
}

// LikePost toggles the like of the current user.
func (c *Client) LikePost(ctx context.Context, postID string) (interactions.PostReaction, error) {
	return c.react(ctx, postID, "like")
}

// DislikePost toggles the dislike of the current user.
func (c *Client) DislikePost(ctx context.Context, postID string) (interactions.PostReaction, error) {
	return c.react(ctx, postID, "dislike")
}

func (c *Client) comment(body []byte) (interactions.CommentRecord, error) {
	var wc wireComment
	if err := decodeInto(unwrap(body, "comment"), &wc); err != nil {
		return interactions.CommentRecord{}, err
	}
	return wc.record(), nil
}

// CreateComment posts a comment or a reply.
func (c *Client) CreateComment(ctx context.Context, in interactions.NewComment) (interactions.CommentRecord, error) {
	req := map[string]interface{}{"content": in.Content}
	if in.ParentID != "" {
		parentID, err := numericIDs([]string{in.ParentID})
		if err != nil {
			return interactions.CommentRecord{}, fmt.Errorf("invalid parent id %q", in.ParentID)
		}
		req["parent_id"] = parentID[0]
	}
	body, err := c.do(ctx, fiber.MethodPost, postPath(in.PostID, "comments"), req)
	if err != nil {
		return interactions.CommentRecord{}, err
	}
	return c.comment(body)
}

// UpdateComment replaces the content of one of the user's comments.
func (c *Client) UpdateComment(ctx context.Context, commentID, content string) (interactions.CommentRecord, error) {
	body, err := c.do(ctx, fiber.MethodPut, commentPath(commentID), map[string]string{"content": content})
	if err != nil {
		return interactions.CommentRecord{}, err
	}
	return c.comment(body)
}

// DeleteComment deletes a comment together with its replies.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	_, err := c.do(ctx, fiber.MethodDelete, commentPath(commentID), nil)
	return err
}

// LikeComment adds the user's like to a comment.
func (c *Client) LikeComment(ctx context.Context, commentID string) error {
	_, err := c.do(ctx, fiber.MethodPost, commentPath(commentID, "like"), nil)
	return err
}

// UnlikeComment removes the user's like from a comment.
func (c *Client) UnlikeComment(ctx context.Context, commentID string) error {
	_, err := c.do(ctx, fiber.MethodDelete, commentPath(commentID, "like"), nil)
	return err
}

// DislikeComment adds the user's dislike to a comment.
func (c *Client) DislikeComment(ctx context.Context, commentID string) error {
	_, err := c.do(ctx, fiber.MethodPost, commentPath(commentID, "dislike"), nil)
	return err
}

// UndislikeComment removes the user's dislike from a comment.
func (c *Client) UndislikeComment(ctx context.Context, commentID string) error {
	_, err := c.do(ctx, fiber.MethodDelete, commentPath(commentID, "dislike"), nil)
	return err
}

// Repost toggles the user's repost. It returns a nil status when the answer
// carries no repost flag.
func (c *Client) Repost(ctx context.Context, postID, comment string) (*interactions.RepostStatus, error) {
	var req interface{}
	if comment != "" {
		req = map[string]string{"comment": comment}
	}
	body, err := c.do(ctx, fiber.MethodPost, postPath(postID, "repost"), req)
	if err != nil {
		return nil, err
	}
	var post wirePost
	if err := json.Unmarshal(unwrap(body, "post"), &post); err != nil {
		return nil, nil
	}
	return post.repost(), nil
}

// DirectShare sends the post to other users.
func (c *Client) DirectShare(ctx context.Context, postID string, recipientIDs []string, note string) error {
	ids, err := numericIDs(recipientIDs)
	if err != nil {
		return fmt.Errorf("invalid recipient id: %w", err)
	}
	_, err = c.do(ctx, fiber.MethodPost, postPath(postID, "shares"), map[string]interface{}{
		"recipient_ids": ids,
		"note":          note,
	})
	return err
}
