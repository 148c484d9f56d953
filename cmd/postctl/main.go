// Command postctl runs interaction commands on one post through the API and
// prints the resulting view as YAML.
//
//	postctl -post 12 -action like -mint 3
//	postctl -post 12 -action reply -target 40 -text "agreed"
//	postctl -post 12 -action watch
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"engagement/internal/cache"
	"engagement/internal/commenttree"
	"engagement/internal/config"
	"engagement/internal/interactions"
	"engagement/internal/middleware"
	"engagement/internal/notifications"
	"engagement/internal/observability"
	"engagement/internal/remote"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"
)

var actions = []string{
	"show", "like", "dislike", "comment", "reply", "edit", "delete",
	"like-comment", "dislike-comment", "repost", "share", "watch",
}

type options struct {
	postID     string
	action     string
	text       string
	target     string
	recipients []string
	mint       uint
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("postctl", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var opts options
	var recipients string
	var mint uint64
	fs.StringVar(&opts.postID, "post", "", "Post ID")
	fs.StringVar(&opts.action, "action", "show", "One of: "+strings.Join(actions, ", "))
	fs.StringVar(&opts.text, "text", "", "Comment text, repost comment or share note")
	fs.StringVar(&opts.target, "target", "", "Comment ID for reply, edit, delete and comment reactions")
	fs.StringVar(&recipients, "recipients", "", "Comma-separated user IDs to share with")
	fs.Uint64Var(&mint, "mint", 0, "Mint a short-lived token for this user ID with JWT_SECRET")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.mint = uint(mint)
	for _, r := range strings.Split(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			opts.recipients = append(opts.recipients, r)
		}
	}

	if opts.postID == "" {
		return opts, errors.New("-post is required")
	}
	known := false
	for _, a := range actions {
		known = known || a == opts.action
	}
	if !known {
		return opts, fmt.Errorf("unknown action %q", opts.action)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.GlobalLogger = observability.NewLogger(os.Stderr, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	if opts.action == "watch" {
		return watch(ctx, cfg, opts.postID, out)
	}

	token := cfg.APIToken
	if opts.mint != 0 {
		var err error
		if token, err = middleware.MintToken(cfg.JWTSecret, opts.mint, time.Hour); err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
	}
	client := remote.NewClient(remote.Config{
		BaseURL: cfg.APIBaseURL,
		Token:   token,
		Timeout: cfg.APITimeout(),
	})

	ctx = observability.EnsureCorrelationID(ctx)
	seed, err := client.FetchPost(ctx, opts.postID)
	if remote.IsStatus(err, fiber.StatusNotFound) {
		return fmt.Errorf("post %s not found", opts.postID)
	}
	if err != nil {
		return fmt.Errorf("load post %s: %w", opts.postID, err)
	}

	registry := interactions.NewRegistry(client,
		interactions.WithErrorDisplay(cfg.ErrorDisplay()),
		interactions.WithLogger(observability.GlobalLogger.Component("postctl")),
	)
	defer registry.Close()
	ctrl := registry.Open(seed)

	if err := apply(ctx, ctrl, opts); err != nil {
		return err
	}

	view := ctrl.View()
	data, err := yaml.Marshal(view)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return err
	}
	if view.Error != "" {
		return errors.New(view.Error)
	}
	return nil
}

func apply(ctx context.Context, ctrl *interactions.Controller, opts options) error {
	needsTarget := map[string]bool{
		"reply": true, "edit": true, "delete": true, "like-comment": true, "dislike-comment": true,
	}
	if needsTarget[opts.action] {
		if opts.target == "" {
			return fmt.Errorf("-target is required for %s", opts.action)
		}
		if _, ok := commenttree.Find(ctrl.Snapshot().Comments, opts.target); !ok {
			return fmt.Errorf("comment %s not found on post %s", opts.target, ctrl.PostID())
		}
	}
	switch opts.action {
	case "comment", "reply", "edit":
		if strings.TrimSpace(opts.text) == "" {
			return fmt.Errorf("-text is required for %s", opts.action)
		}
	case "share":
		if len(opts.recipients) == 0 {
			return errors.New("-recipients is required for share")
		}
	}

	switch opts.action {
	case "like":
		ctrl.ToggleReaction(ctx, interactions.Like)
	case "dislike":
		ctrl.ToggleReaction(ctx, interactions.Dislike)
	case "comment":
		ctrl.AddComment(ctx, opts.text, "")
	case "reply":
		ctrl.AddComment(ctx, opts.text, opts.target)
	case "edit":
		ctrl.EditComment(ctx, opts.target, opts.text)
	case "delete":
		ctrl.DeleteComment(ctx, opts.target)
	case "like-comment":
		ctrl.ToggleCommentReaction(ctx, opts.target, interactions.Like)
	case "dislike-comment":
		ctrl.ToggleCommentReaction(ctx, opts.target, interactions.Dislike)
	case "repost":
		ctrl.Repost(ctx, opts.text)
	case "share":
		ctrl.DirectShare(ctx, opts.recipients, opts.text)
	}
	return nil
}

// watch prints the post's live events until ctx is done.
func watch(ctx context.Context, cfg *config.Config, postID string, out io.Writer) error {
	id, err := strconv.ParseUint(postID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid post id %q", postID)
	}
	if cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required to watch events")
	}
	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	var mu sync.Mutex
	err = notifications.NewNotifier(rdb).SubscribePost(ctx, uint(id), func(_ string, payload string) {
		var event map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return
		}
		data, err := yaml.Marshal(event)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(out, "---\n%s", data)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
