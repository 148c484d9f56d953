package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"engagement/internal/database"
	"engagement/internal/models"
	"engagement/internal/observability"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Users int
	Posts int
	// Comments is the number of comments per post, replies included.
	Comments int
	Clean    bool
	// Seed makes the run reproducible when non-zero.
	Seed int64
}

// Result counts the rows created by a run.
type Result struct {
	Users            int
	Posts            int
	Comments         int
	PostReactions    int
	CommentReactions int
	Reposts          int
	Shares           int
}

// Run populates db with demo data.
func Run(ctx context.Context, db *gorm.DB, opts Options) (Result, error) {
	var res Result
	if opts.Users < 2 && opts.Posts > 0 {
		return res, errors.New("at least 2 users are needed to seed posts")
	}
	if opts.Users < 0 || opts.Posts < 0 || opts.Comments < 0 {
		return res, errors.New("counts must not be negative")
	}

	log := observability.GlobalLogger.Component("seed")
	log.InfoContext(ctx, "Starting database seeding",
		slog.Int("users", opts.Users), slog.Int("posts", opts.Posts), slog.Int("comments_per_post", opts.Comments))

	if opts.Clean {
		if err := database.Truncate(ctx, db); err != nil {
			return res, err
		}
		log.InfoContext(ctx, "Existing data cleared")
	}

	f := NewFactory(db, opts.Seed)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	res.Users = len(users)

	for i := 0; i < opts.Posts; i++ {
		post, err := f.CreatePost(ctx, f.pick(users))
		if err != nil {
			return res, fmt.Errorf("failed to create post: %w", err)
		}
		res.Posts++

		if err := f.engage(ctx, post, users, opts.Comments, &res); err != nil {
			return res, err
		}
	}

	log.InfoContext(ctx, "Database seeding completed",
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments),
		slog.Int("post_reactions", res.PostReactions),
		slog.Int("comment_reactions", res.CommentReactions),
		slog.Int("reposts", res.Reposts),
		slog.Int("shares", res.Shares),
	)
	return res, nil
}

// engage adds comments, reactions, reposts and shares to a fresh post.
func (f *Factory) engage(ctx context.Context, post *models.Post, users []*models.User, comments int, res *Result) error {
	var topLevel []*models.Comment
	for i := 0; i < comments; i++ {
		author := f.pick(users)

		var parent *models.Comment
		if len(topLevel) > 0 && f.chance(35) {
			parent = topLevel[f.faker.Number(0, len(topLevel)-1)]
		}
		var mention *models.User
		if f.chance(15) {
			if other := f.pick(users); other.ID != author.ID {
				mention = other
			}
		}

		comment, err := f.CreateComment(ctx, post, author, parent, mention)
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		res.Comments++
		if parent == nil {
			topLevel = append(topLevel, comment)
		}

		for _, u := range users {
			if f.chance(20) {
				if _, err := f.ReactToComment(ctx, u, comment); err != nil {
					return fmt.Errorf("failed to react to comment: %w", err)
				}
				res.CommentReactions++
			}
		}
	}

	for _, u := range users {
		if f.chance(40) {
			if _, err := f.ReactToPost(ctx, u, post); err != nil {
				return fmt.Errorf("failed to react to post: %w", err)
			}
			res.PostReactions++
		}
		if u.ID != post.UserID && f.chance(10) {
			if _, err := f.Repost(ctx, u, post); err != nil {
				return fmt.Errorf("failed to repost: %w", err)
			}
			res.Reposts++
		}
	}

	if f.chance(30) {
		sender := f.pick(users)
		var recipients []*models.User
		for _, u := range users {
			if u.ID != sender.ID && f.chance(25) {
				recipients = append(recipients, u)
			}
		}
		if len(recipients) > 0 {
			if _, err := f.Share(ctx, sender, post, recipients); err != nil {
				return fmt.Errorf("failed to share post: %w", err)
			}
			res.Shares++
		}
	}
	return nil
}

func (f *Factory) pick(users []*models.User) *models.User {
	return users[f.faker.Number(0, len(users)-1)]
}
