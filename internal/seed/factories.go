// Package seed provides helpers to create demo data for the engagement
// database: users, posts, threaded comments and the reactions, reposts and
// direct shares around them. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"engagement/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	maxDays int
}

// NewFactory creates a Factory bound to db. A zero seed picks a random one;
// any other value makes the generated content reproducible.
func NewFactory(db *gorm.DB, seed int64) *Factory {
	return &Factory{db: db, faker: gofakeit.New(seed), maxDays: 30}
}

// chance reports true with probability percent/100.
func (f *Factory) chance(percent int) bool {
	return f.faker.Number(1, 100) <= percent
}

func (f *Factory) pastTime() time.Time {
	now := time.Now()
	return f.faker.DateRange(now.AddDate(0, 0, -f.maxDays), now)
}

// BuildUser returns an unsaved user with a unique-looking username.
func (f *Factory) BuildUser() *models.User {
	username := strings.ToLower(fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 99999)))
	return &models.User{
		Username:    username,
		DisplayName: f.faker.Name(),
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
}

// CreateUser persists a generated user. Optional overrides may modify it
// before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser()
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a generated post by author, dated within the last
// month.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	created := f.pastTime()
	post := &models.Post{
		Title:     strings.TrimSuffix(f.faker.Sentence(5), "."),
		Content:   f.faker.Paragraph(1, 3, 12, "\n"),
		UserID:    author.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a generated comment on post, as a reply when parent
// is non-nil. When mention is non-nil the text starts with an @mention of
// that user.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, author *models.User, parent *models.Comment, mention *models.User) (*models.Comment, error) {
	content := f.faker.Sentence(f.faker.Number(4, 16))
	if mention != nil {
		content = "@" + mention.Username + " " + content
	}
	created := f.pastTime()
	if created.Before(post.CreatedAt) {
		created = post.CreatedAt
	}
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   content,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
		if created.Before(parent.CreatedAt) {
			comment.CreatedAt = parent.CreatedAt.Add(time.Minute)
			comment.UpdatedAt = comment.CreatedAt
		}
	}
	if err := f.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) reactionKind() string {
	// Likes outnumber dislikes roughly four to one.
	if f.chance(80) {
		return models.ReactionLike
	}
	return models.ReactionDislike
}

// ReactToPost persists a like or dislike from user on post.
func (f *Factory) ReactToPost(ctx context.Context, user *models.User, post *models.Post) (*models.PostReaction, error) {
	reaction := &models.PostReaction{UserID: user.ID, PostID: post.ID, Kind: f.reactionKind()}
	if err := f.db.WithContext(ctx).Create(reaction).Error; err != nil {
		return nil, err
	}
	return reaction, nil
}

// ReactToComment persists a like or dislike from user on comment.
func (f *Factory) ReactToComment(ctx context.Context, user *models.User, comment *models.Comment) (*models.CommentReaction, error) {
	reaction := &models.CommentReaction{UserID: user.ID, CommentID: comment.ID, Kind: f.reactionKind()}
	if err := f.db.WithContext(ctx).Create(reaction).Error; err != nil {
		return nil, err
	}
	return reaction, nil
}

// Repost persists a repost of post by user, with a comment half of the time.
func (f *Factory) Repost(ctx context.Context, user *models.User, post *models.Post) (*models.Repost, error) {
	repost := &models.Repost{UserID: user.ID, PostID: post.ID}
	if f.chance(50) {
		repost.Comment = f.faker.Sentence(6)
	}
	if err := f.db.WithContext(ctx).Create(repost).Error; err != nil {
		return nil, err
	}
	return repost, nil
}

// Share persists a direct share of post from sender to recipients.
func (f *Factory) Share(ctx context.Context, sender *models.User, post *models.Post, recipients []*models.User) (*models.DirectShare, error) {
	share := &models.DirectShare{PostID: post.ID, SenderID: sender.ID}
	if f.chance(50) {
		share.Note = f.faker.Sentence(5)
	}
	for _, r := range recipients {
		share.Recipients = append(share.Recipients, models.DirectShareRecipient{RecipientID: r.ID})
	}
	if err := f.db.WithContext(ctx).Create(share).Error; err != nil {
		return nil, err
	}
	return share, nil
}
