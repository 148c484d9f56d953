package repository

import (
	"context"

	"engagement/internal/models"
	"engagement/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines interface for user operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
	List(ctx context.Context, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	defer observability.TrackQuery("select", "users")()
	var users []models.User
	err := r.db.WithContext(ctx).Where("LOWER(username) IN ?", usernames).Find(&users).Error
	return users, err
}

// ExistingIDs returns the subset of ids that belong to existing users.
func (r *userRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer observability.TrackQuery("select", "users")()
	var found []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &found).Error
	return found, err
}

func (r *userRepository) List(ctx context.Context, limit int) ([]models.User, error) {
	defer observability.TrackQuery("select", "users")()
	var users []models.User
	err := r.db.WithContext(ctx).Order("id").Limit(limit).Find(&users).Error
	return users, err
}
