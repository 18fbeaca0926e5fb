package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "notesu/internal/errors"
	"notesu/internal/model"
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user. Unique violations are mapped to the duplicate
// username/email sentinels. GORM's translated error does not name the
// violated index, so the username is re-checked: a concurrent signup can slip
// past the service-level pre-check and must still report USERNAME_EXISTS.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var count int64
			r.db.WithContext(ctx).Model(&model.User{}).
				Where("username = ?", user.Username).Count(&count)
			return duplicateUserError(count > 0, user.Email != nil)
		}
		return err
	}
	return nil
}

// duplicateUserError picks the sentinel for a unique violation. The username
// index wins when both could apply; without an email the username is the
// only unique column.
func duplicateUserError(usernameTaken, hasEmail bool) error {
	if usernameTaken {
		return apperrors.ErrDuplicateUsername
	}
	if hasEmail {
		return apperrors.ErrDuplicateEmail
	}
	return apperrors.ErrDuplicateUsername
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
