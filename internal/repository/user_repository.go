package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pdfchat/internal/model"
)

// UserRepository persists accounts for the SQL identity provider. Emails are stored as given;
// callers normalise them first.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("insert user %s failed: %w", user.Email, err)
	}
	return nil
}

// FindByEmail returns nil without error when no account matches.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(&model.User{Email: email}).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("lookup user %s failed: %w", email, err)
	}
	return &user, nil
}

// SetPasswordHash replaces the hash and stamps PasswordChangedAt.
func (r *UserRepository) SetPasswordHash(ctx context.Context, id uint, hash string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash":       hash,
		"password_changed_at": at,
	})
	if res.Error != nil {
		return fmt.Errorf("set password for user %d failed: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set password for user %d failed: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
