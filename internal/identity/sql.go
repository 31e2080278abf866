package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pdfchat/internal/model"
	"pdfchat/internal/repository"
)

const minPasswordLength = 8

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEmail = errors.New("email is required")
	ErrEmailExists  = errors.New("email already exists")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// SQLProvider stores bcrypt password hashes in the users table.
type SQLProvider struct {
	db    *gorm.DB
	users *repository.UserRepository
}

func NewSQLProvider(db *gorm.DB) *SQLProvider {
	return &SQLProvider{db: db, users: repository.NewUserRepository(db)}
}

func (p *SQLProvider) AutoMigrate() error {
	if err := p.db.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("auto migrate users failed: %w", err)
	}
	return nil
}

func (p *SQLProvider) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = normalize(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	existing, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	user := &model.User{Email: email, PasswordHash: string(hash)}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (p *SQLProvider) VerifyCredentials(ctx context.Context, email, password string) (bool, error) {
	user, err := p.users.FindByEmail(ctx, normalize(email))
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil, nil
}

func (p *SQLProvider) UpdatePassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	user, err := p.users.FindByEmail(ctx, normalize(email))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}
	return p.users.SetPasswordHash(ctx, user.ID, string(hash), time.Now())
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
