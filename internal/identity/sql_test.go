package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSQLProvider(t *testing.T) *SQLProvider {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	p := NewSQLProvider(db)
	require.NoError(t, p.AutoMigrate())
	return p
}

func TestSQLProviderCredentials(t *testing.T) {
	ctx := context.Background()
	p := newSQLProvider(t)

	user, err := p.CreateUser(ctx, " Alice@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	ok, err := p.VerifyCredentials(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.VerifyCredentials(ctx, "ALICE@example.com", "wrong-password")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.VerifyCredentials(ctx, "nobody@example.com", "correct-horse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLProviderCreateRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	ctx := context.Background()
	p := newSQLProvider(t)

	_, err := p.CreateUser(ctx, "a@x.io", "password1")
	require.NoError(t, err)

	_, err = p.CreateUser(ctx, "A@x.io", "password2")
	assert.True(t, errors.Is(err, ErrEmailExists))

	_, err = p.CreateUser(ctx, "b@x.io", "short")
	assert.True(t, errors.Is(err, ErrWeakPassword))

	_, err = p.CreateUser(ctx, "  ", "password1")
	assert.True(t, errors.Is(err, ErrInvalidEmail))
}

func TestSQLProviderUpdatePassword(t *testing.T) {
	ctx := context.Background()
	p := newSQLProvider(t)
	_, err := p.CreateUser(ctx, "a@x.io", "old-password")
	require.NoError(t, err)

	require.NoError(t, p.UpdatePassword(ctx, "a@x.io", "new-password"))
	user, err := p.users.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.NotNil(t, user.PasswordChangedAt)

	ok, err := p.VerifyCredentials(ctx, "a@x.io", "new-password")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.VerifyCredentials(ctx, "a@x.io", "old-password")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.Is(p.UpdatePassword(ctx, "missing@x.io", "new-password"), ErrUserNotFound))
	assert.True(t, errors.Is(p.UpdatePassword(ctx, "a@x.io", "tiny"), ErrWeakPassword))
}

func TestPassthrough(t *testing.T) {
	ok, err := Passthrough{}.VerifyCredentials(context.Background(), "a@x.io", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, errors.Is(Passthrough{}.UpdatePassword(context.Background(), "a@x.io", "x"), ErrDelegated))
}
