// Package identity checks and updates account passwords. The passthrough provider leaves
// both to an external identity service; the SQL provider owns a users table.
package identity

import (
	"context"
	"errors"
)

// ErrDelegated means the password lives with an external provider and must be changed there.
var ErrDelegated = errors.New("password management delegated to external identity provider")

type Provider interface {
	VerifyCredentials(ctx context.Context, email, password string) (bool, error)
	UpdatePassword(ctx context.Context, email, newPassword string) error
}

// Passthrough accepts every credential: the caller has already signed in with the external provider.
type Passthrough struct{}

func (Passthrough) VerifyCredentials(context.Context, string, string) (bool, error) {
	return true, nil
}

func (Passthrough) UpdatePassword(context.Context, string, string) error {
	return ErrDelegated
}
