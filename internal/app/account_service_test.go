package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/identity"
	"pdfchat/internal/mailer"
	"pdfchat/internal/pkg/jwtutil"
	"pdfchat/internal/repository"
)

type stubIdentity struct {
	password  string
	minLength int
	updated   []string
}

func (s *stubIdentity) VerifyCredentials(_ context.Context, _ string, password string) (bool, error) {
	return password == s.password, nil
}

func (s *stubIdentity) UpdatePassword(_ context.Context, _ string, newPassword string) error {
	if len(newPassword) < s.minLength {
		return identity.ErrWeakPassword
	}
	s.updated = append(s.updated, newPassword)
	s.password = newPassword
	return nil
}

func newAccountFixture(provider identity.Provider, opts AccountOptions) (*AccountService, *recordingMailer, *fakeClock) {
	mail := &recordingMailer{}
	clock := newFakeClock()
	renderer := mailer.NewRenderer("FasarliAI")
	otp := NewOTPService(repository.NewCodeRepository(), mail, renderer, OTPOptions{Clock: clock.Now})
	return NewAccountService(otp, provider, mail, renderer, opts), mail, clock
}

func TestLoginAndVerifyCode(t *testing.T) {
	svc, mail, _ := newAccountFixture(identity.Passthrough{}, AccountOptions{DebugCodes: true, MFATokenSecret: "s3cret"})
	ctx := context.Background()

	res, err := svc.Login(ctx, "A@x.io", "anything")
	require.NoError(t, err)
	assert.Equal(t, "MFA code sent to your email", res.Message)
	require.NotNil(t, res.DebugCode)
	require.Len(t, mail.messages(), 1)
	assert.Equal(t, "Your Login Verification Code", mail.messages()[0].Subject)

	verified, err := svc.VerifyLogin(ctx, "a@x.io", *res.DebugCode)
	require.NoError(t, err)
	assert.Equal(t, "MFA verification successful", verified.Message)
	assert.Equal(t, "a@x.io", verified.Email)

	claims, err := jwtutil.ParseMFAToken("s3cret", verified.MFAToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", claims.Email)

	_, err = svc.VerifyLogin(ctx, "a@x.io", *res.DebugCode)
	assert.True(t, errors.Is(err, ErrCodeInvalid))
	assert.Equal(t, "Invalid code", Detail(err))
}

func TestLoginHidesDebugCodeByDefault(t *testing.T) {
	svc, _, _ := newAccountFixture(nil, AccountOptions{})
	res, err := svc.Login(context.Background(), "a@x.io", "pw")
	require.NoError(t, err)
	assert.Nil(t, res.DebugCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, mail, _ := newAccountFixture(&stubIdentity{password: "right"}, AccountOptions{})
	_, err := svc.Login(context.Background(), "a@x.io", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredential))
	assert.Empty(t, mail.messages())
}

func TestVerifyLoginExpired(t *testing.T) {
	svc, _, clock := newAccountFixture(nil, AccountOptions{DebugCodes: true})
	ctx := context.Background()
	res, err := svc.Login(ctx, "a@x.io", "pw")
	require.NoError(t, err)

	clock.Advance(defaultLoginCodeTTL)
	_, err = svc.VerifyLogin(ctx, "a@x.io", *res.DebugCode)
	assert.True(t, errors.Is(err, ErrCodeExpired))
	assert.Equal(t, "Code expired", Detail(err))
}

func TestPasswordResetFlow(t *testing.T) {
	provider := &stubIdentity{password: "old-password"}
	svc, mail, _ := newAccountFixture(provider, AccountOptions{DebugCodes: true})
	ctx := context.Background()

	issued, err := svc.ForgotPassword(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "Password reset code sent to your email", issued.Message)
	code := *issued.DebugCode

	_, err = svc.VerifyResetCode(ctx, "a@x.io", "999999x")
	assert.Equal(t, "Invalid reset code", Detail(err))

	checked, err := svc.VerifyResetCode(ctx, "a@x.io", code)
	require.NoError(t, err)
	assert.Equal(t, "Reset code verified", checked.Message)

	reset, err := svc.ResetPassword(ctx, "a@x.io", code, "new-password")
	require.NoError(t, err)
	assert.Equal(t, "Password reset verified successfully", reset.Message)
	assert.Equal(t, []string{"new-password"}, provider.updated)

	sent := mail.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Password Reset Code", sent[0].Subject)
	assert.Equal(t, "Password Reset Confirmation", sent[1].Subject)
	assert.Empty(t, sent[1].Code)

	_, err = svc.ResetPassword(ctx, "a@x.io", code, "again-password")
	assert.True(t, errors.Is(err, ErrCodeInvalid))
	assert.Equal(t, "Invalid or expired reset code", Detail(err))
}

func TestResetPasswordRejectedPasswordKeepsCode(t *testing.T) {
	provider := &stubIdentity{password: "old-password", minLength: 8}
	svc, mail, _ := newAccountFixture(provider, AccountOptions{DebugCodes: true})
	ctx := context.Background()

	issued, err := svc.ForgotPassword(ctx, "a@x.io")
	require.NoError(t, err)
	code := *issued.DebugCode

	_, err = svc.ResetPassword(ctx, "a@x.io", code, "short")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Empty(t, provider.updated)
	assert.Len(t, mail.messages(), 1)

	reset, err := svc.ResetPassword(ctx, "a@x.io", code, "long-enough")
	require.NoError(t, err)
	assert.Equal(t, "Password reset verified successfully", reset.Message)
	assert.Equal(t, []string{"long-enough"}, provider.updated)

	_, err = svc.ResetPassword(ctx, "a@x.io", code, "another-password")
	assert.True(t, errors.Is(err, ErrCodeInvalid))
}

func TestResetPasswordWithLoginCodeFails(t *testing.T) {
	svc, _, _ := newAccountFixture(nil, AccountOptions{DebugCodes: true})
	ctx := context.Background()
	res, err := svc.Login(ctx, "a@x.io", "pw")
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, "a@x.io", *res.DebugCode, "new-password")
	assert.True(t, errors.Is(err, ErrCodeInvalid))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	delegated, _, _ := newAccountFixture(identity.Passthrough{}, AccountOptions{})
	res, err := delegated.ChangePassword(ctx, "a@x.io", "old", "new-password")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Password change request received")

	provider := &stubIdentity{password: "old-password"}
	owned, _, _ := newAccountFixture(provider, AccountOptions{})
	_, err = owned.ChangePassword(ctx, "a@x.io", "bad", "new-password")
	assert.True(t, errors.Is(err, ErrInvalidCredential))

	res, err = owned.ChangePassword(ctx, "a@x.io", "old-password", "new-password")
	require.NoError(t, err)
	assert.Equal(t, "Password changed successfully", res.Message)
	assert.Equal(t, "new-password", provider.password)
}

func TestCodePurposesUseSeparateTTLs(t *testing.T) {
	svc, _, clock := newAccountFixture(nil, AccountOptions{DebugCodes: true})
	ctx := context.Background()
	issued, err := svc.ForgotPassword(ctx, "a@x.io")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	_, err = svc.VerifyResetCode(ctx, "a@x.io", *issued.DebugCode)
	require.NoError(t, err)
}
