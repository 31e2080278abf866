package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"pdfchat/internal/identity"
	"pdfchat/internal/mailer"
	"pdfchat/internal/model"
	"pdfchat/internal/pkg/jwtutil"
	"pdfchat/internal/pkg/logging"
)

const (
	loginCodeSubject    = "Your Login Verification Code"
	resetCodeSubject    = "Password Reset Code"
	resetConfirmSubject = "Password Reset Confirmation"
	resetConfirmBody    = "Your password has been successfully reset. " +
		"If you didn't make this change, please contact support immediately."
)

type AccountOptions struct {
	// DebugCodes echoes issued codes in responses. Never enable in production.
	DebugCodes     bool
	MFATokenSecret string
	MFATokenTTL    time.Duration
}

// AccountService runs the login step-up and password reset flows on top of OTPService.
// Passwords themselves belong to the identity provider.
type AccountService struct {
	otp      *OTPService
	identity identity.Provider
	mail     mailer.Mailer
	renderer *mailer.Renderer
	opts     AccountOptions
}

func NewAccountService(otp *OTPService, provider identity.Provider, mail mailer.Mailer, renderer *mailer.Renderer, opts AccountOptions) *AccountService {
	if provider == nil {
		provider = identity.Passthrough{}
	}
	if mail == nil {
		mail = mailer.Disabled{}
	}
	if renderer == nil {
		renderer = mailer.NewRenderer("")
	}
	if opts.MFATokenTTL <= 0 {
		opts.MFATokenTTL = 30 * time.Minute
	}
	return &AccountService{otp: otp, identity: provider, mail: mail, renderer: renderer, opts: opts}
}

type CodeIssuedResult struct {
	Message   string  `json:"message"`
	DebugCode *string `json:"debug_code"`
}

type VerifiedResult struct {
	Message  string `json:"message"`
	Email    string `json:"email"`
	MFAToken string `json:"mfa_token,omitempty"`
}

// Login checks the credentials with the identity provider and emails a login code.
func (s *AccountService) Login(ctx context.Context, email, password string) (*CodeIssuedResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, newError(ErrInvalidInput, "Email is required")
	}
	ok, err := s.identity.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrInvalidCredential, "Invalid email or password")
	}
	code, err := s.otp.Issue(ctx, email, model.PurposeLoginMFA, loginCodeSubject)
	if err != nil {
		return nil, err
	}
	return s.issued("MFA code sent to your email", code), nil
}

// VerifyLogin redeems a login code. A signed MFA ticket is attached when a secret is configured.
func (s *AccountService) VerifyLogin(ctx context.Context, email, code string) (*VerifiedResult, error) {
	email = NormalizeEmail(email)
	if err := s.otp.Verify(ctx, email, model.PurposeLoginMFA, code); err != nil {
		return nil, codeError(err, "Code expired", "Invalid code")
	}
	result := &VerifiedResult{Message: "MFA verification successful", Email: email}
	if s.opts.MFATokenSecret != "" {
		token, err := jwtutil.GenerateMFAToken(s.opts.MFATokenSecret, s.opts.MFATokenTTL, email)
		if err != nil {
			return nil, err
		}
		result.MFAToken = token
	}
	return result, nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, email string) (*CodeIssuedResult, error) {
	code, err := s.otp.Issue(ctx, email, model.PurposePasswordReset, resetCodeSubject)
	if err != nil {
		return nil, err
	}
	return s.issued("Password reset code sent to your email", code), nil
}

// VerifyResetCode checks a reset code without consuming it, so reset-password can still redeem it.
func (s *AccountService) VerifyResetCode(ctx context.Context, email, code string) (*VerifiedResult, error) {
	email = NormalizeEmail(email)
	if err := s.otp.Check(ctx, email, model.PurposePasswordReset, code); err != nil {
		return nil, codeError(err, "Reset code expired", "Invalid reset code")
	}
	return &VerifiedResult{Message: "Reset code verified", Email: email}, nil
}

// ResetPassword checks the reset code, hands the new password to the identity provider and
// sends a confirmation email. The code is consumed only once the provider accepted the
// password, so a rejected password can be retried with the same code.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) (*VerifiedResult, error) {
	email = NormalizeEmail(email)
	if err := s.otp.Check(ctx, email, model.PurposePasswordReset, code); err != nil {
		return nil, resetCodeError(err)
	}
	if err := s.updatePassword(ctx, email, newPassword); err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, email, model.PurposePasswordReset, code); err != nil {
		return nil, resetCodeError(err)
	}
	s.notify(ctx, email, resetConfirmSubject, resetConfirmBody)
	return &VerifiedResult{Message: "Password reset verified successfully", Email: email}, nil
}

func resetCodeError(err error) error {
	if errors.Is(err, ErrCodeExpired) || errors.Is(err, ErrCodeInvalid) {
		return newError(ErrCodeInvalid, "Invalid or expired reset code")
	}
	return err
}

func (s *AccountService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (*VerifiedResult, error) {
	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(newPassword) == "" {
		return nil, newError(ErrInvalidInput, "Email and new password are required")
	}
	ok, err := s.identity.VerifyCredentials(ctx, email, oldPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrInvalidCredential, "Current password is incorrect")
	}
	err = s.identity.UpdatePassword(ctx, email, newPassword)
	if errors.Is(err, identity.ErrDelegated) {
		return &VerifiedResult{Message: "Password change request received. Update it with your identity provider.", Email: email}, nil
	}
	if err != nil {
		return nil, passwordError(err)
	}
	return &VerifiedResult{Message: "Password changed successfully", Email: email}, nil
}

func (s *AccountService) updatePassword(ctx context.Context, email, newPassword string) error {
	err := s.identity.UpdatePassword(ctx, email, newPassword)
	if err == nil || errors.Is(err, identity.ErrDelegated) {
		return nil
	}
	return passwordError(err)
}

func (s *AccountService) notify(ctx context.Context, email, subject, body string) {
	msg, err := s.renderer.NoticeMessage(email, subject, body)
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	if err != nil && !errors.Is(err, mailer.ErrNotConfigured) {
		logging.FromContext(ctx).Warn("send account notice failed", "email", email, "subject", subject, "error", err)
	}
}

func (s *AccountService) issued(message, code string) *CodeIssuedResult {
	result := &CodeIssuedResult{Message: message}
	if s.opts.DebugCodes {
		result.DebugCode = &code
	}
	return result
}

func codeError(err error, expired, invalid string) error {
	switch {
	case errors.Is(err, ErrCodeExpired):
		return newError(ErrCodeExpired, expired)
	case errors.Is(err, ErrCodeInvalid):
		return newError(ErrCodeInvalid, invalid)
	default:
		return err
	}
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, identity.ErrWeakPassword):
		return newError(ErrInvalidInput, "Password must be at least 8 characters")
	case errors.Is(err, identity.ErrUserNotFound):
		return newError(ErrInvalidCredential, "Account not found")
	default:
		return err
	}
}
