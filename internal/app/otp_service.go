package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/mailer"
	"pdfchat/internal/model"
	"pdfchat/internal/pkg/logging"
)

const (
	defaultLoginCodeTTL = 3 * time.Minute
	defaultResetCodeTTL = 10 * time.Minute
)

var codeSpace = big.NewInt(1_000_000)

type OTPOptions struct {
	LoginTTL time.Duration
	ResetTTL time.Duration
	Clock    func() time.Time
}

// OTPService issues and redeems six-digit one-time codes. Records are never pruned;
// expired ones simply stop matching.
type OTPService struct {
	store    CodeStore
	mail     mailer.Mailer
	renderer *mailer.Renderer
	ttl      map[model.CodePurpose]time.Duration
	now      func() time.Time
}

func NewOTPService(store CodeStore, mail mailer.Mailer, renderer *mailer.Renderer, opts OTPOptions) *OTPService {
	if opts.LoginTTL <= 0 {
		opts.LoginTTL = defaultLoginCodeTTL
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = defaultResetCodeTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if mail == nil {
		mail = mailer.Disabled{}
	}
	if renderer == nil {
		renderer = mailer.NewRenderer("")
	}
	return &OTPService{
		store:    store,
		mail:     mail,
		renderer: renderer,
		ttl: map[model.CodePurpose]time.Duration{
			model.PurposeLoginMFA:      opts.LoginTTL,
			model.PurposePasswordReset: opts.ResetTTL,
		},
		now: opts.Clock,
	}
}

// Issue stores a fresh code for email and emails it. Delivery problems are logged with the
// code instead of being returned.
func (s *OTPService) Issue(ctx context.Context, email string, purpose model.CodePurpose, subject string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", newError(ErrInvalidInput, "Email is required")
	}
	ttl, ok := s.ttl[purpose]
	if !ok {
		return "", fmt.Errorf("unknown code purpose %q", purpose)
	}
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	issued := s.now()
	rec := model.CodeRecord{
		ID:        uuid.NewString(),
		Code:      code,
		Purpose:   purpose,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
	if err := s.store.Append(ctx, email, rec); err != nil {
		return "", fmt.Errorf("store one-time code failed: %w", err)
	}

	msg, err := s.renderer.CodeMessage(email, subject, code, ttl)
	if err != nil {
		s.logFallback(ctx, email, code, err)
		return code, nil
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logFallback(ctx, email, code, err)
		return code, nil
	}
	logging.FromContext(ctx).Info("one-time code sent", "email", email, "purpose", purpose)
	return code, nil
}

// Verify redeems the first unused, unexpired record matching code, in storage order.
func (s *OTPService) Verify(ctx context.Context, email string, purpose model.CodePurpose, code string) error {
	return s.match(ctx, NormalizeEmail(email), purpose, strings.TrimSpace(code), true)
}

// Check reports whether code would verify, without consuming it.
func (s *OTPService) Check(ctx context.Context, email string, purpose model.CodePurpose, code string) error {
	return s.match(ctx, NormalizeEmail(email), purpose, strings.TrimSpace(code), false)
}

func (s *OTPService) match(ctx context.Context, email string, purpose model.CodePurpose, code string, consume bool) error {
	records, err := s.store.List(ctx, purpose, email)
	if err != nil {
		return fmt.Errorf("load one-time codes failed: %w", err)
	}
	now := s.now()
	expired := false
	for _, rec := range records {
		if rec.Code != code {
			continue
		}
		if rec.Usable(now) {
			if !consume {
				return nil
			}
			claimed, err := s.store.MarkUsed(ctx, purpose, email, rec.ID)
			if err != nil {
				return fmt.Errorf("mark one-time code used failed: %w", err)
			}
			if claimed {
				return nil
			}
			continue
		}
		if rec.Expired(now) {
			expired = true
		}
	}
	if expired {
		return ErrCodeExpired
	}
	return ErrCodeInvalid
}

func (s *OTPService) logFallback(ctx context.Context, email, code string, cause error) {
	if errors.Is(cause, mailer.ErrNotConfigured) {
		logging.FromContext(ctx).Info("mail not configured, one-time code logged", "email", email, "code", code)
		return
	}
	logging.FromContext(ctx).Warn("send one-time code failed, code logged", "email", email, "code", code, "error", cause)
}

// GenerateCode returns a uniformly random six-digit code; leading zeros are kept.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code failed: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
