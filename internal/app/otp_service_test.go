package app

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/mailer"
	"pdfchat/internal/model"
	"pdfchat/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newOTPFixture(mail mailer.Mailer) (*OTPService, *fakeClock) {
	clock := newFakeClock()
	svc := NewOTPService(repository.NewCodeRepository(), mail, mailer.NewRenderer("FasarliAI"), OTPOptions{Clock: clock.Now})
	return svc, clock
}

func TestGenerateCodeIsSixDigits(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestOTPVerifyConsumesCode(t *testing.T) {
	mail := &recordingMailer{}
	svc, _ := newOTPFixture(mail)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "User@Example.com", model.PurposeLoginMFA, "Your Login Verification Code")
	require.NoError(t, err)

	sent := mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "user@example.com", sent[0].To)
	assert.Equal(t, code, sent[0].Code)
	assert.Contains(t, sent[0].HTML, "3 minutes")

	require.NoError(t, svc.Verify(ctx, "user@example.com", model.PurposeLoginMFA, code))
	err = svc.Verify(ctx, "user@example.com", model.PurposeLoginMFA, code)
	assert.True(t, errors.Is(err, ErrCodeInvalid))
}

func TestOTPExpiredDistinctFromUnknown(t *testing.T) {
	svc, clock := newOTPFixture(&recordingMailer{})
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a@x.io", model.PurposeLoginMFA, "subject")
	require.NoError(t, err)

	clock.Advance(3*time.Minute - time.Second)
	require.NoError(t, svc.Check(ctx, "a@x.io", model.PurposeLoginMFA, code))

	clock.Advance(time.Second + time.Nanosecond)
	err = svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, code)
	assert.True(t, errors.Is(err, ErrCodeExpired))

	other := "000000"
	if code == other {
		other = "111111"
	}
	err = svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, other)
	assert.True(t, errors.Is(err, ErrCodeInvalid))
}

func TestOTPCodeVerifiesAtExactExpiry(t *testing.T) {
	svc, clock := newOTPFixture(nil)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a@x.io", model.PurposeLoginMFA, "subject")
	require.NoError(t, err)

	clock.Advance(3 * time.Minute)
	require.NoError(t, svc.Check(ctx, "a@x.io", model.PurposeLoginMFA, code))
	require.NoError(t, svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, code))
}

func TestOTPResetCodesLiveTenMinutesAndArePurposeScoped(t *testing.T) {
	svc, clock := newOTPFixture(nil)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a@x.io", model.PurposePasswordReset, "Password Reset Code")
	require.NoError(t, err)

	err = svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, code)
	assert.True(t, errors.Is(err, ErrCodeInvalid))

	clock.Advance(9 * time.Minute)
	require.NoError(t, svc.Check(ctx, "a@x.io", model.PurposePasswordReset, code))
	require.NoError(t, svc.Check(ctx, "a@x.io", model.PurposePasswordReset, code))
	require.NoError(t, svc.Verify(ctx, "a@x.io", model.PurposePasswordReset, code))
}

func TestOTPDeliveryFailureStillIssues(t *testing.T) {
	svc, _ := newOTPFixture(&recordingMailer{err: errors.New("smtp relay down")})
	ctx := context.Background()

	code, err := svc.Issue(ctx, "a@x.io", model.PurposeLoginMFA, "subject")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, code))
}

func TestOTPOutstandingCodesEachVerifyOnce(t *testing.T) {
	svc, _ := newOTPFixture(nil)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "a@x.io", model.PurposeLoginMFA, "subject")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "a@x.io", model.PurposeLoginMFA, "subject")
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, second))
	require.NoError(t, svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, first))
}

func TestOTPConcurrentVerifySucceedsOnce(t *testing.T) {
	svc, _ := newOTPFixture(nil)
	ctx := context.Background()
	code, err := svc.Issue(ctx, "a@x.io", model.PurposeLoginMFA, "subject")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Verify(ctx, "a@x.io", model.PurposeLoginMFA, code)
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.True(t, errors.Is(err, ErrCodeInvalid))
		}
	}
	assert.Equal(t, 1, ok)
}

func TestOTPRejectsBlankEmail(t *testing.T) {
	svc, _ := newOTPFixture(nil)
	_, err := svc.Issue(context.Background(), "   ", model.PurposeLoginMFA, "subject")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
