package model

import "time"

type CodePurpose string

const (
	PurposeLoginMFA      CodePurpose = "login_mfa"
	PurposePasswordReset CodePurpose = "password_reset"
)

// CodeRecord is one issued one-time code. Records are append-only; only Used ever changes.
type CodeRecord struct {
	ID        string      `json:"id"`
	Code      string      `json:"code"`
	Purpose   CodePurpose `json:"purpose"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
	Used      bool        `json:"used"`
}

// Expired reports whether now is past the expiry instant. A code is still valid at ExpiresAt itself.
func (r CodeRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Usable reports whether the record can still be redeemed at now.
func (r CodeRecord) Usable(now time.Time) bool {
	return !r.Used && !r.Expired(now)
}
