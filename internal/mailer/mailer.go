// Package mailer delivers transactional email: one-time codes and account notices.
package mailer

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("mail delivery not configured")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
	// Code is set for one-time-code mail so a failed delivery can still surface it in the server log.
	Code string `json:"code,omitempty"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Disabled rejects every message with ErrNotConfigured.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error {
	return ErrNotConfigured
}
