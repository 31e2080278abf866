package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"
)

const defaultBrevoBaseURL = "https://api.brevo.com/v3"

type BrevoConfig struct {
	BaseURL   string
	APIKey    string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// BrevoClient sends mail through the Brevo transactional email API.
type BrevoClient struct {
	api    *brevo.APIClient
	apiKey string
	sender *brevo.SendSmtpEmailSender
}

func NewBrevoClient(cfg BrevoConfig) *BrevoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBrevoBaseURL
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	conf := brevo.NewConfiguration()
	conf.BasePath = baseURL
	conf.HTTPClient = &http.Client{Timeout: timeout}
	conf.AddDefaultHeader("api-key", apiKey)

	return &BrevoClient{
		api:    brevo.NewAPIClient(conf),
		apiKey: apiKey,
		sender: &brevo.SendSmtpEmailSender{Email: cfg.FromEmail, Name: cfg.FromName},
	}
}

func (c *BrevoClient) Configured() bool {
	return c.apiKey != ""
}

func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	_, resp, err := c.api.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender:      c.sender,
		To:          []brevo.SendSmtpEmailTo{{Email: msg.To}},
		Subject:     msg.Subject,
		HtmlContent: msg.HTML,
		TextContent: msg.Text,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		var apiErr brevo.GenericSwaggerError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("brevo returned status %s: %s", apiErr.Error(), strings.TrimSpace(string(apiErr.Body())))
		}
		return fmt.Errorf("brevo request failed: %w", err)
	}
	return nil
}
