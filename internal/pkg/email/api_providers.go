// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendGridRequest struct {
	Personalizations []struct {
		To []address `json:"to"`
	} `json:"personalizations"`
	From    address  `json:"from"`
	Subject string   `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
	ReplyTo *address `json:"reply_to,omitempty"`
}

type mailerSendRequest struct {
	From    address   `json:"from"`
	To      []address `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
	ReplyTo *address  `json:"reply_to,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
}

func (s *EmailService) recipients(email *Email) []address {
	to := make([]address, 0, len(email.To))
	for _, r := range email.To {
		to = append(to, address{Email: r})
	}
	return to
}

func (s *EmailService) replyTo() *address {
	if s.config.External.Email.ReplyTo == "" {
		return nil
	}
	return &address{Email: s.config.External.Email.ReplyTo}
}

// postJSON calls a provider's HTTP API and checks for the expected status
func (s *EmailService) postJSON(ctx context.Context, provider, url string, body interface{}, wantStatus int) error {
	apiKey := s.config.External.Email.APIKey
	if apiKey == "" {
		return fmt.Errorf("%s API key not configured", provider)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API returned status %d: %s", provider, resp.StatusCode, string(detail))
	}
	return nil
}

func (s *EmailService) sendResendEmail(ctx context.Context, email *Email) error {
	cfg := s.config.External.Email
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}

	return s.postJSON(ctx, "Resend", "https://api.resend.com/emails", resendRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: cfg.ReplyTo,
	}, http.StatusOK)
}

func (s *EmailService) sendSendGridEmail(ctx context.Context, email *Email) error {
	req := sendGridRequest{
		From:    address{Email: s.config.External.Email.FromEmail, Name: s.config.External.Email.FromName},
		Subject: email.Subject,
		ReplyTo: s.replyTo(),
	}
	req.Personalizations = append(req.Personalizations, struct {
		To []address `json:"to"`
	}{To: s.recipients(email)})
	req.Content = append(req.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: email.HTMLContent})

	return s.postJSON(ctx, "SendGrid", "https://api.sendgrid.com/v3/mail/send", req, http.StatusAccepted)
}

func (s *EmailService) sendMailerSendEmail(ctx context.Context, email *Email) error {
	return s.postJSON(ctx, "MailerSend", "https://api.mailersend.com/v1/email", mailerSendRequest{
		From:    address{Email: s.config.External.Email.FromEmail, Name: s.config.External.Email.FromName},
		To:      s.recipients(email),
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.replyTo(),
		Tags:    []string{string(email.Type)},
	}, http.StatusAccepted)
}
