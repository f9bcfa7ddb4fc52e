// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
)

// Sender is what the account and payment flows need from the notifier.
// Every method is fire-and-forget from the caller's point of view.
type Sender interface {
	SendActivationEmail(ctx context.Context, to, activationLink string) error
	SendActivationCompleteEmail(ctx context.Context, to, loginLink string) error
	SendPasswordResetEmail(ctx context.Context, to, resetLink string) error
	SendPasswordResetCompleteEmail(ctx context.Context, to, loginLink string) error
	SendPaymentSuccessEmail(ctx context.Context, to, userName, amount, watchLink string) error
}

// Dispatcher hands a rendered email to whatever transport delivers it.
type Dispatcher interface {
	Dispatch(ctx context.Context, email *Email) error
}

// EmailService renders templates and delivers through the configured provider
type EmailService struct {
	config     *config.Config
	logger     *logrus.Logger
	templates  map[EmailType]*template.Template
	client     *http.Client
	dispatcher Dispatcher
}

// NewEmailService creates a new email service. Emails are delivered from a
// background goroutine until another dispatcher is set.
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	service := &EmailService{
		config:    cfg,
		logger:    logger,
		templates: make(map[EmailType]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	service.dispatcher = &goroutineDispatcher{service: service}

	service.loadTemplates()

	return service
}

// SetDispatcher swaps the delivery transport, e.g. for the message queue
func (s *EmailService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// Deliver sends an already rendered email using the configured provider
func (s *EmailService) Deliver(ctx context.Context, email *Email) error {
	switch s.config.External.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "mailersend":
		return s.sendMailerSendEmail(ctx, email)
	case "log":
		s.logger.WithFields(logrus.Fields{"to": email.To, "type": email.Type}).Info(email.Subject)
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.External.Email.Provider)
	}
}

// SendActivationEmail sends the account activation link to a new user
func (s *EmailService) SendActivationEmail(ctx context.Context, to, activationLink string) error {
	data := LinkEmailData{
		EmailTemplateData: s.baseData(to, ""),
		Link:              activationLink,
		ExpiryTime:        s.config.Tokens.Expiry.String(),
	}
	return s.send(ctx, EmailTypeActivation, to, "Activate your account", data)
}

// SendActivationCompleteEmail confirms activation and links to login
func (s *EmailService) SendActivationCompleteEmail(ctx context.Context, to, loginLink string) error {
	data := LinkEmailData{
		EmailTemplateData: s.baseData(to, ""),
		Link:              loginLink,
	}
	return s.send(ctx, EmailTypeActivationComplete, to, "Your account is active", data)
}

// SendPasswordResetEmail sends password reset email
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, to, resetLink string) error {
	data := LinkEmailData{
		EmailTemplateData: s.baseData(to, ""),
		Link:              resetLink,
		ExpiryTime:        s.config.Tokens.Expiry.String(),
	}
	return s.send(ctx, EmailTypePasswordReset, to, "Reset your password", data)
}

// SendPasswordResetCompleteEmail confirms that the password was changed
func (s *EmailService) SendPasswordResetCompleteEmail(ctx context.Context, to, loginLink string) error {
	data := LinkEmailData{
		EmailTemplateData: s.baseData(to, ""),
		Link:              loginLink,
	}
	return s.send(ctx, EmailTypePasswordResetComplete, to, "Your password has been changed", data)
}

// SendPaymentSuccessEmail sends payment success notification
func (s *EmailService) SendPaymentSuccessEmail(ctx context.Context, to, userName, amount, watchLink string) error {
	data := PaymentSuccessData{
		EmailTemplateData: s.baseData(to, userName),
		Amount:            amount,
		WatchLink:         watchLink,
	}
	return s.send(ctx, EmailTypePaymentSuccess, to, "Payment successful", data)
}

func (s *EmailService) baseData(to, userName string) EmailTemplateData {
	return GetBaseTemplateData(s.config.App.CompanyName, s.config.App.BaseURL, userName, to)
}

func (s *EmailService) send(ctx context.Context, kind EmailType, to, subject string, data interface{}) error {
	htmlContent, err := s.renderTemplate(kind, data)
	if err != nil {
		return fmt.Errorf("failed to render %s email template: %w", kind, err)
	}

	return s.dispatcher.Dispatch(ctx, &Email{
		To:          []string{to},
		Subject:     subject,
		HTMLContent: htmlContent,
		Type:        kind,
	})
}

// loadTemplates loads all email templates, falling back to built-in ones
func (s *EmailService) loadTemplates() {
	templateDir := s.config.External.Email.TemplateDir
	if templateDir == "" {
		templateDir = "./templates/emails"
	}

	for _, name := range allTemplates {
		templatePath := filepath.Join(templateDir, string(name)+".html")
		tmpl, err := template.ParseFiles(templatePath)
		if err != nil {
			s.logger.WithError(err).WithField("template", name).Debug("Using built-in email template")
			s.templates[name] = fallbackTemplate(name)
			continue
		}
		s.templates[name] = tmpl
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

var fallbackBodies = map[EmailType]string{
	EmailTypeActivation: `<p>Welcome to {{.SiteName}}! Please activate your account:</p>
        <p><a href="{{.Link}}">{{.Link}}</a></p>
        <p>The link expires in {{.ExpiryTime}}.</p>`,
	EmailTypeActivationComplete: `<p>Your account is now active. You can log in here:</p>
        <p><a href="{{.Link}}">{{.Link}}</a></p>`,
	EmailTypePasswordReset: `<p>We received a request to reset your password:</p>
        <p><a href="{{.Link}}">{{.Link}}</a></p>
        <p>The link expires in {{.ExpiryTime}}. If you did not ask for this, ignore this email.</p>`,
	EmailTypePasswordResetComplete: `<p>Your password has been changed. You can log in here:</p>
        <p><a href="{{.Link}}">{{.Link}}</a></p>`,
	EmailTypePaymentSuccess: `<p>Thank you for your purchase! We received your payment of <strong>{{.Amount}}</strong>.</p>
        <p>Your movies are ready: <a href="{{.WatchLink}}">{{.WatchLink}}</a></p>`,
}

// fallbackTemplate creates a basic HTML template when no file is present
func fallbackTemplate(name EmailType) *template.Template {
	page := `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #333;">{{.SiteName}}</h1>
        <p>Hello {{.UserName}},</p>
        ` + fallbackBodies[name] + `
        <p>Best regards,<br>{{.SiteName}} Team</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
    </div>
</body>
</html>`

	return template.Must(template.New(string(name)).Parse(page))
}

// goroutineDispatcher delivers in the background so request handlers never wait on the provider
type goroutineDispatcher struct {
	service *EmailService
}

func (d *goroutineDispatcher) Dispatch(_ context.Context, email *Email) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := d.service.Deliver(ctx, email); err != nil {
			d.service.logger.WithError(err).WithFields(logrus.Fields{
				"to":   email.To,
				"type": email.Type,
			}).Error("Failed to send email")
		}
	}()
	return nil
}
