// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// buildMIMEMessage renders headers and HTML body into an RFC 5322 message
func (s *EmailService) buildMIMEMessage(email *Email) []byte {
	cfg := s.config.External.Email

	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(email.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", email.Subject)
	if cfg.ReplyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", cfg.ReplyTo)
	}
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)

	return msg.Bytes()
}

// sendSMTPEmail sends email over SMTP. Auth is skipped when no username is set,
// which is how local catchers like MailHog are used in development.
func (s *EmailService) sendSMTPEmail(email *Email) error {
	cfg := s.config.External.Email
	if cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host")
	}

	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	msg := s.buildMIMEMessage(email)

	if cfg.SMTPUseTLS {
		return s.sendSMTPWithTLS(serverAddr, auth, cfg.FromEmail, email.To, msg)
	}
	return smtp.SendMail(serverAddr, auth, cfg.FromEmail, email.To, msg)
}

// sendSMTPWithTLS sends email using an implicit TLS connection
func (s *EmailService) sendSMTPWithTLS(serverAddr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := s.config.External.Email.SMTPHost

	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to create TLS connection: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send DATA command: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write email content: %w", err)
	}
	return writer.Close()
}
