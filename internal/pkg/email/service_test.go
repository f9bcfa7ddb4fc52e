package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/logger"
)

type recordingDispatcher struct {
	sent []*Email
}

func (r *recordingDispatcher) Dispatch(_ context.Context, e *Email) error {
	r.sent = append(r.sent, e)
	return nil
}

func newTestService(t *testing.T) (*EmailService, *recordingDispatcher) {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{CompanyName: "Cinema", BaseURL: "http://localhost:8080"},
		Tokens: config.TokenConfig{Expiry: 24 * time.Hour},
		External: config.ExternalConfig{Email: config.EmailConfig{
			Provider:    "log",
			FromEmail:   "noreply@cinema.test",
			FromName:    "Cinema",
			TemplateDir: t.TempDir(),
		}},
	}
	svc := NewEmailService(cfg, logger.Discard())
	rec := &recordingDispatcher{}
	svc.SetDispatcher(rec)
	return svc, rec
}

func TestSendActivationEmailRendersLink(t *testing.T) {
	svc, rec := newTestService(t)

	link := "http://localhost:8080/api/v1/accounts/activate?email=a%40b.com&token=xyz"
	require.NoError(t, svc.SendActivationEmail(context.Background(), "a@b.com", link))

	require.Len(t, rec.sent, 1)
	sent := rec.sent[0]
	assert.Equal(t, []string{"a@b.com"}, sent.To)
	assert.Equal(t, EmailTypeActivation, sent.Type)
	assert.Contains(t, sent.HTMLContent, "token=xyz")
	assert.Contains(t, sent.HTMLContent, "24h0m0s")
}

func TestSendPaymentSuccessEmail(t *testing.T) {
	svc, rec := newTestService(t)

	err := svc.SendPaymentSuccessEmail(context.Background(), "a@b.com", "Ann", "$24.98", "http://localhost:8080/api/v1/movies/purchased")
	require.NoError(t, err)

	require.Len(t, rec.sent, 1)
	body := rec.sent[0].HTMLContent
	assert.Contains(t, body, "Hello Ann")
	assert.Contains(t, body, "$24.98")
	assert.Contains(t, body, "/api/v1/movies/purchased")
}

func TestEveryTemplateHasFallback(t *testing.T) {
	svc, _ := newTestService(t)
	for _, name := range allTemplates {
		_, ok := svc.templates[name]
		assert.True(t, ok, string(name))
	}
}

func TestBuildMIMEMessage(t *testing.T) {
	svc, _ := newTestService(t)
	svc.config.External.Email.ReplyTo = "support@cinema.test"

	msg := string(svc.buildMIMEMessage(&Email{
		To:          []string{"a@b.com", "c@d.com"},
		Subject:     "Hi",
		HTMLContent: "<p>body</p>",
	}))

	assert.True(t, strings.HasPrefix(msg, "From: Cinema <noreply@cinema.test>\r\n"))
	assert.Contains(t, msg, "To: a@b.com, c@d.com\r\n")
	assert.Contains(t, msg, "Reply-To: support@cinema.test\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>body</p>"))
}

func TestDeliverUnknownProvider(t *testing.T) {
	svc, _ := newTestService(t)
	svc.config.External.Email.Provider = "pigeon"
	assert.Error(t, svc.Deliver(context.Background(), &Email{To: []string{"a@b.com"}}))
}
