// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeActivation            EmailType = "activation"
	EmailTypeActivationComplete    EmailType = "activation_complete"
	EmailTypePasswordReset         EmailType = "password_reset"
	EmailTypePasswordResetComplete EmailType = "password_reset_complete"
	EmailTypePaymentSuccess        EmailType = "payment_success"
)

// allTemplates lists every template the service loads at startup
var allTemplates = []EmailType{
	EmailTypeActivation,
	EmailTypeActivationComplete,
	EmailTypePasswordReset,
	EmailTypePasswordResetComplete,
	EmailTypePaymentSuccess,
}

// Email represents a rendered email message. It is also the payload of queued email jobs.
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// LinkEmailData is used by the account emails, which all carry a single call-to-action link
type LinkEmailData struct {
	EmailTemplateData
	Link       string `json:"link"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// PaymentSuccessData contains data for the payment confirmation email
type PaymentSuccessData struct {
	EmailTemplateData
	Amount    string `json:"amount"`
	WatchLink string `json:"watch_link"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userName, userEmail string) EmailTemplateData {
	if userName == "" {
		userName = userEmail
	}
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
