// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Gender is the closed set of profile genders
type Gender string

const (
	GenderMan   Gender = "man"
	GenderWoman Gender = "woman"
)

// User represents an account
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string     `gorm:"not null;size:255" json:"-"`
	Role        auth.Role  `gorm:"size:20;not null;default:'USER';index" json:"role"`
	IsActive    bool       `gorm:"not null;default:false" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"profile,omitempty"`
}

// Profile holds the optional personal details of a user
type Profile struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	FirstName   string     `gorm:"size:100" json:"first_name"`
	LastName    string     `gorm:"size:100" json:"last_name"`
	Gender      *Gender    `gorm:"size:10" json:"gender,omitempty"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Info        string     `gorm:"type:text" json:"info"`
	Avatar      string     `gorm:"size:500" json:"avatar"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ActivationToken is the one-time token mailed after registration
type ActivationToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex"`
	Token     string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// PasswordResetToken is the one-time token mailed on reset request
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex"`
	Token     string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// RefreshToken stores the sha256 of an issued refresh JWT so it can be revoked
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (User) TableName() string               { return "users" }
func (Profile) TableName() string            { return "user_profiles" }
func (ActivationToken) TableName() string    { return "activation_tokens" }
func (PasswordResetToken) TableName() string { return "password_reset_tokens" }
func (RefreshToken) TableName() string       { return "refresh_tokens" }

// BeforeCreate normalizes the email and defaults the role
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetDisplayName returns the profile name or the email
func (u *User) GetDisplayName() string {
	if u.Profile != nil {
		if name := strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName); name != "" {
			return name
		}
	}
	return u.Email
}

// Expired reports whether the token is past its expiry
func (t *ActivationToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// Expired reports whether the token is past its expiry
func (t *PasswordResetToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
