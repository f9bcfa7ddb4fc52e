// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/email"
	"gorm.io/gorm"
)

// Service handles account business logic
type Service struct {
	db              *gorm.DB
	config          *config.Config
	logger          *logrus.Logger
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
	mailer          email.Sender
	now             func() time.Time
}

// NewService creates a new account service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, mailer email.Sender) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		logger:          logger,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
		mailer:          mailer,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ActivateRequest carries the emailed activation token
type ActivateRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PasswordResetRequest starts the reset flow
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetCompleteRequest finishes the reset flow
type PasswordResetCompleteRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest changes the password of the logged in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// TokenPair is returned on login
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Register creates an inactive account and mails the activation link
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	emailAddr := NormalizeEmail(req.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", emailAddr).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict(fmt.Sprintf("A user with this email %s already exists.", emailAddr))
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	token, err := auth.GenerateSecureToken(s.config.Tokens.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate activation token: %w", err)
	}

	user := User{
		Email:    emailAddr,
		Password: hashedPassword,
		Role:     auth.RoleUser,
		IsActive: false,
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict(fmt.Sprintf("A user with this email %s already exists.", emailAddr))
		}
		return nil, apperrors.Internal("An error occurred during user creation.", err)
	}

	activation := ActivationToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().Add(s.config.Tokens.Expiry),
	}
	if err := tx.Create(&activation).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.Internal("An error occurred during user creation.", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.Internal("An error occurred during user creation.", err)
	}

	s.notify(ctx, "activation", func(ctx context.Context) error {
		return s.mailer.SendActivationEmail(ctx, user.Email, s.tokenLink("/api/v1/accounts/activate", user.Email, token))
	})

	return &user, nil
}

// Activate activates an account with the emailed token
func (s *Service) Activate(ctx context.Context, req *ActivateRequest) error {
	db := s.db.WithContext(ctx)
	invalid := apperrors.BadRequest("Invalid or expired activation token.")

	var user User
	if err := db.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	var token ActivationToken
	if err := db.Where("user_id = ?", user.ID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if user.IsActive {
				return apperrors.BadRequest("User account is already active.")
			}
			return invalid
		}
		return fmt.Errorf("failed to load activation token: %w", err)
	}

	if token.Token != req.Token {
		return invalid
	}
	if token.Expired(s.now()) {
		if err := db.Delete(&token).Error; err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to delete expired activation token")
		}
		return invalid
	}
	if user.IsActive {
		return apperrors.BadRequest("User account is already active.")
	}

	tx := db.Begin()
	if err := tx.Model(&user).Update("is_active", true).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to activate user: %w", err)
	}
	if err := tx.Delete(&token).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete activation token: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}

	s.notify(ctx, "activation_complete", func(ctx context.Context) error {
		return s.mailer.SendActivationCompleteEmail(ctx, user.Email, s.config.URL("/api/v1/accounts/login"))
	})
	return nil
}

// RequestPasswordReset mails a reset token to active users. It never reveals whether the email exists.
func (s *Service) RequestPasswordReset(ctx context.Context, req *PasswordResetRequest) error {
	db := s.db.WithContext(ctx)

	var user User
	err := db.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := auth.GenerateSecureToken(s.config.Tokens.Length)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	tx := db.Begin()
	if err := tx.Where("user_id = ?", user.ID).Delete(&PasswordResetToken{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete old reset tokens: %w", err)
	}
	reset := PasswordResetToken{UserID: user.ID, Token: token, ExpiresAt: s.now().Add(s.config.Tokens.Expiry)}
	if err := tx.Create(&reset).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit reset token: %w", err)
	}

	s.notify(ctx, "password_reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, user.Email, s.tokenLink("/api/v1/accounts/password-reset/complete", user.Email, token))
	})
	return nil
}

// CompletePasswordReset sets a new password when email and token match
func (s *Service) CompletePasswordReset(ctx context.Context, req *PasswordResetCompleteRequest) error {
	db := s.db.WithContext(ctx)
	invalid := apperrors.BadRequest("Invalid email or token.")

	var user User
	if err := db.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return invalid
	}

	var token PasswordResetToken
	if err := db.Where("user_id = ?", user.ID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if token.Token != req.Token || token.Expired(s.now()) {
		if err := db.Delete(&token).Error; err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to delete reset token")
		}
		return invalid
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return apperrors.BadRequest(err.Error())
	}

	tx := db.Begin()
	if err := tx.Model(&user).Update("password", hashedPassword).Error; err != nil {
		tx.Rollback()
		return apperrors.Internal("An error occurred while resetting the password.", err)
	}
	if err := tx.Delete(&token).Error; err != nil {
		tx.Rollback()
		return apperrors.Internal("An error occurred while resetting the password.", err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperrors.Internal("An error occurred while resetting the password.", err)
	}

	s.notify(ctx, "password_reset_complete", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetCompleteEmail(ctx, user.Email, s.config.URL("/api/v1/accounts/login"))
	})
	return nil
}

// Login authenticates a user and issues an access/refresh pair
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	db := s.db.WithContext(ctx)

	var user User
	if err := db.Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("Invalid email or password.")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, apperrors.Unauthorized("Invalid email or password.")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("User account is not activated.")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := s.now()
	stored := RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(refreshToken),
		ExpiresAt: now.Add(s.config.JWT.RefreshTokenExpiry),
	}
	if err := db.Create(&stored).Error; err != nil {
		return nil, apperrors.Internal("An error occurred while processing the request.", err)
	}

	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}

// Refresh issues a new access token for a stored, valid refresh token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.BadRequest("Token has expired or is invalid.")
	}

	db := s.db.WithContext(ctx)

	var stored RefreshToken
	if err := db.Where("token_hash = ?", auth.HashToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.Unauthorized("Refresh token not found.")
		}
		return "", fmt.Errorf("failed to load refresh token: %w", err)
	}

	var user User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NotFound("User not found.")
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.db.WithContext(ctx).Where("token_hash = ?", auth.HashToken(refreshToken)).Delete(&RefreshToken{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// ChangePassword changes user password after verifying current password
func (s *Service) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	db := s.db.WithContext(ctx)

	var user User
	if err := db.Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("User not found.")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.passwordManager.VerifyPassword(req.CurrentPassword, user.Password); err != nil {
		return apperrors.BadRequest("Current password is incorrect.")
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.BadRequest(err.Error())
	}

	tx := db.Begin()
	if err := tx.Model(&user).Update("password", hashedPassword).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update password: %w", err)
	}
	// other sessions must log in again
	if err := tx.Where("user_id = ?", user.ID).Delete(&RefreshToken{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return tx.Commit().Error
}

// Me returns the user with their profile
func (s *Service) Me(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *Service) tokenLink(path, emailAddr, token string) string {
	q := url.Values{}
	q.Set("email", emailAddr)
	q.Set("token", token)
	return s.config.URL(path) + "?" + q.Encode()
}

// notify runs a mail call and only logs failures; account flows never fail on email
func (s *Service) notify(ctx context.Context, kind string, send func(context.Context) error) {
	if s.mailer == nil {
		return
	}
	if err := send(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithError(err).WithField("email_type", kind).Error("Failed to queue email")
	}
}
