// internal/domain/user/profile_service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/storage"
	"gorm.io/gorm"
)

// ProfileService manages user profiles and avatars
type ProfileService struct {
	db      *gorm.DB
	config  *config.Config
	logger  *logrus.Logger
	storage storage.Storage
}

// NewProfileService creates a new profile service
func NewProfileService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, store storage.Storage) *ProfileService {
	return &ProfileService{db: db, config: cfg, logger: logger, storage: store}
}

// ProfileRequest is the multipart form of the create-profile endpoint
type ProfileRequest struct {
	FirstName   string `form:"first_name" binding:"required,max=100"`
	LastName    string `form:"last_name" binding:"required,max=100"`
	Gender      string `form:"gender" binding:"required"`
	DateOfBirth string `form:"date_of_birth" binding:"required"`
	Info        string `form:"info" binding:"required"`
}

// Validate checks field formats and returns the parsed gender and birth date
func (r *ProfileRequest) Validate(now time.Time) (Gender, time.Time, error) {
	for _, name := range []string{r.FirstName, r.LastName} {
		for _, c := range name {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
				return "", time.Time{}, fmt.Errorf("%s contains non-english letters", name)
			}
		}
	}

	gender := Gender(strings.ToLower(r.Gender))
	if gender != GenderMan && gender != GenderWoman {
		return "", time.Time{}, fmt.Errorf("gender must be one of: man, woman")
	}

	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("date_of_birth must be YYYY-MM-DD")
	}
	if dob.Year() < 1900 {
		return "", time.Time{}, fmt.Errorf("invalid birth date - year must be greater than 1900")
	}
	if dob.AddDate(18, 0, 0).After(now) {
		return "", time.Time{}, fmt.Errorf("you must be at least 18 years old to be a user")
	}

	if strings.TrimSpace(r.Info) == "" {
		return "", time.Time{}, fmt.Errorf("info field cannot be empty or contain only spaces")
	}
	return gender, dob, nil
}

// CreateProfile creates the profile of userID and uploads the avatar
func (s *ProfileService) CreateProfile(ctx context.Context, actor auth.Actor, userID uint, req *ProfileRequest, avatar *multipart.FileHeader) (*Profile, error) {
	if !actor.Owns(userID) && !actor.Can(auth.ActionEditAnyProfile) {
		return nil, apperrors.Forbidden("You don't have permission to edit this profile.")
	}

	db := s.db.WithContext(ctx)

	var user User
	if err := db.Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthorized("User not found or not active.")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var existing int64
	if err := db.Model(&Profile{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}
	if existing > 0 {
		return nil, apperrors.BadRequest("User already has a profile.")
	}

	gender, dob, err := req.Validate(time.Now())
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	contentType, err := storage.ValidateImage(avatar, s.config.Upload)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	key := storage.AvatarKey(s.config.External.Storage.AvatarPrefix, userID, avatar.Filename)
	avatarURL, err := s.upload(ctx, key, avatar, contentType)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Avatar upload failed")
		return nil, apperrors.Internal("Failed to upload avatar. Please try again later.", err)
	}

	profile := Profile{
		UserID:      userID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      &gender,
		DateOfBirth: &dob,
		Info:        req.Info,
		Avatar:      avatarURL,
	}
	if err := db.Create(&profile).Error; err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.WithError(delErr).WithField("key", key).Warn("Failed to remove orphaned avatar")
		}
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.BadRequest("User already has a profile.")
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return &profile, nil
}

func (s *ProfileService) upload(ctx context.Context, key string, header *multipart.FileHeader, contentType string) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	return s.storage.Upload(ctx, key, file, header.Size, contentType)
}

// GetProfile returns the profile of userID
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	var profile Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Profile not found.")
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}
