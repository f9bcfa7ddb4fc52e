package favorite

import (
	"context"
	"fmt"

	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Service handles favorites business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new favorites service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// FavoriteListResponse represents a page of favorites
type FavoriteListResponse struct {
	Favorites []MovieFavorite `json:"favorites"`
	pagination.Result
}

// Add saves a movie to the user's favorites
func (s *Service) Add(ctx context.Context, userID, movieID uint) (*MovieFavorite, error) {
	db := s.db.WithContext(ctx)

	ok, err := movie.Exists(db, movieID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("Movie not found.")
	}

	favorite, err := s.IsFavorite(ctx, userID, movieID)
	if err != nil {
		return nil, err
	}
	if favorite {
		return nil, apperrors.Conflict("You have already added this movie to favorites.")
	}

	item := MovieFavorite{UserID: userID, MovieID: movieID}
	if err := db.Create(&item).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("You have already added this movie to favorites.")
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return &item, nil
}

// Remove deletes a movie from the user's favorites
func (s *Service) Remove(ctx context.Context, userID, movieID uint) error {
	result := s.db.WithContext(ctx).Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(&MovieFavorite{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("Movie is not in your favorites.")
	}
	return nil
}

// List returns the user's favorites newest first
func (s *Service) List(ctx context.Context, userID uint, page pagination.Params) (*FavoriteListResponse, error) {
	query := s.db.WithContext(ctx).Model(&MovieFavorite{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}

	var items []MovieFavorite
	err := query.
		Preload("Movie").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve favorites: %w", err)
	}

	return &FavoriteListResponse{
		Favorites: items,
		Result:    pagination.Build("/api/v1/favorites", page, total, nil),
	}, nil
}

// IsFavorite reports whether the movie is in the user's favorites
func (s *Service) IsFavorite(ctx context.Context, userID, movieID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&MovieFavorite{}).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}
