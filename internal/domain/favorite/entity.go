package favorite

import (
	"time"

	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/user"
)

// MovieFavorite represents a movie saved to a user's favorites
type MovieFavorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_movie" json:"user_id"`
	MovieID   uint      `gorm:"not null;uniqueIndex:idx_favorite_user_movie;index" json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	User  *user.User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Movie *movie.Movie `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"movie,omitempty"`
}

// TableName returns the table name for MovieFavorite
func (MovieFavorite) TableName() string {
	return "movie_favorites"
}
