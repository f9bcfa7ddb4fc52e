// internal/domain/interaction/entity.go
package interaction

import (
	"time"

	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/user"
)

// LikeType distinguishes likes from dislikes
type LikeType string

const (
	LikeTypeLike    LikeType = "like"
	LikeTypeDislike LikeType = "dislike"
)

// Valid reports whether t is a known like type
func (t LikeType) Valid() bool {
	return t == LikeTypeLike || t == LikeTypeDislike
}

// MovieLike is one user's like or dislike of a movie
type MovieLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_movie_like_user_movie" json:"user_id"`
	MovieID   uint      `gorm:"not null;uniqueIndex:idx_movie_like_user_movie;index" json:"movie_id"`
	LikeType  LikeType  `gorm:"type:varchar(10);not null" json:"like_type"`
	CreatedAt time.Time `json:"created_at"`

	User  *user.User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Movie *movie.Movie `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// MovieRating is one user's 1..10 score of a movie
type MovieRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_movie_rating_user_movie" json:"user_id"`
	MovieID   uint      `gorm:"not null;uniqueIndex:idx_movie_rating_user_movie;index" json:"movie_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 10" json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  *user.User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Movie *movie.Movie `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// MovieComment is a comment or a reply to one
type MovieComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	MovieID   uint      `gorm:"not null;index" json:"movie_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Derived
	LikesCount    int64          `gorm:"-" json:"likes_count"`
	IsLikedByUser bool           `gorm:"-" json:"is_liked_by_user"`
	Replies       []MovieComment `gorm:"foreignKey:ParentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"replies,omitempty"`

	User  *user.User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Movie *movie.Movie `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// CommentLike is one user's like of a comment
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_user_comment;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`

	User    *user.User    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Comment *MovieComment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// TableName returns the table name for MovieLike
func (MovieLike) TableName() string {
	return "movie_likes"
}

// TableName returns the table name for MovieRating
func (MovieRating) TableName() string {
	return "movie_ratings"
}

// TableName returns the table name for MovieComment
func (MovieComment) TableName() string {
	return "movie_comments"
}

// TableName returns the table name for CommentLike
func (CommentLike) TableName() string {
	return "comment_likes"
}
