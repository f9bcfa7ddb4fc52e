// internal/domain/interaction/service.go
package interaction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCommentLength = 1000

// Service handles likes, ratings and comments
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new interaction service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// LikeRequest is the body of the like endpoint
type LikeRequest struct {
	LikeType LikeType `json:"like_type" binding:"required"`
}

// RatingRequest is the body of the rating endpoint
type RatingRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// CommentRequest is the body of the comment endpoint
type CommentRequest struct {
	Text     string `json:"text" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

func (s *Service) requireMovie(db *gorm.DB, movieID uint) error {
	ok, err := movie.Exists(db, movieID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Movie not found.")
	}
	return nil
}

// SetLike records a like or dislike. Switching type updates the row;
// repeating the same type is a conflict.
func (s *Service) SetLike(ctx context.Context, userID, movieID uint, likeType LikeType) (*MovieLike, error) {
	if !likeType.Valid() {
		return nil, apperrors.BadRequest("like_type must be one of: like, dislike")
	}

	db := s.db.WithContext(ctx)
	if err := s.requireMovie(db, movieID); err != nil {
		return nil, err
	}

	var existing MovieLike
	err := db.Where("user_id = ? AND movie_id = ?", userID, movieID).First(&existing).Error
	switch {
	case err == nil:
		if existing.LikeType == likeType {
			if likeType == LikeTypeLike {
				return nil, apperrors.Conflict("You have already liked this movie.")
			}
			return nil, apperrors.Conflict("You have already disliked this movie.")
		}
		if err := db.Model(&existing).Update("like_type", likeType).Error; err != nil {
			return nil, fmt.Errorf("failed to update like: %w", err)
		}
		return &existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load like: %w", err)
	}

	like := MovieLike{UserID: userID, MovieID: movieID, LikeType: likeType}
	if err := db.Create(&like).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("You have already reacted to this movie.")
		}
		return nil, fmt.Errorf("failed to create like: %w", err)
	}
	return &like, nil
}

// RemoveLike deletes the user's like or dislike
func (s *Service) RemoveLike(ctx context.Context, userID, movieID uint) error {
	result := s.db.WithContext(ctx).Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(&MovieLike{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("You have not liked or disliked this movie.")
	}
	return nil
}

// Rate stores or replaces the user's rating
func (s *Service) Rate(ctx context.Context, userID, movieID uint, rating int) (*MovieRating, error) {
	if rating < 1 || rating > 10 {
		return nil, apperrors.BadRequest("Rating must be an integer between 1 and 10")
	}

	db := s.db.WithContext(ctx)
	if err := s.requireMovie(db, movieID); err != nil {
		return nil, err
	}

	row := MovieRating{UserID: userID, MovieID: movieID, Rating: rating}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}
	return &row, nil
}

// AddComment posts a comment or a reply on a movie
func (s *Service) AddComment(ctx context.Context, userID, movieID uint, req *CommentRequest) (*MovieComment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" || utf8.RuneCountInString(text) > maxCommentLength {
		return nil, apperrors.BadRequest(fmt.Sprintf("Comment text must be between 1 and %d characters.", maxCommentLength))
	}

	db := s.db.WithContext(ctx)
	if err := s.requireMovie(db, movieID); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.findComment(db, *req.ParentID)
		if err != nil {
			if apperrors.Is(err, http.StatusNotFound) {
				return nil, apperrors.NotFound("Parent comment not found.")
			}
			return nil, err
		}
		if parent.MovieID != movieID {
			return nil, apperrors.BadRequest("Parent comment belongs to another movie.")
		}
		if parent.ParentID != nil {
			return nil, apperrors.BadRequest("Replies can only be added to top-level comments.")
		}
	}

	comment := MovieComment{UserID: userID, MovieID: movieID, ParentID: req.ParentID, Text: text}
	if err := db.Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &comment, nil
}

// ListComments returns top-level comments with their replies and like
// counts. viewerID 0 means an anonymous reader.
func (s *Service) ListComments(ctx context.Context, movieID, viewerID uint) ([]MovieComment, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireMovie(db, movieID); err != nil {
		return nil, err
	}

	var comments []MovieComment
	err := db.
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("movie_id = ? AND parent_id IS NULL", movieID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve comments: %w", err)
	}

	var ids []uint
	for _, c := range comments {
		ids = append(ids, c.ID)
		for _, r := range c.Replies {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return comments, nil
	}

	counts, liked, err := s.commentLikes(db, ids, viewerID)
	if err != nil {
		return nil, err
	}

	for i := range comments {
		comments[i].LikesCount = counts[comments[i].ID]
		comments[i].IsLikedByUser = liked[comments[i].ID]
		for j := range comments[i].Replies {
			reply := &comments[i].Replies[j]
			reply.LikesCount = counts[reply.ID]
			reply.IsLikedByUser = liked[reply.ID]
		}
	}
	return comments, nil
}

func (s *Service) commentLikes(db *gorm.DB, ids []uint, viewerID uint) (map[uint]int64, map[uint]bool, error) {
	var rows []struct {
		CommentID uint
		Total     int64
	}
	err := db.Model(&CommentLike{}).
		Select("comment_id, COUNT(*) AS total").
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count comment likes: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.CommentID] = r.Total
	}

	liked := make(map[uint]bool)
	if viewerID == 0 {
		return counts, liked, nil
	}

	var likedIDs []uint
	err = db.Model(&CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", viewerID, ids).
		Pluck("comment_id", &likedIDs).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load viewer likes: %w", err)
	}
	for _, id := range likedIDs {
		liked[id] = true
	}
	return counts, liked, nil
}

// DeleteComment removes a comment and its replies
func (s *Service) DeleteComment(ctx context.Context, actor auth.Actor, commentID uint) error {
	db := s.db.WithContext(ctx)

	comment, err := s.findComment(db, commentID)
	if err != nil {
		return err
	}
	if !actor.Owns(comment.UserID) && !actor.Can(auth.ActionModerate) {
		return apperrors.Forbidden("You don't have permission to delete this comment.")
	}

	if err := db.Delete(&MovieComment{}, commentID).Error; err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"comment_id": commentID,
		"actor_id":   actor.UserID,
	}).Info("Comment deleted")
	return nil
}

// LikeComment records a like of a comment
func (s *Service) LikeComment(ctx context.Context, userID, commentID uint) (*CommentLike, error) {
	db := s.db.WithContext(ctx)

	if _, err := s.findComment(db, commentID); err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&CommentLike{}).Where("user_id = ? AND comment_id = ?", userID, commentID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check comment like: %w", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("You have already liked this comment.")
	}

	like := CommentLike{UserID: userID, CommentID: commentID}
	if err := db.Create(&like).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("You have already liked this comment.")
		}
		return nil, fmt.Errorf("failed to like comment: %w", err)
	}
	return &like, nil
}

// UnlikeComment removes the user's like of a comment
func (s *Service) UnlikeComment(ctx context.Context, userID, commentID uint) error {
	db := s.db.WithContext(ctx)

	if _, err := s.findComment(db, commentID); err != nil {
		return err
	}

	result := db.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&CommentLike{})
	if result.Error != nil {
		return fmt.Errorf("failed to unlike comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("You have not liked this comment.")
	}
	return nil
}

func (s *Service) findComment(db *gorm.DB, id uint) (*MovieComment, error) {
	var comment MovieComment
	if err := db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Comment not found.")
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return &comment, nil
}
