// internal/domain/movie/metadata_service.go
package movie

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Kind identifies one of the metadata dictionaries
type Kind string

const (
	KindGenre         Kind = "genre"
	KindStar          Kind = "star"
	KindDirector      Kind = "director"
	KindCertification Kind = "certification"
)

type kindInfo struct {
	table string
	label string
	// join counts movies per entry; empty for certifications which live on movies
	join   string
	column string
}

var kinds = map[Kind]kindInfo{
	KindGenre:         {table: "genres", label: "Genre", join: "movie_genres", column: "genre_id"},
	KindStar:          {table: "stars", label: "Star", join: "movie_stars", column: "star_id"},
	KindDirector:      {table: "directors", label: "Director", join: "movie_directors", column: "director_id"},
	KindCertification: {table: "certifications", label: "Certification"},
}

// MetadataItem is a row of any metadata dictionary
type MetadataItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `json:"name"`
	MovieCount *int64 `gorm:"-" json:"movie_count,omitempty"`
}

// MetadataRequest is the create/update payload
type MetadataRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// MetadataService manages genres, stars, directors and certifications
type MetadataService struct {
	db     *gorm.DB
	config *config.Config
}

// NewMetadataService creates a new metadata service
func NewMetadataService(db *gorm.DB, cfg *config.Config) *MetadataService {
	return &MetadataService{
		db:     db,
		config: cfg,
	}
}

func lookup(kind Kind) (kindInfo, error) {
	info, ok := kinds[kind]
	if !ok {
		return kindInfo{}, apperrors.NotFound("Unknown metadata kind.")
	}
	return info, nil
}

// List returns every entry of kind ordered by name. Genres carry movie counts.
func (s *MetadataService) List(ctx context.Context, kind Kind) ([]MetadataItem, error) {
	info, err := lookup(kind)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	if kind == KindGenre {
		var rows []struct {
			ID         uint
			Name       string
			MovieCount int64
		}
		err := db.Table(info.table).
			Select(info.table + ".id, " + info.table + ".name, COUNT(" + info.join + ".movie_id) AS movie_count").
			Joins("LEFT JOIN " + info.join + " ON " + info.join + "." + info.column + " = " + info.table + ".id").
			Group(info.table + ".id").
			Order(info.table + ".name ASC").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
		}

		items := make([]MetadataItem, 0, len(rows))
		for _, r := range rows {
			count := r.MovieCount
			items = append(items, MetadataItem{ID: r.ID, Name: r.Name, MovieCount: &count})
		}
		return items, nil
	}

	var items []MetadataItem
	if err := db.Table(info.table).Order("name ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	return items, nil
}

// Create adds a new entry
func (s *MetadataService) Create(ctx context.Context, actor auth.Actor, kind Kind, req *MetadataRequest) (*MetadataItem, error) {
	info, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	if !actor.Can(auth.ActionManageMetadata) {
		return nil, apperrors.Forbidden(fmt.Sprintf("Only administrators can create %ss.", kind))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest(info.label + " name cannot be empty.")
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureNameFree(db, info, name, 0); err != nil {
		return nil, err
	}

	item := MetadataItem{Name: name}
	if err := db.Table(info.table).Create(&item).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.BadRequest(info.label + " with this name already exists")
		}
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	return &item, nil
}

// Update renames an entry
func (s *MetadataService) Update(ctx context.Context, actor auth.Actor, kind Kind, id uint, req *MetadataRequest) (*MetadataItem, error) {
	info, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	if !actor.Can(auth.ActionManageMetadata) {
		return nil, apperrors.Forbidden(fmt.Sprintf("Only administrators can update %ss.", kind))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest(info.label + " name cannot be empty.")
	}

	db := s.db.WithContext(ctx)
	item, err := s.find(db, info, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(db, info, name, id); err != nil {
		return nil, err
	}

	if err := db.Table(info.table).Where("id = ?", id).Update("name", name).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.BadRequest(info.label + " with this name already exists")
		}
		return nil, fmt.Errorf("failed to update %s: %w", kind, err)
	}
	item.Name = name
	return item, nil
}

// Delete removes an entry. Movie links are removed by the join table
// cascade; certifications still referenced by movies are refused.
func (s *MetadataService) Delete(ctx context.Context, actor auth.Actor, kind Kind, id uint) error {
	info, err := lookup(kind)
	if err != nil {
		return err
	}
	if !actor.Can(auth.ActionManageMetadata) {
		return apperrors.Forbidden(fmt.Sprintf("Only administrators can delete %ss.", kind))
	}

	db := s.db.WithContext(ctx)
	if _, err := s.find(db, info, id); err != nil {
		return err
	}

	if kind == KindCertification {
		var used int64
		if err := db.Model(&Movie{}).Where("certification_id = ?", id).Count(&used).Error; err != nil {
			return fmt.Errorf("failed to check certification usage: %w", err)
		}
		if used > 0 {
			return apperrors.Conflict("Certification is assigned to movies and cannot be deleted.")
		}
	}

	if err := db.Table(info.table).Where("id = ?", id).Delete(&MetadataItem{}).Error; err != nil {
		if apperrors.IsIntegrityViolation(err) {
			return apperrors.Conflict(info.label + " is in use and cannot be deleted.")
		}
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	return nil
}

func (s *MetadataService) find(db *gorm.DB, info kindInfo, id uint) (*MetadataItem, error) {
	var item MetadataItem
	if err := db.Table(info.table).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(info.label + " not found")
		}
		return nil, fmt.Errorf("failed to load %s: %w", strings.ToLower(info.label), err)
	}
	return &item, nil
}

func (s *MetadataService) ensureNameFree(db *gorm.DB, info kindInfo, name string, exceptID uint) error {
	var count int64
	query := db.Table(info.table).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s name: %w", strings.ToLower(info.label), err)
	}
	if count > 0 {
		return apperrors.BadRequest(info.label + " with this name already exists")
	}
	return nil
}
