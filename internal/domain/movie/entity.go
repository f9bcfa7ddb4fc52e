// internal/domain/movie/entity.go
package movie

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Genre represents a movie genre
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:255" json:"name"`
}

// Star represents an actor
type Star struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:255" json:"name"`
}

// Director represents a movie director
type Director struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:255" json:"name"`
}

// Certification represents an age rating such as PG-13
type Certification struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;size:64" json:"name"`
}

// Movie represents a purchasable movie
type Movie struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name            string          `gorm:"not null;size:255;uniqueIndex:idx_movie_name_year_time" json:"name"`
	Year            int             `gorm:"not null;uniqueIndex:idx_movie_name_year_time" json:"year"`
	Time            int             `gorm:"not null;uniqueIndex:idx_movie_name_year_time" json:"time"` // minutes
	IMDb            float64         `gorm:"column:imdb;not null" json:"imdb"`
	Votes           int             `gorm:"not null" json:"votes"`
	MetaScore       *float64        `json:"meta_score"`
	Gross           *float64        `json:"gross"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	CertificationID uint            `gorm:"not null;index" json:"certification_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relationships
	Certification *Certification `gorm:"foreignKey:CertificationID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"certification,omitempty"`
	Genres        []Genre        `gorm:"many2many:movie_genres;constraint:OnDelete:CASCADE;" json:"genres"`
	Directors     []Director     `gorm:"many2many:movie_directors;constraint:OnDelete:CASCADE;" json:"directors"`
	Stars         []Star         `gorm:"many2many:movie_stars;constraint:OnDelete:CASCADE;" json:"stars"`
}

// MovieDetail is a movie with its social counters
type MovieDetail struct {
	Movie
	Likes         int64   `json:"likes"`
	Dislikes      int64   `json:"dislikes"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
}

// TableName returns the table name for Genre
func (Genre) TableName() string {
	return "genres"
}

// TableName returns the table name for Star
func (Star) TableName() string {
	return "stars"
}

// TableName returns the table name for Director
func (Director) TableName() string {
	return "directors"
}

// TableName returns the table name for Certification
func (Certification) TableName() string {
	return "certifications"
}

// TableName returns the table name for Movie
func (Movie) TableName() string {
	return "movies"
}

// BeforeCreate assigns the public identifier
func (m *Movie) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	return nil
}
