// internal/domain/movie/service.go
package movie

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/money"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// PaymentStatusSuccessful mirrors the settled payment status. The payment
// package owns the enum; the catalog only needs the literal for joins.
const PaymentStatusSuccessful = "SUCCESSFUL"

// purchasedMovieIDs selects the movies covered by a user's settled payments
const purchasedMovieIDs = `SELECT oi.movie_id FROM order_items oi
	JOIN payments p ON p.order_id = oi.order_id
	WHERE p.user_id = ? AND p.status = ?`

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new movie service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// MovieListRequest represents catalog query filters
type MovieListRequest struct {
	Year          int    `form:"year"`
	Genre         uint   `form:"genre"`
	Director      uint   `form:"director"`
	Star          uint   `form:"star"`
	Certification uint   `form:"certification"`
	Search        string `form:"search"`
	SortBy        string `form:"sort_by"`
	SortOrder     string `form:"sort_order"`
}

// MovieListResponse represents a page of movies
type MovieListResponse struct {
	Movies []Movie `json:"movies"`
	pagination.Result
}

// MovieRequest represents the create payload
type MovieRequest struct {
	Name            string          `json:"name" binding:"required,max=255"`
	Year            int             `json:"year" binding:"required"`
	Time            int             `json:"time" binding:"required"`
	IMDb            float64         `json:"imdb"`
	Votes           int             `json:"votes"`
	MetaScore       *float64        `json:"meta_score"`
	Gross           *float64        `json:"gross"`
	Description     string          `json:"description" binding:"required"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	CertificationID uint            `json:"certification_id" binding:"required"`
	GenreIDs        []uint          `json:"genre_ids"`
	DirectorIDs     []uint          `json:"director_ids"`
	StarIDs         []uint          `json:"star_ids"`
}

// MovieUpdateRequest represents a partial update
type MovieUpdateRequest struct {
	Name            *string          `json:"name"`
	Year            *int             `json:"year"`
	Time            *int             `json:"time"`
	IMDb            *float64         `json:"imdb"`
	Votes           *int             `json:"votes"`
	MetaScore       *float64         `json:"meta_score"`
	Gross           *float64         `json:"gross"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	CertificationID *uint            `json:"certification_id"`
	GenreIDs        []uint           `json:"genre_ids"`
	DirectorIDs     []uint           `json:"director_ids"`
	StarIDs         []uint           `json:"star_ids"`
}

func validateFields(year, minutes int, imdb float64, votes int, price decimal.Decimal, now time.Time) error {
	if year < 1888 || year > now.Year()+5 {
		return apperrors.BadRequest("Year must be between 1888 and " + strconv.Itoa(now.Year()+5) + ".")
	}
	if minutes <= 0 {
		return apperrors.BadRequest("Time must be a positive number of minutes.")
	}
	if imdb < 0 || imdb > 10 {
		return apperrors.BadRequest("IMDb rating must be between 0 and 10.")
	}
	if votes < 0 {
		return apperrors.BadRequest("Votes cannot be negative.")
	}
	if !money.ValidPrice(price) {
		return apperrors.BadRequest("Price must be non-negative with at most two decimal places.")
	}
	return nil
}

var movieSortColumns = map[string]string{
	"price": "price",
	"year":  "year",
	"imdb":  "imdb",
	"votes": "votes",
	"name":  "name",
}

// ListMovies retrieves movies with filtering and pagination
func (s *Service) ListMovies(ctx context.Context, req *MovieListRequest, page pagination.Params) (*MovieListResponse, error) {
	query := s.db.WithContext(ctx).Model(&Movie{})
	extra := url.Values{}

	if req.Year > 0 {
		query = query.Where("year = ?", req.Year)
		extra.Set("year", strconv.Itoa(req.Year))
	}
	if req.Genre > 0 {
		query = query.Where("id IN (SELECT movie_id FROM movie_genres WHERE genre_id = ?)", req.Genre)
		extra.Set("genre", strconv.FormatUint(uint64(req.Genre), 10))
	}
	if req.Director > 0 {
		query = query.Where("id IN (SELECT movie_id FROM movie_directors WHERE director_id = ?)", req.Director)
		extra.Set("director", strconv.FormatUint(uint64(req.Director), 10))
	}
	if req.Star > 0 {
		query = query.Where("id IN (SELECT movie_id FROM movie_stars WHERE star_id = ?)", req.Star)
		extra.Set("star", strconv.FormatUint(uint64(req.Star), 10))
	}
	if req.Certification > 0 {
		query = query.Where("certification_id = ?", req.Certification)
		extra.Set("certification", strconv.FormatUint(uint64(req.Certification), 10))
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
		extra.Set("search", req.Search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}

	column, ok := movieSortColumns[req.SortBy]
	if !ok {
		column = "id"
	} else {
		extra.Set("sort_by", req.SortBy)
	}
	direction := "ASC"
	if strings.EqualFold(req.SortOrder, "desc") {
		direction = "DESC"
		extra.Set("sort_order", "desc")
	}

	var movies []Movie
	err := query.
		Preload("Certification").
		Preload("Genres").
		Preload("Directors").
		Preload("Stars").
		Order(column + " " + direction).
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve movies: %w", err)
	}

	if len(movies) == 0 {
		return nil, apperrors.NotFound("No movies found.")
	}

	return &MovieListResponse{
		Movies: movies,
		Result: pagination.Build("/api/v1/movies", page, total, extra),
	}, nil
}

// GetMovie retrieves a movie with metadata and social counters
func (s *Service) GetMovie(ctx context.Context, id uint) (*MovieDetail, error) {
	db := s.db.WithContext(ctx)

	movie, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	detail := MovieDetail{Movie: *movie}

	var likes struct {
		Likes    int64
		Dislikes int64
	}
	err = db.Raw(`SELECT
			COUNT(*) FILTER (WHERE like_type = 'like') AS likes,
			COUNT(*) FILTER (WHERE like_type = 'dislike') AS dislikes
		FROM movie_likes WHERE movie_id = ?`, id).Scan(&likes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	detail.Likes = likes.Likes
	detail.Dislikes = likes.Dislikes

	var ratings struct {
		Average float64
		Total   int64
	}
	err = db.Raw(`SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total
		FROM movie_ratings WHERE movie_id = ?`, id).Scan(&ratings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	detail.AverageRating = ratings.Average
	detail.RatingsCount = ratings.Total

	return &detail, nil
}

// Exists reports whether the movie id is in the catalog
func Exists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&Movie{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check movie: %w", err)
	}
	return count > 0, nil
}

// IsPurchased reports whether userID holds a settled payment covering movieID
func IsPurchased(db *gorm.DB, userID, movieID uint) (bool, error) {
	var count int64
	err := db.Model(&Movie{}).
		Where("id = ? AND id IN ("+purchasedMovieIDs+")", movieID, userID, PaymentStatusSuccessful).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check purchases: %w", err)
	}
	return count > 0, nil
}

// PurchasedMovies lists the movies a user has paid for
func (s *Service) PurchasedMovies(ctx context.Context, userID uint) ([]Movie, error) {
	var movies []Movie
	err := s.db.WithContext(ctx).
		Preload("Certification").
		Preload("Genres").
		Where("id IN ("+purchasedMovieIDs+")", userID, PaymentStatusSuccessful).
		Order("name ASC").
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve purchased movies: %w", err)
	}
	return movies, nil
}

// CreateMovie adds a movie to the catalog
func (s *Service) CreateMovie(ctx context.Context, actor auth.Actor, req *MovieRequest) (*Movie, error) {
	if !actor.Can(auth.ActionManageCatalog) {
		return nil, apperrors.Forbidden("You don't have permission to manage movies.")
	}
	if err := validateFields(req.Year, req.Time, req.IMDb, req.Votes, req.Price, time.Now()); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	if err := s.ensureUnique(db, req.Name, req.Year, req.Time, 0); err != nil {
		return nil, err
	}

	movie := Movie{
		Name:            req.Name,
		Year:            req.Year,
		Time:            req.Time,
		IMDb:            req.IMDb,
		Votes:           req.Votes,
		MetaScore:       req.MetaScore,
		Gross:           req.Gross,
		Description:     req.Description,
		Price:           req.Price,
		CertificationID: req.CertificationID,
	}
	if err := s.resolveMetadata(db, &movie, req.CertificationID, req.GenreIDs, req.DirectorIDs, req.StarIDs); err != nil {
		return nil, err
	}

	if err := db.Omit("Certification", "Genres.*", "Directors.*", "Stars.*").Create(&movie).Error; err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, duplicateMovie(req.Name, req.Year, req.Time)
		}
		return nil, fmt.Errorf("failed to create movie: %w", err)
	}

	return &movie, nil
}

// UpdateMovie applies a partial update
func (s *Service) UpdateMovie(ctx context.Context, actor auth.Actor, id uint, req *MovieUpdateRequest) (*Movie, error) {
	if !actor.Can(auth.ActionManageCatalog) {
		return nil, apperrors.Forbidden("You don't have permission to manage movies.")
	}

	db := s.db.WithContext(ctx)

	movie, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		movie.Name = *req.Name
		updates["name"] = *req.Name
	}
	if req.Year != nil {
		movie.Year = *req.Year
		updates["year"] = *req.Year
	}
	if req.Time != nil {
		movie.Time = *req.Time
		updates["time"] = *req.Time
	}
	if req.IMDb != nil {
		movie.IMDb = *req.IMDb
		updates["imdb"] = *req.IMDb
	}
	if req.Votes != nil {
		movie.Votes = *req.Votes
		updates["votes"] = *req.Votes
	}
	if req.MetaScore != nil {
		updates["meta_score"] = *req.MetaScore
	}
	if req.Gross != nil {
		updates["gross"] = *req.Gross
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		movie.Price = *req.Price
		updates["price"] = *req.Price
	}

	if err := validateFields(movie.Year, movie.Time, movie.IMDb, movie.Votes, movie.Price, time.Now()); err != nil {
		return nil, err
	}
	if req.Name != nil || req.Year != nil || req.Time != nil {
		if err := s.ensureUnique(db, movie.Name, movie.Year, movie.Time, movie.ID); err != nil {
			return nil, err
		}
	}

	certID := movie.CertificationID
	if req.CertificationID != nil {
		certID = *req.CertificationID
		updates["certification_id"] = certID
	}
	if err := s.resolveMetadata(db, movie, certID, req.GenreIDs, req.DirectorIDs, req.StarIDs); err != nil {
		return nil, err
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if len(updates) > 0 {
		if err := tx.Model(&Movie{ID: movie.ID}).Updates(updates).Error; err != nil {
			tx.Rollback()
			if apperrors.IsUniqueViolation(err) {
				return nil, duplicateMovie(movie.Name, movie.Year, movie.Time)
			}
			return nil, fmt.Errorf("failed to update movie: %w", err)
		}
	}

	replace := []struct {
		name   string
		given  bool
		values interface{}
	}{
		{"Genres", req.GenreIDs != nil, movie.Genres},
		{"Directors", req.DirectorIDs != nil, movie.Directors},
		{"Stars", req.StarIDs != nil, movie.Stars},
	}
	for _, r := range replace {
		if !r.given {
			continue
		}
		if err := tx.Model(&Movie{ID: movie.ID}).Association(r.name).Replace(r.values); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update %s: %w", strings.ToLower(r.name), err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit movie update: %w", err)
	}

	return s.load(db, id)
}

// DeleteMovie removes a movie that was never ordered
func (s *Service) DeleteMovie(ctx context.Context, actor auth.Actor, id uint) error {
	if !actor.Can(auth.ActionManageCatalog) {
		return apperrors.Forbidden("You don't have permission to manage movies.")
	}

	db := s.db.WithContext(ctx)

	ok, err := Exists(db, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Movie not found.")
	}

	var ordered int64
	if err := db.Table("order_items").Where("movie_id = ?", id).Count(&ordered).Error; err != nil {
		return fmt.Errorf("failed to check order items: %w", err)
	}
	if ordered > 0 {
		return apperrors.Conflict("Movie cannot be deleted because it has been ordered.")
	}

	if err := db.Select("Genres", "Directors", "Stars").Delete(&Movie{ID: id}).Error; err != nil {
		if apperrors.IsIntegrityViolation(err) {
			return apperrors.Conflict("Movie cannot be deleted because it has been ordered.")
		}
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	return nil
}

func (s *Service) load(db *gorm.DB, id uint) (*Movie, error) {
	var movie Movie
	err := db.
		Preload("Certification").
		Preload("Genres").
		Preload("Directors").
		Preload("Stars").
		First(&movie, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Movie not found.")
		}
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}
	return &movie, nil
}

func (s *Service) ensureUnique(db *gorm.DB, name string, year, minutes int, exceptID uint) error {
	var count int64
	query := db.Model(&Movie{}).Where("name = ? AND year = ? AND time = ?", name, year, minutes)
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check movie uniqueness: %w", err)
	}
	if count > 0 {
		return duplicateMovie(name, year, minutes)
	}
	return nil
}

// resolveMetadata loads the referenced metadata rows onto movie. Nil id
// slices leave the current associations untouched.
func (s *Service) resolveMetadata(db *gorm.DB, movie *Movie, certificationID uint, genreIDs, directorIDs, starIDs []uint) error {
	var cert Certification
	if err := db.First(&cert, certificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.BadRequest("Certification not found.")
		}
		return fmt.Errorf("failed to load certification: %w", err)
	}
	movie.Certification = &cert

	if genreIDs != nil {
		genres := []Genre{}
		if err := findAll(db, &genres, genreIDs, "Genre"); err != nil {
			return err
		}
		movie.Genres = genres
	}
	if directorIDs != nil {
		directors := []Director{}
		if err := findAll(db, &directors, directorIDs, "Director"); err != nil {
			return err
		}
		movie.Directors = directors
	}
	if starIDs != nil {
		stars := []Star{}
		if err := findAll(db, &stars, starIDs, "Star"); err != nil {
			return err
		}
		movie.Stars = stars
	}
	return nil
}

func findAll(db *gorm.DB, dest interface{}, ids []uint, kind string) error {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil
	}
	result := db.Where("id IN ?", unique).Find(dest)
	if result.Error != nil {
		return fmt.Errorf("failed to load %s ids: %w", strings.ToLower(kind), result.Error)
	}
	if result.RowsAffected != int64(len(unique)) {
		return apperrors.BadRequest(fmt.Sprintf("One or more %s ids do not exist.", strings.ToLower(kind)))
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func duplicateMovie(name string, year, minutes int) error {
	return apperrors.Conflict(fmt.Sprintf(
		"A movie with the name '%s', release year '%d' and duration '%d' already exists.", name, year, minutes))
}
