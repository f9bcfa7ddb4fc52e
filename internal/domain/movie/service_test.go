package movie

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	admin     = auth.Actor{UserID: 1, Role: auth.RoleAdmin}
	moderator = auth.Actor{UserID: 2, Role: auth.RoleModerator}
	member    = auth.Actor{UserID: 3, Role: auth.RoleUser}
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Name: "cinema", BaseURL: "http://localhost:8080"}}
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func validRequest() *MovieRequest {
	return &MovieRequest{
		Name:            "Heat",
		Year:            1995,
		Time:            170,
		IMDb:            8.3,
		Votes:           600000,
		Description:     "A group of professional bank robbers.",
		Price:           decimal.RequireFromString("9.99"),
		CertificationID: 1,
	}
}

func TestListMovies_Empty(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.ListMovies(context.Background(), &MovieListRequest{}, pagination.Params{Page: 1, PerPage: 10})
	assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
	assert.Equal(t, "No movies found.", apperrors.Message(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestListMovies_PageLinks(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	sqlMock.MatchExpectationsInOrder(false)
	svc := NewService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(3))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "year", "time", "price", "certification_id"}).
			AddRow(2, "Heat", 1995, 170, "9.99", 1))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "certifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "R"))
	for _, join := range []string{"movie_directors", "movie_genres", "movie_stars"} {
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "` + join + `"`)).
			WillReturnRows(sqlmock.NewRows([]string{"movie_id"}))
	}

	req := &MovieListRequest{Year: 1995, SortBy: "price", SortOrder: "desc"}
	resp, err := svc.ListMovies(context.Background(), req, pagination.Params{Page: 2, PerPage: 1})
	require.NoError(t, err)

	require.Len(t, resp.Movies, 1)
	assert.Equal(t, "9.99", resp.Movies[0].Price.StringFixed(2))
	require.NotNil(t, resp.Movies[0].Certification)
	assert.Equal(t, "R", resp.Movies[0].Certification.Name)
	assert.Equal(t, 3, resp.TotalPages)
	require.NotNil(t, resp.PrevPage)
	require.NotNil(t, resp.NextPage)
	assert.Contains(t, *resp.NextPage, "page=3")
	assert.Contains(t, *resp.NextPage, "year=1995")
	assert.Contains(t, *resp.NextPage, "sort_by=price")
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetMovie_NotFound(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.GetMovie(context.Background(), 42)
	assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
	assert.Equal(t, "Movie not found.", apperrors.Message(err))
}

func TestCreateMovie_Forbidden(t *testing.T) {
	db, _ := setupMockDB(t)
	svc := NewService(db, testConfig())

	_, err := svc.CreateMovie(context.Background(), member, validRequest())
	assert.Equal(t, http.StatusForbidden, apperrors.Status(err))
}

func TestCreateMovie_Validation(t *testing.T) {
	db, _ := setupMockDB(t)
	svc := NewService(db, testConfig())

	tests := []struct {
		name   string
		mutate func(r *MovieRequest)
	}{
		{"three fraction digits", func(r *MovieRequest) { r.Price = decimal.RequireFromString("1.999") }},
		{"negative price", func(r *MovieRequest) { r.Price = decimal.RequireFromString("-1") }},
		{"zero duration", func(r *MovieRequest) { r.Time = 0 }},
		{"ancient year", func(r *MovieRequest) { r.Year = 1700 }},
		{"imdb above ten", func(r *MovieRequest) { r.IMDb = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.CreateMovie(context.Background(), moderator, req)
			assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
		})
	}
}

func TestCreateMovie_Duplicate(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(1))

	_, err := svc.CreateMovie(context.Background(), moderator, validRequest())
	assert.Equal(t, http.StatusConflict, apperrors.Status(err))
	assert.Contains(t, apperrors.Message(err), "'Heat'")
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateMovie_UnknownGenre(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, testConfig())

	req := validRequest()
	req.GenreIDs = []uint{1, 2, 2}

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "certifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "R"))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "genres"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Crime"))

	_, err := svc.CreateMovie(context.Background(), moderator, req)
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
	assert.Equal(t, "One or more genre ids do not exist.", apperrors.Message(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDeleteMovie(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, testConfig())

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))

		err := svc.DeleteMovie(context.Background(), admin, 5)
		assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
	})

	t.Run("already ordered", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, testConfig())

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(1))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items"`)).WillReturnRows(countRows(2))

		err := svc.DeleteMovie(context.Background(), admin, 5)
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("forbidden", func(t *testing.T) {
		db, _ := setupMockDB(t)
		svc := NewService(db, testConfig())

		err := svc.DeleteMovie(context.Background(), member, 5)
		assert.Equal(t, http.StatusForbidden, apperrors.Status(err))
	})
}

func TestIsPurchased(t *testing.T) {
	db, sqlMock := setupMockDB(t)

	sqlMock.ExpectQuery(`(?s)SELECT count\(\*\) FROM "movies" WHERE .*JOIN payments p`).WillReturnRows(countRows(1))

	ok, err := IsPurchased(db, 3, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
