package cart

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func cartRow(id, userID uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "created_at", "updated_at"}).
		AddRow(id, userID, time.Now(), time.Now())
}

func count(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestGetOrCreateCart_CreatesOnFirstAccess(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, &config.Config{})

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "carts"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	sqlMock.ExpectCommit()

	cart, err := svc.GetOrCreateCart(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint(7), cart.ID)
	assert.Equal(t, uint(3), cart.UserID)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestAddItem(t *testing.T) {
	movieRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(5, "Heat", "9.99")
	}

	t.Run("movie missing", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, &config.Config{})

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(cartRow(7, 3))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.AddItem(context.Background(), 3, 5)
		assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
	})

	t.Run("already purchased", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, &config.Config{})

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(cartRow(7, 3))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow())
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(count(1))

		_, err := svc.AddItem(context.Background(), 3, 5)
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
		assert.Equal(t, "You have already purchased this movie", apperrors.Message(err))
	})

	t.Run("already in cart", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, &config.Config{})

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(cartRow(7, 3))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow())
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(count(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "cart_items"`)).WillReturnRows(count(1))

		_, err := svc.AddItem(context.Background(), 3, 5)
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
		assert.Equal(t, "Item already exists in cart", apperrors.Message(err))
	})

	t.Run("added with movie details", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, &config.Config{})

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(cartRow(7, 3))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow())
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(count(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "cart_items"`)).WillReturnRows(count(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "cart_items"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		sqlMock.ExpectCommit()

		item, err := svc.AddItem(context.Background(), 3, 5)
		require.NoError(t, err)
		assert.Equal(t, uint(11), item.ID)
		require.NotNil(t, item.Movie)
		assert.Equal(t, "Heat", item.Movie.Name)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestRemoveItem(t *testing.T) {
	t.Run("no cart", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, &config.Config{})
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := svc.RemoveItem(context.Background(), 3, 11)
		assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
		assert.Equal(t, "Cart not found", apperrors.Message(err))
	})

	t.Run("second removal is not found", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewService(db, &config.Config{})

		for _, affected := range []int64{1, 0} {
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(cartRow(7, 3))
			sqlMock.ExpectBegin()
			sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_items"`)).WillReturnResult(sqlmock.NewResult(0, affected))
			sqlMock.ExpectCommit()
		}

		assert.NoError(t, svc.RemoveItem(context.Background(), 3, 11))
		err := svc.RemoveItem(context.Background(), 3, 11)
		assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
		assert.Equal(t, "Item not found in cart", apperrors.Message(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestRemoveMovies_ReportsDeletedCount(t *testing.T) {
	db, sqlMock := setupMockDB(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_items" WHERE movie_id IN ($1,$2) AND cart_id IN (SELECT id FROM carts WHERE user_id = $3)`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	removed, err := RemoveMovies(db, 3, []uint{5, 6})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NoError(t, sqlMock.ExpectationsWereMet())

	removed, err = RemoveMovies(db, 3, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClear_NoCart(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, &config.Config{})
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "carts"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.Clear(context.Background(), 3)
	assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
}

func TestCalculateTotal(t *testing.T) {
	items := []CartItem{
		{Movie: &movie.Movie{Price: decimal.RequireFromString("0.10")}},
		{Movie: &movie.Movie{Price: decimal.RequireFromString("0.20")}},
		{Movie: &movie.Movie{Price: decimal.RequireFromString("19.99")}},
		{},
	}
	assert.Equal(t, "20.29", calculateTotal(items).StringFixed(2))
}
