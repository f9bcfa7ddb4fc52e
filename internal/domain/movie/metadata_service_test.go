package movie

import (
	"context"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
)

func TestMetadataCreate(t *testing.T) {
	t.Run("moderator is refused", func(t *testing.T) {
		db, _ := setupMockDB(t)
		svc := NewMetadataService(db, testConfig())

		_, err := svc.Create(context.Background(), moderator, KindGenre, &MetadataRequest{Name: "Noir"})
		assert.Equal(t, http.StatusForbidden, apperrors.Status(err))
		assert.Equal(t, "Only administrators can create genres.", apperrors.Message(err))
	})

	t.Run("duplicate name", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewMetadataService(db, testConfig())

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "stars"`)).WillReturnRows(countRows(1))

		_, err := svc.Create(context.Background(), admin, KindStar, &MetadataRequest{Name: "Al Pacino"})
		assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
		assert.Equal(t, "Star with this name already exists", apperrors.Message(err))
	})

	t.Run("created", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := NewMetadataService(db, testConfig())

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "directors"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "directors"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
		sqlMock.ExpectCommit()

		item, err := svc.Create(context.Background(), admin, KindDirector, &MetadataRequest{Name: "  Michael Mann "})
		require.NoError(t, err)
		assert.Equal(t, uint(4), item.ID)
		assert.Equal(t, "Michael Mann", item.Name)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestMetadataUpdate_NotFound(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewMetadataService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "certifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := svc.Update(context.Background(), admin, KindCertification, 9, &MetadataRequest{Name: "PG"})
	assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
	assert.Equal(t, "Certification not found", apperrors.Message(err))
}

func TestMetadataDelete_CertificationInUse(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewMetadataService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "certifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "R"))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(3))

	err := svc.Delete(context.Background(), admin, KindCertification, 1)
	assert.Equal(t, http.StatusConflict, apperrors.Status(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestMetadataList_GenreCounts(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewMetadataService(db, testConfig())

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT genres.id, genres.name, COUNT(movie_genres.movie_id) AS movie_count FROM "genres" LEFT JOIN movie_genres`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "movie_count"}).
			AddRow(1, "Crime", 12).
			AddRow(2, "Drama", 0))

	items, err := svc.List(context.Background(), KindGenre)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].MovieCount)
	assert.Equal(t, int64(12), *items[0].MovieCount)
	assert.Equal(t, int64(0), *items[1].MovieCount)
}

func TestMetadataUnknownKind(t *testing.T) {
	db, _ := setupMockDB(t)
	svc := NewMetadataService(db, testConfig())

	_, err := svc.List(context.Background(), Kind("studio"))
	assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
}
