package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", NotFound("Movie not found."), http.StatusNotFound, "Movie not found."},
		{"wrapped conflict", fmt.Errorf("add item: %w", Conflict("Movie is already in the cart.")), http.StatusConflict, "Movie is already in the cart."},
		{"internal hides cause", Internal("Failed to create order", errors.New("pq: boom")), http.StatusInternalServerError, "Failed to create order"},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.message, Message(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("Failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed: connection reset", err.Error())
	assert.True(t, Is(err, http.StatusInternalServerError))
	assert.False(t, Is(err, http.StatusNotFound))
}

func TestIntegrityViolations(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	fk := &pgconn.PgError{Code: "23503"}
	other := &pgconn.PgError{Code: "40001"}

	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(fk))

	assert.True(t, IsIntegrityViolation(unique))
	assert.True(t, IsIntegrityViolation(fk))
	assert.True(t, IsIntegrityViolation(gorm.ErrForeignKeyViolated))
	assert.False(t, IsIntegrityViolation(other))
	assert.False(t, IsIntegrityViolation(errors.New("plain")))
}
