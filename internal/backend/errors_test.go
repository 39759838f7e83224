package backend

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClasses(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsConflict(fmt.Errorf("insert: %w", unique)))
	assert.True(t, IsConflict(&APIError{Status: 409}))
	assert.False(t, IsConflict(fk))
	assert.False(t, IsConflict(nil))

	assert.True(t, IsForeignKey(fk))
	assert.True(t, IsBadInput(&pgconn.PgError{Code: "22P02"}))

	assert.True(t, IsRateLimited(fmt.Errorf("wrap: %w", &APIError{Status: 429})))
	assert.False(t, IsRateLimited(&APIError{Status: 500}))

	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.ErrorIs(t, &APIError{Status: 401}, ErrUnauthorized)

	assert.True(t, IsValidation(NewValidationError("rating", "must be between 1 and 5")))
	assert.Equal(t, "rating: must be between 1 and 5", NewValidationError("rating", "must be between 1 and 5").Error())
}
