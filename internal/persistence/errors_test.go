package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"freegle/internal/persistence"
)

func TestIsDuplicateKeyError(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	require.True(t, persistence.IsDuplicateKeyError(dup))
	require.True(t, persistence.IsDuplicateKeyError(fmt.Errorf("insert: %w", dup)))
	require.False(t, persistence.IsDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	require.False(t, persistence.IsDuplicateKeyError(errors.New("connection refused")))
	require.False(t, persistence.IsDuplicateKeyError(nil))
}
