package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	b, err := NewPostgres(mock, Config{})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("get hit", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM session_entries").
			WithArgs("auth_token").
			WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("t1"))

		got, ok, err := b.Get(ctx, "auth_token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "t1", got)
	})

	t.Run("get miss", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM session_entries").
			WithArgs("auth_user").
			WillReturnError(pgx.ErrNoRows)

		_, ok, err := b.Get(ctx, "auth_user")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("get error", func(t *testing.T) {
		mock.ExpectQuery("SELECT value FROM session_entries").
			WithArgs("auth_user").
			WillReturnError(errors.New("db down"))

		_, _, err := b.Get(ctx, "auth_user")
		assert.Error(t, err)
	})

	t.Run("set upserts", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO session_entries").
			WithArgs("auth_token", "t2", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, b.Set(ctx, "auth_token", "t2"))
	})

	t.Run("remove", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM session_entries").
			WithArgs("auth_token").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, b.Remove(ctx, "auth_token"))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresRequiresPool(t *testing.T) {
	_, err := NewPostgres(nil, Config{})
	assert.Error(t, err)
}
