package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegate/db"
	"sitegate/models"
)

func setupDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewSQLiteStorage(conn)
}

func TestSQLiteStorage_SetGetDelete(t *testing.T) {
	s := setupDB(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "old"))
	require.NoError(t, s.Set(ctx, "k", "new")) // upsert

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStorage_BacksSessionStore(t *testing.T) {
	ctx := context.Background()
	st := NewStore(setupDB(t))

	want := models.Session{LoggedIn: true, UserHash: "feed", Role: "user"}
	require.NoError(t, st.Set(ctx, want))

	got, ok, err := st.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, st.Clear(ctx))
	_, ok, err = st.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStorage_ErrorsAreWrapped(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	boom := errors.New("driver failure")
	mock.ExpectQuery(`SELECT value FROM session_kv`).WithArgs("k").WillReturnError(boom)
	mock.ExpectExec(`INSERT INTO session_kv`).WithArgs("k", "v").WillReturnError(boom)
	mock.ExpectExec(`DELETE FROM session_kv`).WithArgs("k").WillReturnError(boom)

	s := NewSQLiteStorage(conn)
	ctx := context.Background()

	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to get session[k]")

	err = s.Set(ctx, "k", "v")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to set session[k]")

	err = s.Delete(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to delete session[k]")

	assert.NoError(t, mock.ExpectationsWereMet())
}
