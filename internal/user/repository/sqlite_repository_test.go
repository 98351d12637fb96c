package repository

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/defis-users/internal/common/db"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

func newSQLiteRepo(t *testing.T, opts Options, unique bool) Repository {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := logger.NewWithWriter(&bytes.Buffer{}, "test", "error")
	require.NoError(t, db.Migrate(ctx, log, db.StoreSQLite, sqlDB))
	require.NoError(t, db.ApplyUsernameConstraint(ctx, db.StoreSQLite, sqlDB, unique))

	return NewSQLiteRepository(sqlDB, opts)
}

func TestSQLiteRepository_Contract(t *testing.T) {
	runRepositoryContract(t, newSQLiteRepo)
}

func TestSQLiteTime_Scan(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)

	cases := []struct {
		name string
		src  any
	}{
		{name: "time value", src: want},
		{name: "driver layout", src: "2024-03-01 10:00:00.123456+00:00"},
		{name: "rfc3339 bytes", src: []byte("2024-03-01T10:00:00.123456Z")},
		{name: "no zone", src: "2024-03-01 10:00:00.123456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var st sqliteTime
			require.NoError(t, st.Scan(tc.src))
			assert.True(t, want.Equal(st.Time), "got %v", st.Time)
		})
	}

	var st sqliteTime
	assert.Error(t, st.Scan("yesterday"))
	assert.Error(t, st.Scan(42))
}
