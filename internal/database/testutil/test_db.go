package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mstepanenko/sprintdesk/internal/database"
)

var dbSeq atomic.Int64

// MustOpenTestDB opens an isolated in-memory SQLite database for tests with
// the full schema applied. The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A uniquely named shared-cache memory database keeps parallel tests
	// isolated from each other while letting the pool share one store.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1))
	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    dsn,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single open connection pins the memory database for the test's lifetime.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
