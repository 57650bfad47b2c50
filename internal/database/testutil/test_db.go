package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/portcullis/internal/database"
)

// MustOpenTestDB opens an isolated in-memory SQLite database and migrates models.
// The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	// A unique name keeps parallel tests from sharing one in-memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db, models...))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
