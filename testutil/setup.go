package testutil

import (
	"fmt"
	"testing"
	"time"

	"friendchat/config"
	"friendchat/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestDB opens a private in-memory SQLite database and migrates it.
// Each call gets its own database, so tests may run in parallel.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString()),
		// One connection keeps the shared in-memory database alive and
		// serialises writers.
		MaxOpen: 1,
		MaxIdle: 1,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, database.Migrate(db), "SetupTestDB: Migrate")
	t.Cleanup(func() { database.Close(db) })
	return db
}

// TestConfig returns a configuration suitable for handler tests.
func TestConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:  "test-jwt-secret-32bytes-padded!!",
			JWTTTL:     time.Hour,
			BcryptCost: 4,
		},
		API: config.APIConfig{EmptyResultAsMiss: true},
	}
}

func Logger() *zap.Logger {
	return zap.NewNop()
}
