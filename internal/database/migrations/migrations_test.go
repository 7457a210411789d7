package migrations

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/sitetrack/internal/config"
	"github.com/stwalsh4118/sitetrack/internal/database"
)

func TestLatestVersion_MatchesEmbeddedFiles(t *testing.T) {
	latest, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(4), latest)
}

func TestEmbeddedFiles_ArePaired(t *testing.T) {
	entries, err := migrationFiles.ReadDir("files")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs)
	assert.Equal(t, 4, ups)
}

func TestStatusPending(t *testing.T) {
	assert.Equal(t, uint(3), Status{Current: 1, Latest: 4}.Pending())
	assert.Equal(t, uint(0), Status{Current: 4, Latest: 4}.Pending())
	assert.Equal(t, uint(0), Status{Current: 5, Latest: 4}.Pending())
}

func TestMigrateUp_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := config.DatabaseConfig{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOr("DB_PORT", "5432"),
		Name:     envOr("DB_NAME", "sitetrack"),
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "postgres"),
		PoolMin:  1,
		PoolMax:  2,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := database.NewPostgresPool(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping integration test, database unavailable: %v", err)
	}
	defer db.Close()

	sqlDB := OpenDB(db.Pool)
	require.NoError(t, MigrateUp(sqlDB))
	require.NoError(t, MigrateUp(sqlDB), "second run must be a no-op")
	assert.NoError(t, CheckStatus(sqlDB))

	require.NoError(t, sqlDB.Close())
	assert.NoError(t, db.Ping(ctx), "closing the sql handle must leave the pool open")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
