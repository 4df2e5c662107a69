package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		if strings.HasSuffix(name, ".up.sql") {
			assert.True(t, names[strings.TrimSuffix(name, ".up.sql")+".down.sql"], "missing down migration for %s", name)
		}
	}
}

func TestInitialMigrationCreatesCoreTables(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	sql := strings.ToLower(string(b))

	for _, table := range []string{"users", "clubs", "classes", "bookings", "memberships", "membership_plans", "user_selected_gyms", "visits", "favorites", "reviews", "news", "payments"} {
		assert.Contains(t, sql, "create table "+table+" ", table)
	}
}

func TestDeletedClassesKeepBookingHistory(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(b)

	assert.Contains(t, sql, "deleted_at   TIMESTAMPTZ,")
	assert.Contains(t, sql, "class_id        BIGINT REFERENCES classes(id),")
	assert.NotContains(t, sql, "REFERENCES classes(id) ON DELETE SET NULL")
}
