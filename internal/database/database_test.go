package database

import (
	"testing"

	"fitpass_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBUnreachable(t *testing.T) {
	db, err := InitDB(config.DatabaseConfig{
		Host: "127.0.0.1", Port: "1", User: "fitpass", Password: "fitpass", Name: "fitpass", SSLMode: "disable",
		MaxOpenConns: 1, MaxIdleConns: 1,
	})
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "connecting to database")
}
