package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSNFromParts(t *testing.T) {
	dsn := DSN(ClientConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "spreadbot",
		User:     "bot",
		Password: "pw",
		SSLMode:  "require",
	})
	assert.Equal(t, "postgres://bot:pw@db.internal:5433/spreadbot?sslmode=require", dsn)
}

func TestDSNDefaults(t *testing.T) {
	dsn := DSN(ClientConfig{Host: "localhost", Database: "spreadbot", User: "bot"})
	assert.Equal(t, "postgres://bot:@localhost:5432/spreadbot?sslmode=disable", dsn)
}

func TestDSNPassthrough(t *testing.T) {
	dsn := DSN(ClientConfig{DSN: "postgres://u:p@h:1/db", Host: "ignored"})
	assert.Equal(t, "postgres://u:p@h:1/db", dsn)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "001_init.sql", entries[0].Name())
}
