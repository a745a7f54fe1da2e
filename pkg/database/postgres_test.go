package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-ledger-api/pkg/config"
)

func TestDriverName(t *testing.T) {
	for raw, want := range map[string]string{"": DriverPQ, "postgres": DriverPQ, "pq": DriverPQ, "pgx": DriverPGX} {
		got, err := DriverName(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := DriverName("sqlite")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "course_ledger", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=course_ledger sslmode=disable", dsn)
}
