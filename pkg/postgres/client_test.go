package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresDSN(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestHealthPings(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()

	mock.ExpectPing()
	c := NewFromDB(sqlx.NewDb(raw, "postgres"))
	assert.NoError(t, c.Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
