package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDB_Pool(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	// A nil pool stands in for the real one; pgxpool needs a live server.
	var nilPool *pgxpool.Pool
	db := &PostgresDB{
		pool:   nilPool,
		logger: logger,
	}

	assert.Equal(t, nilPool, db.Pool(), "Pool() should return the wrapped pool")
}

// Limited testing due to pgxpool requiring live DB or interface changes
