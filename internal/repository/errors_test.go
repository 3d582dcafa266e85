package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePostgresErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, ErrDuplicate},
		{"value too long", &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(10)"}, ErrInvalidData},
		{"numeric out of range", &pgconn.PgError{Code: "22003"}, ErrInvalidData},
		{"not null violation", &pgconn.PgError{Code: "23502"}, ErrInvalidData},
		{"check violation", &pgconn.PgError{Code: "23514"}, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, normalize(tt.err), tt.want)
		})
	}
}

func TestNormalizeLeavesInfrastructureErrorsAlone(t *testing.T) {
	for _, err := range []error{
		&pgconn.PgError{Code: "08006", Message: "connection failure"},
		&pgconn.PgError{Code: "40P01", Message: "deadlock detected"},
		context.DeadlineExceeded,
		errors.New("boom"),
	} {
		got := normalize(err)
		assert.Equal(t, err, got)
		assert.NotErrorIs(t, got, ErrInvalidData)
		assert.NotErrorIs(t, got, ErrDuplicate)
	}
	assert.NoError(t, normalize(nil))
}

func TestNormalizeSQLiteErrors(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE items (
        code  TEXT PRIMARY KEY,
        name  TEXT NOT NULL,
        stock INTEGER CHECK (stock >= 0)
    )`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO items (code, name, stock) VALUES ('a', 'Apple', 1)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO items (code, name, stock) VALUES ('a', 'Again', 1)`)
	assert.ErrorIs(t, normalize(err), ErrDuplicate)

	_, err = db.ExecContext(ctx, `INSERT INTO items (code, name, stock) VALUES ('b', NULL, 1)`)
	assert.ErrorIs(t, normalize(err), ErrInvalidData)

	_, err = db.ExecContext(ctx, `INSERT INTO items (code, name, stock) VALUES ('c', 'Cherry', -1)`)
	assert.ErrorIs(t, normalize(err), ErrInvalidData)

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM items WHERE code = 'z'`).Scan(&name)
	assert.ErrorIs(t, normalize(err), ErrNotFound)
}
