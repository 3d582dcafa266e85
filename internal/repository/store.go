package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type store struct {
	db database
	q  querier
}

// NewPostgresStore returns a Store backed by a pgx connection pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	db := pgxDatabase{pgxQuerier: pgxQuerier{conn: pool}, pool: pool}
	return &store{db: db, q: db}
}

// NewSQLiteStore returns a Store backed by a database/sql handle opened with
// the modernc sqlite driver.
func NewSQLiteStore(db *sql.DB) Store {
	d := sqlDatabase{sqlQuerier: sqlQuerier{conn: db}, db: db}
	return &store{db: d, q: d}
}

func (s *store) Users() UserRepository                 { return &userRepository{q: s.q} }
func (s *store) Events() EventRepository               { return &eventRepository{q: s.q} }
func (s *store) Registrations() RegistrationRepository { return &registrationRepository{q: s.q} }
func (s *store) Tables() TableRepository               { return &tableRepository{q: s.q} }

func (s *store) Driver() string {
	return s.q.dialect().name
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.ping(ctx)
}

// WithinTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. Calls made on a transactional store join the
// enclosing transaction.
func (s *store) WithinTx(ctx context.Context, fn func(Store) error) error {
	if _, inTx := s.q.(transaction); inTx {
		return fn(s)
	}

	tx, err := s.db.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(&store{db: s.db, q: tx}); err != nil {
		if rbErr := tx.rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
