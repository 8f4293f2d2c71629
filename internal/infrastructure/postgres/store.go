package postgres

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/shop-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repos struct {
	db DBTX
}

func (r repos) Users() repository.UserRepository { return &UserRepository{db: r.db} }
func (r repos) Tokens() repository.TokenRepository { return &TokenRepository{db: r.db} }
func (r repos) Catalog() repository.CatalogRepository { return &CatalogRepository{db: r.db} }
func (r repos) Carts() repository.CartRepository { return &CartRepository{db: r.db} }
func (r repos) Orders() repository.OrderRepository { return &OrderRepository{db: r.db} }

type Store struct {
	repos
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{repos: repos{db: pool}, pool: pool}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op once committed. Runs on panic too.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(repos{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
