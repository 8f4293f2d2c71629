package repository

import "context"

// Repos gives access to every repository bound to one connection or
// transaction.
type Repos interface {
	Users() UserRepository
	Tokens() TokenRepository
	Catalog() CatalogRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// Store is the entry point for usecases. Repos outside WithinTx run in
// autocommit mode.
type Store interface {
	Repos
	// WithinTx runs fn in a transaction. Any error from fn rolls it back and
	// is returned unchanged.
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
