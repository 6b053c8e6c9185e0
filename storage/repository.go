package storage

import "context"

// Repository is the CRUD surface shared by every entity store. Write
// operations report ErrNotFound when the target record does not exist.
type Repository[T any] interface {
	GetByID(ctx context.Context, id int64) (T, error)
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, record T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Searcher is implemented by repositories whose entities participate in
// autocomplete: a case-insensitive substring match of term against the
// display-name column, in the table's native order.
type Searcher interface {
	SearchByName(ctx context.Context, term string) ([]EntitySummary, error)
}
