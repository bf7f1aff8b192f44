package weather

import "context"

// Store is the contract every record store (memory, SQL, Mongo) must satisfy.
type Store interface {
	// Insert persists rec, ignoring rec.ID, and returns the stored form with
	// its newly assigned id.
	Insert(ctx context.Context, rec Record) (Record, error)
	// GetByID reports false when no record has the id.
	GetByID(ctx context.Context, id int64) (Record, bool, error)
	// Query returns the records matching filter, ordered by order.Keys().
	Query(ctx context.Context, filter Filter, order Order) ([]Record, error)

	Ping(ctx context.Context) error
	Close() error
}
