package weather

import (
	"context"
	"fmt"
	"log/slog"
)

// Service orchestrates record creation, lookup and search against a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new Service. A nil logger falls back to slog.Default().
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Create stores rec and returns its stored form including the assigned id.
// A nil record is a no-op that returns nil.
func (s *Service) Create(ctx context.Context, rec *Record) (*Record, error) {
	if rec == nil {
		return nil, nil
	}

	stored, err := s.store.Insert(ctx, *rec)
	if err != nil {
		return nil, fmt.Errorf("insert weather record: %w", err)
	}

	s.logger.Debug("weather record created", "id", stored.ID, "city", deref(stored.City))
	return &stored, nil
}

// FindByID returns the record with the given id, or nil when id is nil or
// no such record exists.
func (s *Service) FindByID(ctx context.Context, id *int64) (*Record, error) {
	if id == nil {
		return nil, nil
	}

	rec, ok, err := s.store.GetByID(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("get weather record %d: %w", *id, err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Search returns the records matching the optional date and city filters,
// ordered by sort. ErrWrongDateFormat and ErrUnknownSortField are returned
// wrapped for invalid input.
func (s *Service) Search(ctx context.Context, date, city, sort string) ([]Record, error) {
	filter, err := BuildFilter(date, city)
	if err != nil {
		return nil, err
	}
	order, err := BuildOrder(sort)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("searching weather records", "date", date, "city", city, "sort", sort)

	records, err := s.store.Query(ctx, filter, order)
	if err != nil {
		return nil, fmt.Errorf("query weather records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Ping reports whether the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
