package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/i474232898/weather-records/internal/weather"
)

// row is the persisted form of a record; temperatures are kept encoded so
// every read goes through the same codec as the SQL and Mongo stores.
type row struct {
	id           int64
	date         *weather.Date
	lat, lon     *float64
	city, state  *string
	temperatures string
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// rows in insertion (and therefore id) order
	rows   []row
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore. Ids start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Insert appends rec with a fresh id.
func (s *MemoryStore) Insert(_ context.Context, rec weather.Record) (weather.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := toRow(rec)
	r.id = s.nextID
	s.nextID++
	s.rows = append(s.rows, r)

	return r.record(), nil
}

// GetByID returns the record with the given id.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (weather.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are dense and ascending, so a binary search finds the row.
	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].id >= id })
	if i < len(s.rows) && s.rows[i].id == id {
		return s.rows[i].record(), true, nil
	}
	return weather.Record{}, false, nil
}

// Query returns all rows matching filter ordered by order.Keys().
func (s *MemoryStore) Query(_ context.Context, filter weather.Filter, order weather.Order) ([]weather.Record, error) {
	s.mu.RLock()
	matched := make([]row, 0)
	for _, r := range s.rows {
		if r.matches(filter) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	keys := order.Keys()
	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i], matched[j], keys)
	})

	result := make([]weather.Record, len(matched))
	for i, r := range matched {
		result[i] = r.record()
	}
	return result, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func toRow(rec weather.Record) row {
	return row{
		date:         clone(rec.Date),
		lat:          clone(rec.Lat),
		lon:          clone(rec.Lon),
		city:         clone(rec.City),
		state:        clone(rec.State),
		temperatures: weather.EncodeTemperatures(rec.Temperatures),
	}
}

func (r row) record() weather.Record {
	return weather.Record{
		ID:           r.id,
		Date:         clone(r.date),
		Lat:          clone(r.lat),
		Lon:          clone(r.lon),
		City:         clone(r.city),
		State:        clone(r.state),
		Temperatures: weather.DecodeTemperatures(r.temperatures),
	}
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (r row) matches(f weather.Filter) bool {
	switch f := f.(type) {
	case weather.MatchAll:
		return true
	case weather.DateEquals:
		return r.date != nil && r.date.Compare(f.Date) == 0
	case weather.CityEquals:
		return r.city != nil && strings.ToLower(*r.city) == f.City
	case weather.CityIn:
		if r.city == nil {
			return false
		}
		city := strings.ToLower(*r.city)
		for _, c := range f.Cities {
			if c == city {
				return true
			}
		}
		return false
	case weather.And:
		for _, sub := range f.Filters {
			if !r.matches(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// less orders a before b. Absent values sort first ascending and last
// descending, matching the SQL and Mongo stores.
func less(a, b row, keys []weather.SortKey) bool {
	for _, k := range keys {
		c := compareField(a, b, k.Field)
		if c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareField(a, b row, field weather.Field) int {
	switch field {
	case weather.FieldDate:
		switch {
		case a.date == nil && b.date == nil:
			return 0
		case a.date == nil:
			return -1
		case b.date == nil:
			return 1
		}
		return a.date.Compare(*b.date)
	case weather.FieldCity:
		switch {
		case a.city == nil && b.city == nil:
			return 0
		case a.city == nil:
			return -1
		case b.city == nil:
			return 1
		}
		return strings.Compare(*a.city, *b.city)
	default:
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	}
}
