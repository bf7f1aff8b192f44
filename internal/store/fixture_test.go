package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/i474232898/weather-records/internal/weather"
)

// seedRecords inserts ids 1-12: 1-4 Laredo, 5-8 Jacksonville, 9-12 Los
// Angeles. Dates are shared pairwise by (1,5), (2,6), (3,7) and (4,8).
func seedRecords(t *testing.T, s weather.Store) {
	t.Helper()

	type seed struct {
		city, state string
		day         int
	}
	seeds := []seed{
		{"Laredo", "Texas", 20}, {"Laredo", "Texas", 21}, {"Laredo", "Texas", 22}, {"Laredo", "Texas", 23},
		{"Jacksonville", "Florida", 20}, {"Jacksonville", "Florida", 21}, {"Jacksonville", "Florida", 22}, {"Jacksonville", "Florida", 23},
		{"Los Angeles", "California", 24}, {"Los Angeles", "California", 25}, {"Los Angeles", "California", 26}, {"Los Angeles", "California", 27},
	}

	for i, sd := range seeds {
		city, state := sd.city, sd.state
		date := weather.Date{Year: 2023, Month: time.March, Day: sd.day}
		lat, lon := 27.5+float64(i), -99.5+float64(i)
		rec, err := s.Insert(context.Background(), weather.Record{
			Date:         &date,
			Lat:          &lat,
			Lon:          &lon,
			City:         &city,
			State:        &state,
			Temperatures: []float64{17.3, 16.8, float64(i)},
		})
		if err != nil {
			t.Fatalf("seed record %d: %v", i+1, err)
		}
		if rec.ID != int64(i+1) {
			t.Fatalf("seed record %d got id %d", i+1, rec.ID)
		}
	}
}

func ids(records []weather.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

// runStoreSuite checks the search behaviour every weather.Store must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) weather.Store) {
	t.Run("search", func(t *testing.T) {
		s := newStore(t)
		seedRecords(t, s)
		svc := weather.NewService(s, nil)

		tests := []struct {
			date, city, sort string
			want             []int64
		}{
			{"", "", "", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
			{"", "Laredo", "", []int64{1, 2, 3, 4}},
			{"", "laredo", "", []int64{1, 2, 3, 4}},
			{"", "LAREDO", "", []int64{1, 2, 3, 4}},
			{"2023-03-20", "", "", []int64{1, 5}},
			{"2023-03-21", "JACKSONVILLE", "", []int64{6}},
			{"", "", "date", []int64{1, 5, 2, 6, 3, 7, 4, 8, 9, 10, 11, 12}},
			{"", "", "-date", []int64{12, 11, 10, 9, 4, 8, 3, 7, 2, 6, 1, 5}},
			{"2023-03-21", "", "-city", []int64{2, 6}},
			{"", "London", "-city", []int64{}},
			{"2024-01-01", "Laredo", "city", []int64{}},
			{"2024-01-01", "NoSuchCity", "", []int64{}},
			{"", "Laredo,Los Angeles", "city", []int64{1, 2, 3, 4, 9, 10, 11, 12}},
			{"", "los angeles,LAREDO", "", []int64{1, 2, 3, 4, 9, 10, 11, 12}},
			{"", "", "city", []int64{5, 6, 7, 8, 1, 2, 3, 4, 9, 10, 11, 12}},
			{"", "", "-city", []int64{9, 10, 11, 12, 1, 2, 3, 4, 5, 6, 7, 8}},
			{"", ",", "", []int64{}},
		}

		for _, tt := range tests {
			got, err := svc.Search(context.Background(), tt.date, tt.city, tt.sort)
			if err != nil {
				t.Fatalf("Search(%q, %q, %q): unexpected error: %v", tt.date, tt.city, tt.sort, err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Fatalf("Search(%q, %q, %q) = %v, want %v", tt.date, tt.city, tt.sort, ids(got), tt.want)
			}
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		svc := weather.NewService(newStore(t), nil)
		if _, err := svc.Search(context.Background(), "January 1st, 2023", "", ""); !errors.Is(err, weather.ErrWrongDateFormat) {
			t.Fatalf("expected ErrWrongDateFormat, got %v", err)
		}
		if _, err := svc.Search(context.Background(), "", "", "unknown"); !errors.Is(err, weather.ErrUnknownSortField) {
			t.Fatalf("expected ErrUnknownSortField, got %v", err)
		}
	})

	t.Run("insert and get", func(t *testing.T) {
		s := newStore(t)
		city := "Pittsburgh"
		created, err := s.Insert(context.Background(), weather.Record{ID: 42, City: &city})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if created.ID != 1 {
			t.Fatalf("expected id 1, got %d", created.ID)
		}
		if created.Temperatures == nil || len(created.Temperatures) != 0 {
			t.Fatalf("expected empty temperatures, got %v", created.Temperatures)
		}

		got, ok, err := s.GetByID(context.Background(), created.ID)
		if err != nil || !ok {
			t.Fatalf("GetByID: ok=%v err=%v", ok, err)
		}
		if got.City == nil || *got.City != city || got.Date != nil || got.Lat != nil || got.State != nil {
			t.Fatalf("unexpected record %v", got)
		}

		_, ok, err = s.GetByID(context.Background(), 100500)
		if err != nil || ok {
			t.Fatalf("GetByID(missing): ok=%v err=%v", ok, err)
		}
	})

	t.Run("round trips fields", func(t *testing.T) {
		s := newStore(t)
		date := weather.Date{Year: 1985, Month: time.January, Day: 1}
		lat, lon := 36.1189, -86.6892
		city, state := "Nashville", "Tennessee"
		temps := []float64{17.3, 16.8, 16.4, 16.0, -2.5}

		created, err := s.Insert(context.Background(), weather.Record{
			Date: &date, Lat: &lat, Lon: &lon, City: &city, State: &state, Temperatures: temps,
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		got, ok, err := s.GetByID(context.Background(), created.ID)
		if err != nil || !ok {
			t.Fatalf("GetByID: ok=%v err=%v", ok, err)
		}
		want := weather.Record{ID: created.ID, Date: &date, Lat: &lat, Lon: &lon, City: &city, State: &state, Temperatures: temps}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("absent values sort first ascending", func(t *testing.T) {
		s := newStore(t)
		a, b := "Austin", "Boston"
		for _, c := range []*string{&b, nil, &a} {
			if _, err := s.Insert(context.Background(), weather.Record{City: c}); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}

		asc, err := s.Query(context.Background(), weather.MatchAll{}, weather.Order{Field: weather.FieldCity})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if !reflect.DeepEqual(ids(asc), []int64{2, 3, 1}) {
			t.Fatalf("ascending = %v, want [2 3 1]", ids(asc))
		}

		desc, err := s.Query(context.Background(), weather.MatchAll{}, weather.Order{Field: weather.FieldCity, Descending: true})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if !reflect.DeepEqual(ids(desc), []int64{1, 3, 2}) {
			t.Fatalf("descending = %v, want [1 3 2]", ids(desc))
		}
	})
}
