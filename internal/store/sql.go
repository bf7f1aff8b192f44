package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-records/internal/weather"
)

// dialect captures the few places where SQLite and PostgreSQL disagree.
type dialect struct {
	name string
	// placeholder returns the bind marker for the n-th (1-based) argument.
	placeholder func(n int) string
	// textCollation is appended to text sort keys to get byte-wise ordering.
	textCollation string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:          "postgres",
		placeholder:   func(n int) string { return "$" + strconv.Itoa(n) },
		textCollation: ` COLLATE "C"`,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return sqliteDialect, nil
	case "postgres":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

const selectColumns = `id, "date", lat, lon, city, state, temperatures`

// SQLStore is a weather.Store backed by a database/sql connection.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenSQL opens driver/dsn, applies pool settings, verifies connectivity and
// brings the schema up to date.
func OpenSQL(ctx context.Context, driver, dsn string, pool PoolConfig) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLStore{db: db, dialect: d}, nil
}

// Insert stores rec and returns it with the id assigned by the database.
func (s *SQLStore) Insert(ctx context.Context, rec weather.Record) (weather.Record, error) {
	var date any
	if rec.Date != nil {
		date = rec.Date.String()
	}
	temperatures := weather.EncodeTemperatures(rec.Temperatures)

	p := s.dialect.placeholder
	query := fmt.Sprintf(
		`INSERT INTO weather ("date", lat, lon, city, state, temperatures) VALUES (%s, %s, %s, %s, %s, %s) RETURNING id`,
		p(1), p(2), p(3), p(4), p(5), p(6),
	)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		date, nullable(rec.Lat), nullable(rec.Lon), nullable(rec.City), nullable(rec.State), temperatures,
	).Scan(&id)
	if err != nil {
		return weather.Record{}, fmt.Errorf("insert weather: %w", err)
	}

	rec.ID = id
	rec.Temperatures = weather.DecodeTemperatures(temperatures)
	return rec, nil
}

// GetByID returns the record with the given id.
func (s *SQLStore) GetByID(ctx context.Context, id int64) (weather.Record, bool, error) {
	query := `SELECT ` + selectColumns + ` FROM weather WHERE id = ` + s.dialect.placeholder(1)

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return weather.Record{}, false, nil
	}
	if err != nil {
		return weather.Record{}, false, fmt.Errorf("get weather %d: %w", id, err)
	}
	return rec, true, nil
}

// Query translates filter and order into a single SELECT.
func (s *SQLStore) Query(ctx context.Context, filter weather.Filter, order weather.Order) ([]weather.Record, error) {
	w := &whereBuilder{dialect: s.dialect}
	where := w.build(filter)
	query := `SELECT ` + selectColumns + ` FROM weather WHERE ` + where + ` ORDER BY ` + s.orderBy(order)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query weather: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close weather rows", "error", err)
		}
	}()

	out := make([]weather.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) orderBy(order weather.Order) string {
	keys := order.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var col string
		switch k.Field {
		case weather.FieldDate:
			col = `"date"`
		case weather.FieldCity:
			col = "city" + s.dialect.textCollation
		default:
			col = "id"
		}
		if k.Descending {
			parts = append(parts, col+" DESC NULLS LAST")
		} else {
			parts = append(parts, col+" ASC NULLS FIRST")
		}
	}
	return strings.Join(parts, ", ")
}

// whereBuilder renders a weather.Filter as a WHERE clause, collecting bind args.
type whereBuilder struct {
	dialect dialect
	args    []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return b.dialect.placeholder(len(b.args))
}

func (b *whereBuilder) build(f weather.Filter) string {
	switch f := f.(type) {
	case weather.MatchAll:
		return "1 = 1"
	case weather.DateEquals:
		return `"date" = ` + b.arg(f.Date.String())
	case weather.CityEquals:
		return "lower(city) = " + b.arg(f.City)
	case weather.CityIn:
		if len(f.Cities) == 0 {
			return "1 = 0"
		}
		marks := make([]string, len(f.Cities))
		for i, c := range f.Cities {
			marks[i] = b.arg(c)
		}
		return "lower(city) IN (" + strings.Join(marks, ", ") + ")"
	case weather.And:
		parts := make([]string, len(f.Filters))
		for i, sub := range f.Filters {
			parts[i] = b.build(sub)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	default:
		return "1 = 0"
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (weather.Record, error) {
	var (
		rec          weather.Record
		date         sql.NullString
		lat, lon     sql.NullFloat64
		city, state  sql.NullString
		temperatures sql.NullString
	)
	if err := sc.Scan(&rec.ID, &date, &lat, &lon, &city, &state, &temperatures); err != nil {
		return weather.Record{}, err
	}

	if date.Valid {
		d, err := weather.ParseDate(date.String)
		if err != nil {
			return weather.Record{}, fmt.Errorf("parse stored date %q of record %d: %w", date.String, rec.ID, err)
		}
		rec.Date = &d
	}
	if lat.Valid {
		rec.Lat = &lat.Float64
	}
	if lon.Valid {
		rec.Lon = &lon.Float64
	}
	if city.Valid {
		rec.City = &city.String
	}
	if state.Valid {
		rec.State = &state.String
	}
	rec.Temperatures = weather.DecodeTemperatures(temperatures.String)
	return rec, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
