package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-records/internal/weather"
)

// ErrUnavailable is returned while the circuit breaker in front of a store is open.
var ErrUnavailable = errors.New("record store unavailable")

// GuardedStore fails fast once the wrapped store keeps failing, instead of
// letting every request wait on a dead database.
type GuardedStore struct {
	inner   weather.Store
	circuit *gobreaker.CircuitBreaker
}

// Guard wraps inner with a circuit breaker named name.
func Guard(inner weather.Store, name string) *GuardedStore {
	return GuardWithSettings(inner, gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
	})
}

// GuardWithSettings is Guard with explicit breaker settings.
func GuardWithSettings(inner weather.Store, settings gobreaker.Settings) *GuardedStore {
	if settings.IsSuccessful == nil {
		// A cancelled request says nothing about the store's health.
		settings.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		}
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			slog.Warn("store circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}
	}
	return &GuardedStore{
		inner:   inner,
		circuit: gobreaker.NewCircuitBreaker(settings),
	}
}

func (g *GuardedStore) Insert(ctx context.Context, rec weather.Record) (weather.Record, error) {
	result, err := g.execute(func() (interface{}, error) {
		return g.inner.Insert(ctx, rec)
	})
	if err != nil {
		return weather.Record{}, err
	}
	return result.(weather.Record), nil
}

func (g *GuardedStore) GetByID(ctx context.Context, id int64) (weather.Record, bool, error) {
	type found struct {
		rec weather.Record
		ok  bool
	}
	result, err := g.execute(func() (interface{}, error) {
		rec, ok, err := g.inner.GetByID(ctx, id)
		return found{rec: rec, ok: ok}, err
	})
	if err != nil {
		return weather.Record{}, false, err
	}
	f := result.(found)
	return f.rec, f.ok, nil
}

func (g *GuardedStore) Query(ctx context.Context, filter weather.Filter, order weather.Order) ([]weather.Record, error) {
	result, err := g.execute(func() (interface{}, error) {
		return g.inner.Query(ctx, filter, order)
	})
	if err != nil {
		return nil, err
	}
	return result.([]weather.Record), nil
}

// Ping bypasses the breaker so the health probe sees the store's real state.
func (g *GuardedStore) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

func (g *GuardedStore) Close() error {
	return g.inner.Close()
}

// State reports the current breaker state.
func (g *GuardedStore) State() gobreaker.State {
	return g.circuit.State()
}

func (g *GuardedStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := g.circuit.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, err
}
