package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/observability"
)

// BreakerSettings tunes the catalog circuit breaker. Zero values take the
// defaults used in production.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // closed-state counting window
	Timeout     time.Duration // open -> half-open delay
	MinRequests uint32        // requests needed before the ratio is considered
	TripRatio   float64       // failure ratio that opens the circuit
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.Name == "" {
		s.Name = "tmdb"
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.TripRatio == 0 {
		s.TripRatio = 0.6
	}
	return s
}

// Breaker is a Source decorator that stops calling a failing catalog for a
// while. A detail lookup answered with ErrItemNotFound counts as success.
type Breaker struct {
	next Source
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Source, s BreakerSettings) *Breaker {
	s = s.withDefaults()
	observability.CatalogBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.TripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("catalog breaker state change")
			observability.CatalogBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrItemNotFound)
		},
		// caller cancellation says nothing about catalog health
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Discover implements Source.
func (b *Breaker) Discover(ctx context.Context, page int, q Query) (*DiscoverPage, error) {
	return castResult[DiscoverPage](b.cb.Execute(func() (any, error) {
		return b.next.Discover(ctx, page, q)
	}))
}

// Details implements Source.
func (b *Breaker) Details(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	return castResult[domain.CatalogItem](b.cb.Execute(func() (any, error) {
		return b.next.Details(ctx, id)
	}))
}

func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("catalog breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
