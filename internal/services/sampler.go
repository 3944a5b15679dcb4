// Package services – Sampler
//
// Sampler draws one random catalog item for a user. It picks several distinct
// random discover pages, fetches them concurrently, merges and de-duplicates
// the results, drops everything the user has seen or disliked, and chooses
// uniformly from what remains. A page that fails to load is logged and counted
// as empty; it never aborts its siblings or the pick.
package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-cartoon-bot/internal/catalog"
	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/observability"
)

// PageSource is the part of the catalog client the sampler needs.
type PageSource interface {
	TotalPageCount(ctx context.Context, q catalog.Query) int
	FetchPage(ctx context.Context, page int, q catalog.Query) ([]domain.CatalogItem, error)
}

// Sampler picks random, unseen catalog items.
type Sampler struct {
	Catalog PageSource

	MaxPageDepth int // clamp for the upstream page count
	PagesPerPick int // distinct pages gathered per pick
	Concurrency  int // parallel page fetches

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler builds a Sampler from configuration, seeded from the clock.
func NewSampler(src PageSource, cfg config.SamplerConfig) *Sampler {
	seed := uint64(time.Now().UnixNano())
	return &Sampler{
		Catalog:      src,
		MaxPageDepth: cfg.MaxPageDepth,
		PagesPerPick: cfg.PagesPerPick,
		Concurrency:  cfg.Concurrency,
		rng:          rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// WithRand replaces the random source, for reproducible picks.
func (s *Sampler) WithRand(r *rand.Rand) *Sampler {
	s.mu.Lock()
	s.rng = r
	s.mu.Unlock()
	return s
}

// PickRandom returns one item that is in neither seen nor disliked, or
// ErrNoneFound. There is no fallback to excluded items.
func (s *Sampler) PickRandom(ctx context.Context, ageRating string, seen, disliked domain.ItemSet, filter domain.FilterProfile) (*domain.CatalogItem, error) {
	ctx, span := otel.Tracer("services/Sampler").Start(ctx, "PickRandom",
		trace.WithAttributes(
			attribute.String("age_rating", ageRating),
			attribute.Int("seen", seen.Len()),
			attribute.Int("disliked", disliked.Len()),
		),
	)
	defer span.End()

	q := catalog.Query{AgeRating: ageRating, Filter: filter}

	total := s.Catalog.TotalPageCount(ctx, q)
	pages := s.choosePages(total)
	span.SetAttributes(attribute.Int("total_pages", total), attribute.IntSlice("pages", pages))

	batches := s.fetchAll(ctx, pages, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := candidatePool(batches, seen, disliked)
	span.SetAttributes(attribute.Int("pool", len(pool)))
	if len(pool) == 0 {
		return nil, ErrNoneFound
	}

	s.mu.Lock()
	pick := pool[s.source().IntN(len(pool))]
	s.mu.Unlock()
	return &pick, nil
}

// choosePages returns distinct 1-based page numbers in random order, at most
// PagesPerPick of them, all within min(total, MaxPageDepth).
func (s *Sampler) choosePages(total int) []int {
	limit := total
	if s.MaxPageDepth > 0 && limit > s.MaxPageDepth {
		limit = s.MaxPageDepth
	}
	if limit < 1 {
		limit = 1
	}
	k := s.PagesPerPick
	if k < 1 {
		k = 1
	}
	if k > limit {
		k = limit
	}

	s.mu.Lock()
	perm := s.source().Perm(limit)
	s.mu.Unlock()

	pages := make([]int, k)
	for i := range pages {
		pages[i] = perm[i] + 1
	}
	return pages
}

// fetchAll loads every page concurrently. Slot i of the result holds page
// pages[i]; a failed page leaves its slot nil.
func (s *Sampler) fetchAll(ctx context.Context, pages []int, q catalog.Query) [][]domain.CatalogItem {
	out := make([][]domain.CatalogItem, len(pages))

	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, page := range pages {
		g.Go(func() error {
			items, err := s.Catalog.FetchPage(ctx, page, q)
			if err != nil {
				observability.CatalogPageFailures.Inc()
				log.Warn().Err(err).Int("page", page).Msg("catalog page skipped")
				return nil
			}
			out[i] = items
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Sampler) source() *rand.Rand {
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s.rng
}

// candidatePool merges batches in order, keeps the first occurrence of each
// id and drops excluded ids.
func candidatePool(batches [][]domain.CatalogItem, seen, disliked domain.ItemSet) []domain.CatalogItem {
	merged := make(map[int64]struct{})
	var pool []domain.CatalogItem
	for _, batch := range batches {
		for _, it := range batch {
			if _, dup := merged[it.ID]; dup {
				continue
			}
			merged[it.ID] = struct{}{}
			if seen.Has(it.ID) || disliked.Has(it.ID) {
				continue
			}
			pool = append(pool, it)
		}
	}
	return pool
}
