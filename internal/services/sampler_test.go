package services

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
)

func TestSampler_NeverReturnsExcluded(t *testing.T) {
	cat := singlePage(1, 2, 3, 4, 5, 6)
	seen := domain.NewItemSet(1, 2, 3)
	disliked := domain.NewItemSet(4, 5)

	for seed := uint64(0); seed < 50; seed++ {
		it, err := newTestSampler(cat, seed).PickRandom(context.Background(), "G", seen, disliked, testDefaults)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if it.ID != 6 {
			t.Fatalf("seed %d: picked excluded item %d", seed, it.ID)
		}
	}
}

func TestSampler_NoneFoundWhenPoolEmpty(t *testing.T) {
	cat := singlePage(1, 2)
	_, err := newTestSampler(cat, 1).PickRandom(context.Background(), "G", domain.NewItemSet(1), domain.NewItemSet(2), testDefaults)
	if !errors.Is(err, ErrNoneFound) {
		t.Fatalf("expected ErrNoneFound, got %v", err)
	}

	empty := &stubCatalog{total: 3}
	if _, err := newTestSampler(empty, 1).PickRandom(context.Background(), "G", nil, nil, testDefaults); !errors.Is(err, ErrNoneFound) {
		t.Fatalf("expected ErrNoneFound for empty catalog, got %v", err)
	}
}

func TestSampler_DeterministicWithFixedSeed(t *testing.T) {
	cat := &stubCatalog{total: 40, pages: map[int][]domain.CatalogItem{}}
	for p := 1; p <= 40; p++ {
		cat.pages[p] = items(int64(p*100+1), int64(p*100+2), int64(p*100+3))
	}

	a, err := newTestSampler(cat, 42).PickRandom(context.Background(), "PG", nil, nil, testDefaults)
	if err != nil {
		t.Fatalf("first pick: %v", err)
	}
	for i := 0; i < 5; i++ {
		b, err := newTestSampler(cat, 42).PickRandom(context.Background(), "PG", nil, nil, testDefaults)
		if err != nil {
			t.Fatalf("repeat pick: %v", err)
		}
		if b.ID != a.ID {
			t.Fatalf("same seed gave %d then %d", a.ID, b.ID)
		}
	}
}

func TestSampler_PagesAreDistinctAndClamped(t *testing.T) {
	cat := &stubCatalog{total: 100000, pages: map[int][]domain.CatalogItem{}}
	s := newTestSampler(cat, 3)
	s.MaxPageDepth = 8
	s.PagesPerPick = 5

	_, _ = s.PickRandom(context.Background(), "G", nil, nil, testDefaults)
	pages := cat.fetchedPages()
	if len(pages) != 5 {
		t.Fatalf("expected 5 page fetches, got %v", pages)
	}
	sort.Ints(pages)
	for i, p := range pages {
		if p < 1 || p > 8 {
			t.Fatalf("page %d outside [1,8]", p)
		}
		if i > 0 && pages[i-1] == p {
			t.Fatalf("page %d fetched twice: %v", p, pages)
		}
	}
}

func TestSampler_TakesAllPagesWhenFewerThanRequested(t *testing.T) {
	cat := &stubCatalog{total: 2, pages: map[int][]domain.CatalogItem{1: items(1), 2: items(2)}}
	_, err := newTestSampler(cat, 9).PickRandom(context.Background(), "G", nil, nil, testDefaults)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	pages := cat.fetchedPages()
	sort.Ints(pages)
	if len(pages) != 2 || pages[0] != 1 || pages[1] != 2 {
		t.Fatalf("expected pages [1 2], got %v", pages)
	}

	zero := &stubCatalog{total: 0, pages: map[int][]domain.CatalogItem{1: items(5)}}
	it, err := newTestSampler(zero, 9).PickRandom(context.Background(), "G", nil, nil, testDefaults)
	if err != nil || it.ID != 5 {
		t.Fatalf("zero total should still read page 1: %+v %v", it, err)
	}
}

func TestSampler_FailedPageIsSkipped(t *testing.T) {
	cat := &stubCatalog{
		total: 3,
		pages: map[int][]domain.CatalogItem{1: items(10), 2: items(20), 3: items(30)},
		fail:  map[int]bool{1: true, 3: true},
	}
	for seed := uint64(0); seed < 10; seed++ {
		it, err := newTestSampler(cat, seed).PickRandom(context.Background(), "G", nil, nil, testDefaults)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if it.ID != 20 {
			t.Fatalf("expected item from the only healthy page, got %d", it.ID)
		}
	}

	cat.fail[2] = true
	if _, err := newTestSampler(cat, 1).PickRandom(context.Background(), "G", nil, nil, testDefaults); !errors.Is(err, ErrNoneFound) {
		t.Fatalf("all pages failing should be NoneFound, got %v", err)
	}
}

func TestSampler_PassesQueryThrough(t *testing.T) {
	cat := singlePage(1)
	f := testDefaults
	f.MinRating = 7
	if _, err := newTestSampler(cat, 1).PickRandom(context.Background(), "PG", nil, nil, f); err != nil {
		t.Fatalf("pick: %v", err)
	}
	if len(cat.queries) != 1 || cat.queries[0].AgeRating != "PG" || cat.queries[0].Filter.MinRating != 7 {
		t.Fatalf("unexpected query: %+v", cat.queries)
	}
}

func TestSampler_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestSampler(singlePage(1), 1).PickRandom(ctx, "G", nil, nil, testDefaults); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCandidatePool_DedupesFirstWins(t *testing.T) {
	a := domain.CatalogItem{ID: 1, Title: "first"}
	b := domain.CatalogItem{ID: 1, Title: "second"}
	pool := candidatePool([][]domain.CatalogItem{{a}, nil, {b, {ID: 2}}}, nil, nil)
	if len(pool) != 2 || pool[0].Title != "first" || pool[1].ID != 2 {
		t.Fatalf("unexpected pool: %+v", pool)
	}

	// an excluded id stays excluded even if it appears again later
	pool = candidatePool([][]domain.CatalogItem{{a}, {b}}, domain.NewItemSet(1), nil)
	if len(pool) != 0 {
		t.Fatalf("expected empty pool, got %+v", pool)
	}
}
