package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-cartoon-bot/internal/catalog"
	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// ---------- test helpers ----------

var testDefaults = domain.FilterProfile{
	GenreID:                16,
	MinRating:              5,
	ExcludedLanguages:      []string{"ja"},
	CertificationCountries: []string{"UA", "RU"},
}

func newSvcDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := repo.AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newStore(t *testing.T) *ProfileStore {
	t.Helper()
	return &ProfileStore{DB: newSvcDB(t, true), Defaults: testDefaults}
}

// newFileStore backs the store with an on-disk database so goroutines run
// on separate pooled connections.
func newFileStore(t *testing.T) *ProfileStore {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &ProfileStore{DB: db, Defaults: testDefaults}
}

// together runs fn n times in parallel, released at once, and returns the
// per-call errors.
func together(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

// countItems counts membership rows for one (user, list, item).
func countItems(t *testing.T, s *ProfileStore, userID string, list domain.ItemList, itemID int64) int64 {
	t.Helper()
	var n int64
	err := s.DB.Model(&domain.ProfileItem{}).
		Where("user_id = ? AND list = ? AND item_id = ?", userID, list, itemID).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count %s: %v", list, err)
	}
	return n
}

// onboarded creates a Ready profile.
func onboarded(t *testing.T, s *ProfileStore, userID, name string, age int) *domain.UserProfile {
	t.Helper()
	ctx := context.Background()
	if _, err := s.GetOrCreate(ctx, userID, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	step := domain.StepReady
	p, err := s.Update(ctx, userID, repo.ProfileUpdate{ChildName: &name, ChildAge: &age, Step: &step})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	return p
}

// setQuota writes counter and window start directly.
func setQuota(t *testing.T, s *ProfileStore, userID string, count int, lastReset time.Time) *domain.UserProfile {
	t.Helper()
	err := s.DB.Model(&domain.UserProfile{}).Where("user_id = ?", userID).
		Updates(map[string]any{"request_count": count, "last_reset_at": lastReset.UTC()}).Error
	if err != nil {
		t.Fatalf("set quota: %v", err)
	}
	p, err := s.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return p
}

func items(ids ...int64) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(ids))
	for i, id := range ids {
		out[i] = domain.CatalogItem{ID: id, Title: fmt.Sprintf("Item %d", id), Rating: 7, PosterPath: fmt.Sprintf("/p%d.jpg", id)}
	}
	return out
}

// stubCatalog implements PageSource and ItemSource.
type stubCatalog struct {
	mu      sync.Mutex
	total   int
	pages   map[int][]domain.CatalogItem
	fail    map[int]bool
	details map[int64]domain.CatalogItem
	fetched []int
	queries []catalog.Query
}

func (c *stubCatalog) TotalPageCount(_ context.Context, q catalog.Query) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	return c.total
}

func (c *stubCatalog) FetchPage(_ context.Context, page int, _ catalog.Query) ([]domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = append(c.fetched, page)
	if c.fail[page] {
		return nil, &catalog.UpstreamError{Op: "discover", Page: page, Err: errors.New("boom")}
	}
	return c.pages[page], nil
}

func (c *stubCatalog) FetchItemDetails(_ context.Context, id int64) (*domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.details[id]
	if !ok {
		return nil, catalog.ErrItemNotFound
	}
	return &it, nil
}

func (c *stubCatalog) PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return "https://img.test/w500/" + strings.TrimPrefix(path, "/")
}

func (c *stubCatalog) fetchedPages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.fetched...)
}

// singlePage serves ids on page 1 of a one-page catalog.
func singlePage(ids ...int64) *stubCatalog {
	return &stubCatalog{total: 1, pages: map[int][]domain.CatalogItem{1: items(ids...)}}
}

func newTestSampler(src PageSource, seed uint64) *Sampler {
	s := NewSampler(src, config.SamplerConfig{MaxPageDepth: 100, PagesPerPick: 5, Concurrency: 3})
	return s.WithRand(rand.New(rand.NewPCG(seed, seed+1)))
}

type testRig struct {
	store   *ProfileStore
	quota   *QuotaGovernor
	catalog *stubCatalog
	bot     *Bot
}

func newRig(t *testing.T, cat *stubCatalog, adminID string) *testRig {
	t.Helper()
	store := newStore(t)
	quota := &QuotaGovernor{Store: store, Limit: 3, Interval: 12 * time.Hour}
	rec := &Recommender{Store: store, Quota: quota, Sampler: newTestSampler(cat, 7), Items: cat}
	return &testRig{
		store:   store,
		quota:   quota,
		catalog: cat,
		bot: &Bot{
			Store:       store,
			Onboarding:  NewOnboarding(store),
			Recommender: rec,
			Reactions:   &ReactionToggler{Store: store},
			Quota:       quota,
			Admin:       &AdminService{Store: store, Quota: quota, AdminID: adminID},
		},
	}
}

func (r *testRig) send(t *testing.T, userID string, kind EventKind, payload string) Response {
	t.Helper()
	resp, err := r.bot.HandleEvent(context.Background(), Event{UserID: userID, Kind: kind, Payload: payload})
	if err != nil {
		t.Fatalf("HandleEvent(%s %q): %v", kind, payload, err)
	}
	return resp
}

func (r *testRig) profile(t *testing.T, userID string) *domain.UserProfile {
	t.Helper()
	p, err := r.store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get %s: %v", userID, err)
	}
	return p
}

func hasButton(resp Response, data string) bool {
	for _, r := range resp.Buttons {
		for _, b := range r {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

func reload(t *testing.T, s *ProfileStore, userID string) *domain.UserProfile {
	t.Helper()
	p, err := s.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("reload %s: %v", userID, err)
	}
	return p
}

// onboardedInMemory is a Ready profile that was never stored.
func onboardedInMemory(lastReset time.Time) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:      "mem",
		Step:        domain.StepReady,
		ChildName:   "Mia",
		ChildAge:    5,
		LastResetAt: lastReset,
		Filter:      testDefaults,
	}
}
