package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-cartoon-bot/internal/catalog"
	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/http/middleware"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
	"github.com/tbourn/go-cartoon-bot/internal/services"
)

// ---- helpers ----

// fakeCatalog serves a fixed single-page catalog.
type fakeCatalog struct {
	items []domain.CatalogItem
}

func (f fakeCatalog) TotalPageCount(context.Context, catalog.Query) int { return 1 }

func (f fakeCatalog) FetchPage(_ context.Context, page int, _ catalog.Query) ([]domain.CatalogItem, error) {
	if page != 1 {
		return nil, nil
	}
	return f.items, nil
}

func (f fakeCatalog) FetchItemDetails(_ context.Context, id int64) (*domain.CatalogItem, error) {
	for _, it := range f.items {
		if it.ID == id {
			it := it
			return &it, nil
		}
	}
	return nil, catalog.ErrItemNotFound
}

func (f fakeCatalog) PosterURL(path string) string {
	if path == "" {
		return ""
	}
	return "https://img.test/w500" + path
}

func oneCartoon() fakeCatalog {
	return fakeCatalog{items: []domain.CatalogItem{
		{ID: 42, Title: "Moana", Overview: "Sea voyage.", Rating: 7.6, PosterPath: "/moana.jpg", ReleaseDate: "2016-11-23"},
	}}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:        "/api/v1",
		AdminID:            "admin",
		RateRPS:            100,
		RateBurst:          100,
		CORS:               config.CORSConfig{}, // allow-all branch
		Security:           config.SecurityConfig{EnableHSTS: false},
		OTEL:               config.OTELConfig{ServiceName: "svc"},
		IdempotencyTTL:     time.Hour,
		CartoonizeMaxBytes: 1 << 20,
		Sampler:            config.SamplerConfig{MaxPageDepth: 100, PagesPerPick: 5, Concurrency: 2},
		Quota:              config.QuotaConfig{RequestLimit: 2, ResetInterval: 12 * time.Hour},
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, oneCartoon(), cfg)
	return r, db
}

func do(r http.Handler, method, path, user, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func event(user, kind, payload string) string {
	b, _ := json.Marshal(services.Event{UserID: user, Kind: services.EventKind(kind), Payload: payload})
	return string(b)
}

// onboard walks a user through /start, name and age over HTTP.
func onboard(t *testing.T, r http.Handler, user string) {
	t.Helper()
	for _, ev := range []string{
		event(user, "command", "/start"),
		event(user, "text", "Mia"),
		event(user, "text", "5"),
	} {
		w := do(r, http.MethodPost, "/api/v1/events", user, ev)
		if w.Code != http.StatusOK {
			t.Fatalf("onboarding event %s = %d body=%s", ev, w.Code, w.Body.String())
		}
	}
}

// ---- tests ----

func TestRegisterRoutes_Health_Metrics_Fallbacks_CORS(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := do(r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/health status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("CORS allow-all expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if got := w.Header().Get("Cache-Control"); got != "" {
		t.Fatalf("/health should stay cacheable, got Cache-Control %q", got)
	}
	if got := do(r, http.MethodGet, "/api/v1/users/u1/favorites", "u1", "").Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("favorites must be no-store, got %q", got)
	}

	w = do(r, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bot_http_requests_total") {
		t.Fatalf("/metrics missing http counters")
	}

	w = do(r, http.MethodGet, "/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("NoRoute expected 404, got %d", w.Code)
	}
	var er struct{ Code string }
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != "not_found" {
		t.Fatalf("NoRoute code = %q", er.Code)
	}

	w = do(r, http.MethodPost, "/health", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("NoMethod expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORS_OriginsEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://allowed.example"}}
	r, _ := newTestRouter(t, cfg)

	w := do(r, http.MethodGet, "/health", "", "", "Origin", "https://allowed.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://allowed.example" {
		t.Fatalf("allowed origin not echoed, got %q", got)
	}

	w = do(r, http.MethodGet, "/health", "", "", "Origin", "https://evil.example")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin must not be echoed, got %q", got)
	}
}

func TestRegisterRoutes_SwaggerToggle(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	if w := do(r, http.MethodGet, "/swagger/index.html", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled expected 404, got %d", w.Code)
	}

	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ = newTestRouter(t, cfg)
	if w := do(r, http.MethodGet, "/swagger/index.html", "", ""); w.Code != http.StatusOK {
		t.Fatalf("swagger enabled expected 200, got %d", w.Code)
	}
}

func TestEvents_OnboardingThenRecommendation(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	onboard(t, r, "u1")

	w := do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "button", services.ActionRandom))
	if w.Code != http.StatusOK {
		t.Fatalf("random = %d body=%s", w.Code, w.Body.String())
	}
	var resp services.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.PhotoURL != "https://img.test/w500/moana.jpg" {
		t.Fatalf("photo_url = %q", resp.PhotoURL)
	}
	if !strings.Contains(resp.Text, "Moana") {
		t.Fatalf("caption should name the cartoon, got %q", resp.Text)
	}
}

func TestEvents_CallerMismatch(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	w := do(r, http.MethodPost, "/api/v1/events", "someone-else", event("u1", "command", "/start"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestEvents_IdempotentRedelivery(t *testing.T) {
	r, db := newTestRouter(t, testConfig())
	do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "command", "/start"))

	first := do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "text", "Mia"),
		middleware.HeaderIdempotencyKey, "upd-1")
	if first.Code != http.StatusOK {
		t.Fatalf("first delivery = %d", first.Code)
	}
	if first.Header().Get(middleware.HeaderReplayed) != "" {
		t.Fatalf("first delivery must not be marked replayed")
	}

	// the replay must not feed "Mia" to the age step
	second := do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "text", "Mia"),
		middleware.HeaderIdempotencyKey, "upd-1")
	if second.Code != http.StatusOK {
		t.Fatalf("redelivery = %d", second.Code)
	}
	if second.Header().Get(middleware.HeaderReplayed) != "true" {
		t.Fatalf("redelivery should be marked replayed")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	p, err := repo.GetProfile(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Step != domain.StepAwaitingAge || p.ChildName != "Mia" {
		t.Fatalf("profile after replay = step %q name %q", p.Step, p.ChildName)
	}

	// same key, different user: processed normally
	third := do(r, http.MethodPost, "/api/v1/events", "u2", event("u2", "command", "/start"),
		middleware.HeaderIdempotencyKey, "upd-1")
	if third.Header().Get(middleware.HeaderReplayed) != "" {
		t.Fatalf("keys are scoped per user")
	}
}

func TestEvents_BadIdempotencyKey(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	w := do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "command", "/start"),
		middleware.HeaderIdempotencyKey, "bad key!")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecommendations_QuotaAndOwnership(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	if w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user expected 404, got %d", w.Code)
	}

	do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "command", "/start"))
	if w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", ""); w.Code != http.StatusConflict {
		t.Fatalf("incomplete onboarding expected 409, got %d", w.Code)
	}
	do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "text", "Mia"))
	do(r, http.MethodPost, "/api/v1/events", "u1", event("u1", "text", "5"))

	if w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u2", ""); w.Code != http.StatusForbidden {
		t.Fatalf("foreign caller expected 403, got %d", w.Code)
	}

	w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("recommend = %d body=%s", w.Code, w.Body.String())
	}
	var res services.RecommendationResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Status != services.Delivered || res.Item == nil || res.Item.ID != 42 {
		t.Fatalf("unexpected result %+v", res)
	}

	// the only cartoon is now seen
	if w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("exhausted catalog expected 404, got %d", w.Code)
	}
}

func TestRecommendations_QuotaExceeded(t *testing.T) {
	cat := fakeCatalog{items: []domain.CatalogItem{
		{ID: 1, Title: "A", Rating: 7}, {ID: 2, Title: "B", Rating: 7}, {ID: 3, Title: "C", Rating: 7},
	}}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), cat, testConfig())
	onboard(t, r, "u1")

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i+1, w.Code)
		}
	}
	w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	var body struct {
		Code              string `json:"code"`
		RetryAfterSeconds int64  `json:"retry_after_seconds"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != "quota_exceeded" || body.RetryAfterSeconds <= 0 {
		t.Fatalf("unexpected 429 body %s", w.Body.String())
	}

	// admin resets the window
	if w := do(r, http.MethodPost, "/api/v1/admin/users/u1/quota/reset", "admin", ""); w.Code != http.StatusOK {
		t.Fatalf("admin reset = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/users/u1/recommendations", "u1", ""); w.Code != http.StatusOK {
		t.Fatalf("after reset = %d", w.Code)
	}
}

func TestReactionsAndFavorites(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	onboard(t, r, "u1")

	w := do(r, http.MethodPost, "/api/v1/users/u1/reactions", "u1", `{"item_id":42,"kind":"favorite"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("favorite = %d body=%s", w.Code, w.Body.String())
	}
	var res services.ReactionResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Outcome != services.Applied || !res.Added {
		t.Fatalf("unexpected favorite result %+v", res)
	}

	w = do(r, http.MethodGet, "/api/v1/users/u1/favorites", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("favorites = %d", w.Code)
	}
	var favs struct {
		Items []domain.CatalogItem `json:"items"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &favs)
	if len(favs.Items) != 1 || favs.Items[0].ID != 42 {
		t.Fatalf("favorites = %+v", favs.Items)
	}

	do(r, http.MethodPost, "/api/v1/users/u1/reactions", "u1", `{"item_id":42,"kind":"like"}`)
	w = do(r, http.MethodPost, "/api/v1/users/u1/reactions", "u1", `{"item_id":42,"kind":"like"}`)
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Outcome != services.AlreadyApplied {
		t.Fatalf("second like outcome = %q", res.Outcome)
	}

	if w := do(r, http.MethodPost, "/api/v1/users/u1/reactions", "u1", `{"item_id":42,"kind":"meh"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad kind expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/users/ghost/reactions", "ghost", `{"item_id":42,"kind":"like"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user expected 404, got %d", w.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	onboard(t, r, "u1")

	if w := do(r, http.MethodGet, "/api/v1/admin/users/u1", "u1", ""); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/admin/users/u1", "", ""); w.Code != http.StatusForbidden {
		t.Fatalf("anonymous expected 403, got %d", w.Code)
	}

	w := do(r, http.MethodGet, "/api/v1/admin/users/u1", "admin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("admin get = %d", w.Code)
	}
	var info struct {
		Profile *domain.UserProfile `json:"profile"`
		Limit   int                 `json:"limit"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.Profile == nil || info.Profile.ChildName != "Mia" || info.Limit != 2 {
		t.Fatalf("admin info = %s", w.Body.String())
	}

	w = do(r, http.MethodPut, "/api/v1/admin/users/u1/unlimited", "admin", `{"unlimited":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set unlimited = %d", w.Code)
	}
	var p domain.UserProfile
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if !p.IsUnlimited {
		t.Fatalf("expected unlimited profile, got %s", w.Body.String())
	}

	if w := do(r, http.MethodPut, "/api/v1/admin/users/u1/unlimited", "admin", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing flag expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/admin/users/ghost", "admin", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown target expected 404, got %d", w.Code)
	}
}

func Test_processedEventShim(t *testing.T) {
	db := newTestDB(t)
	shim := processedEventShim{db: db, ttl: time.Hour}
	ctx := context.Background()

	rec, err := shim.Lookup(ctx, "u1", "k1")
	if err != nil || rec != nil {
		t.Fatalf("Lookup miss = %+v, %v", rec, err)
	}
	if hit, err := shim.exists(ctx, "u1", "k1", time.Now()); err != nil || hit {
		t.Fatalf("exists miss = %v, %v", hit, err)
	}

	if err := shim.Save(ctx, "u1", "k1", http.StatusOK, []byte(`{"text":"hi"}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err = shim.Lookup(ctx, "u1", "k1")
	if err != nil || rec == nil {
		t.Fatalf("Lookup hit = %+v, %v", rec, err)
	}
	if rec.Status != http.StatusOK || string(rec.Body) != `{"text":"hi"}` {
		t.Fatalf("stored response = %d %s", rec.Status, rec.Body)
	}
	if hit, _ := shim.exists(ctx, "u1", "k1", time.Now()); !hit {
		t.Fatalf("exists should report a hit")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()
	if _, err := shim.Lookup(ctx, "u1", "k2"); err == nil {
		t.Fatalf("expected error on closed database")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/echo", limitBody(8), func(c *gin.Context) {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, buf.String())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("12345678")))
	if w.Code != http.StatusOK || w.Body.String() != "12345678" {
		t.Fatalf("within limit got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("123456789")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("over limit expected 413, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
