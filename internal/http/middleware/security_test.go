package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newSecuredEngine(opt SecurityOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(opt))
	r.NoRoute(func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestSecurityHeaders_CacheRulesByRoute(t *testing.T) {
	r := newSecuredEngine(SecurityOptions{
		PrivatePrefixes: PrivateRoutes("/api/v1", "users", "admin", "events"),
	})

	tests := []struct {
		path    string
		private bool
	}{
		{"/api/v1/users/u1/favorites", true},
		{"/api/v1/users/u1/recommendations", true},
		{"/api/v1/admin/users/u1", true},
		{"/api/v1/events", true},
		{"/api/v1/usersx", false},
		{"/api/v1/cartoonize", false},
		{"/health", false},
		{"/metrics", false},
		{"/swagger/index.html", false},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			h := w.Header()

			if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("X-Frame-Options") != "DENY" || h.Get("Referrer-Policy") != "no-referrer" {
				t.Fatalf("baseline headers missing: %#v", h)
			}
			if tc.private {
				if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" {
					t.Fatalf("per-user route must not be cached: %#v", h)
				}
				if h.Get("Vary") != HeaderUserID {
					t.Fatalf("Vary = %q, want %q", h.Get("Vary"), HeaderUserID)
				}
				return
			}
			if h.Get("Cache-Control") != "" || h.Get("Vary") != "" {
				t.Fatalf("shared route got private cache headers: %#v", h)
			}
		})
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		name  string
		age   time.Duration
		setup func(*http.Request)
		want  string
	}{
		{"tls", 24 * time.Hour, func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, "max-age=86400; includeSubDomains"},
		{"forwarded", time.Hour, func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }, "max-age=3600; includeSubDomains"},
		{"plain_http", time.Hour, func(*http.Request) {}, ""},
		{"disabled", 0, func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newSecuredEngine(SecurityOptions{HSTSMaxAge: tc.age})
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if got := w.Header().Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrivateRoutes(t *testing.T) {
	if got := PrivateRoutes("/api/v1/", "/users/", "admin"); !reflect.DeepEqual(got, []string{"/api/v1/users", "/api/v1/admin"}) {
		t.Fatalf("PrivateRoutes = %v", got)
	}
	if got := PrivateRoutes("/", "events"); !reflect.DeepEqual(got, []string{"/events"}) {
		t.Fatalf("PrivateRoutes at root = %v", got)
	}
}

func Test_cleanPrefixes_DropsRoot(t *testing.T) {
	got := cleanPrefixes([]string{"", "/", "api/v1/users/"})
	if !reflect.DeepEqual(got, []string{"/api/v1/users"}) {
		t.Fatalf("cleanPrefixes = %v", got)
	}
	// a root prefix would make every route private
	r := newSecuredEngine(SecurityOptions{PrivatePrefixes: []string{"/"}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("root prefix must be ignored")
	}
}
