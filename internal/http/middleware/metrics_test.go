package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/users/:id/favorites", func(c *gin.Context) { c.String(http.StatusOK, "[]") })
	r.DELETE("/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseFav := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/users/:id/favorites", "200"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/cartoons/42", "404"))
	baseDel := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/users/:id", "204"))

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/users/u1/favorites", http.StatusOK},
		{http.MethodGet, "/users/u2/favorites", http.StatusOK},
		{http.MethodGet, "/cartoons/42", http.StatusNotFound},
		{http.MethodDelete, "/users/u1", http.StatusNoContent},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s -> %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}

	// both users collapse into the route label
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/users/:id/favorites", "200")); got != baseFav+2 {
		t.Fatalf("favorites counter = %v, want %v", got, baseFav+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/cartoons/42", "404")); got != baseMiss+1 {
		t.Fatalf("unmatched path counter = %v, want %v", got, baseMiss+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/users/:id", "204")); got != baseDel+1 {
		t.Fatalf("delete counter = %v, want %v", got, baseDel+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("in-flight gauge = %v, want 0", inFlight)
	}
}

func TestObserveUpload(t *testing.T) {
	ObserveUpload(-1)
	ObserveUpload(200 << 10)
	if n := testutil.CollectAndCount(uploadSize, "bot_upload_size_bytes"); n != 1 {
		t.Fatalf("expected one upload histogram, got %d", n)
	}
}
