package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// HSTSMaxAge > 0 sends Strict-Transport-Security on HTTPS requests.
	HSTSMaxAge time.Duration

	// PrivatePrefixes are route prefixes whose responses belong to a single
	// caller: profiles, quota state, favorites and event replies. They are
	// marked no-store and vary by X-User-ID. Matching is per path segment,
	// so "/api/v1/users" covers "/api/v1/users/42" but not "/api/v1/usersx".
	PrivatePrefixes []string
}

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, and the cache rules for per-user routes. Health, metrics and
// swagger stay cacheable.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	var hsts string
	if secs := int64(opt.HSTSMaxAge / time.Second); secs > 0 {
		hsts = "max-age=" + strconv.FormatInt(secs, 10) + "; includeSubDomains"
	}
	private := cleanPrefixes(opt.PrivatePrefixes)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hasPrefix(c.Request.URL.Path, private) {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Add("Vary", HeaderUserID)
		}
		if hsts != "" && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// PrivateRoutes joins the per-user route roots onto the API base path.
func PrivateRoutes(base string, roots ...string) []string {
	base = strings.TrimRight(base, "/")
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		out = append(out, base+"/"+strings.Trim(r, "/"))
	}
	return out
}

func cleanPrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = "/" + strings.Trim(p, "/")
		if p != "/" {
			out = append(out, p)
		}
	}
	return out
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// isHTTPS reports TLS either on the connection or behind a proxy that set
// X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
