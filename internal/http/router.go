// Package httpapi wires the HTTP transport (Gin) to the bot services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, caller identity, logging/redaction, panic
// recovery, compression, metrics, CORS, security headers, duplicate-delivery
// protection and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-cartoon-bot/internal/config"
	"github.com/tbourn/go-cartoon-bot/internal/http/handlers"
	"github.com/tbourn/go-cartoon-bot/internal/http/middleware"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
	"github.com/tbourn/go-cartoon-bot/internal/services"
)

// jsonBodyLimit caps every JSON endpoint.
const jsonBodyLimit = 1 << 20

// processedEventShim adapts the repository free functions to the
// handlers.EventStore interface.
type processedEventShim struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup proxies repo.GetProcessedEvent, mapping "not found" to (nil, nil).
func (s processedEventShim) Lookup(ctx context.Context, userID, key string) (*handlers.StoredResponse, error) {
	ev, err := repo.GetProcessedEvent(ctx, s.db, userID, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &handlers.StoredResponse{Status: ev.Status, Body: ev.Body}, nil
}

// Save proxies repo.CreateProcessedEvent.
func (s processedEventShim) Save(ctx context.Context, userID, key string, status int, body []byte) error {
	_, err := repo.CreateProcessedEvent(ctx, s.db, userID, key, status, body, s.ttl)
	return err
}

// exists is the middleware-facing lookup used to mark replays.
func (s processedEventShim) exists(ctx context.Context, userID, key string, _ time.Time) (bool, error) {
	rec, err := s.Lookup(ctx, userID, key)
	return rec != nil, err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: caller from X-User-ID
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Gzip (metrics endpoint excluded)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS, then security headers (no-store on per-user routes only)
//
// Body limits are per route: 1 MiB for JSON, the upload cap plus 1 MiB of
// multipart overhead for /cartoonize.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cat services.Catalog, cfg config.Config) *services.Bot {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key", "X-Telegram-Bot-Api-Secret-Token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	events := processedEventShim{db: db, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, events.exists))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Retry-After", middleware.HeaderReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header (health checks, curl)
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	var hsts time.Duration
	if cfg.Security.EnableHSTS {
		hsts = cfg.Security.HSTSMaxAge
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		HSTSMaxAge:      hsts,
		PrivatePrefixes: middleware.PrivateRoutes(cfg.APIBasePath, "users", "admin", "events"),
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	bot := services.NewBot(db, cat, cfg)
	h := handlers.New(handlers.Deps{
		Bot:                bot,
		Profiles:           bot.Store,
		Recommender:        bot.Recommender,
		Reactions:          bot.Reactions,
		Admin:              bot.Admin,
		Events:             events,
		CartoonizeMaxBytes: cfg.CartoonizeMaxBytes,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		js := api.Group("", limitBody(jsonBodyLimit))
		js.POST("/events", h.PostEvent)
		js.POST("/users/:id/recommendations", h.Recommend)
		js.POST("/users/:id/reactions", h.React)
		js.GET("/users/:id/favorites", h.ListFavorites)

		admin := js.Group("/admin", h.RequireAdmin)
		admin.GET("/users/:id", h.AdminGetUser)
		admin.POST("/users/:id/quota/reset", h.AdminResetQuota)
		admin.PUT("/users/:id/unlimited", h.AdminSetUnlimited)

		api.POST("/cartoonize", limitBody(cfg.CartoonizeMaxBytes+jsonBodyLimit), h.Cartoonize)
	}
	return bot
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Requests exceeding the cap cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
