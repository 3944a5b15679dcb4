// Package handlers exposes the bot core over REST.
//
// Endpoints (relative to the API base path):
//   - POST /events                              (inbound chat event)
//   - POST /users/{id}/recommendations          (one random cartoon)
//   - POST /users/{id}/reactions                (like / dislike / favorite)
//   - GET  /users/{id}/favorites                (favorites view)
//   - GET  /admin/users/{id}                    (admin: profile summary)
//   - POST /admin/users/{id}/quota/reset        (admin: fresh window)
//   - PUT  /admin/users/{id}/unlimited          (admin: quota bypass)
//   - POST /cartoonize                          (image stub)
//
// Handlers are transport-thin: they bind and validate input, call the
// services and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/http/middleware"
	"github.com/tbourn/go-cartoon-bot/internal/services"
)

//
// Service contracts (context-aware)
//

// EventService dispatches inbound chat events.
type EventService interface {
	HandleEvent(ctx context.Context, ev services.Event) (services.Response, error)
}

// ProfileService loads existing profiles.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// RecommendationService serves recommendations and the favorites view.
type RecommendationService interface {
	Recommend(ctx context.Context, p *domain.UserProfile) (services.RecommendationResult, error)
	Favorites(ctx context.Context, userID string) ([]domain.CatalogItem, error)
}

// ReactionService applies reactions.
type ReactionService interface {
	Apply(ctx context.Context, userID string, itemID int64, kind services.ReactionKind) (services.ReactionResult, error)
}

// AdminService implements the administrator operations.
type AdminService interface {
	IsAdmin(userID string) bool
	Info(ctx context.Context, target string) (services.AdminInfo, error)
	ResetQuota(ctx context.Context, target string) (*domain.UserProfile, error)
	SetUnlimited(ctx context.Context, target string, unlimited bool) (*domain.UserProfile, error)
}

// StoredResponse is a previously processed event response.
type StoredResponse struct {
	Status int
	Body   []byte
}

// EventStore remembers processed deliveries keyed by (user, idempotency key).
// Lookup returns (nil, nil) when nothing is stored.
type EventStore interface {
	Lookup(ctx context.Context, userID, key string) (*StoredResponse, error)
	Save(ctx context.Context, userID, key string, status int, body []byte) error
}

//
// Handler wiring
//

// Deps groups the services the handlers depend on. Events may be nil, which
// disables duplicate-delivery protection.
type Deps struct {
	Bot         EventService
	Profiles    ProfileService
	Recommender RecommendationService
	Reactions   ReactionService
	Admin       AdminService
	Events      EventStore

	// CartoonizeMaxBytes caps accepted uploads; <= 0 means 5 MiB.
	CartoonizeMaxBytes int64
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	bot      EventService
	profiles ProfileService
	rec      RecommendationService
	react    ReactionService
	admin    AdminService
	events   EventStore

	maxUpload int64
}

// New constructs a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	maxUpload := d.CartoonizeMaxBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Handlers{
		bot:       d.Bot,
		profiles:  d.Profiles,
		rec:       d.Recommender,
		react:     d.Reactions,
		admin:     d.Admin,
		events:    d.Events,
		maxUpload: maxUpload,
	}
}

//
// Helpers
//

// pathUser returns the {id} path parameter, rejecting blank or oversized ids.
func pathUser(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" || len(id) > 64 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be 1-64 characters")
		return "", false
	}
	return id, true
}

// ownUser returns the {id} path parameter when the caller is that user or
// the administrator.
func (h *Handlers) ownUser(c *gin.Context) (string, bool) {
	id, good := pathUser(c)
	if !good {
		return "", false
	}
	caller := middleware.UserID(c)
	if caller != id && !h.admin.IsAdmin(caller) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "callers may only act on their own profile")
		return "", false
	}
	return id, true
}

// RequireAdmin aborts with 403 unless X-User-ID is the configured admin.
func (h *Handlers) RequireAdmin(c *gin.Context) {
	if !h.admin.IsAdmin(middleware.UserID(c)) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "administrator only")
		return
	}
	c.Next()
}

// ceilSeconds renders a wait as whole seconds, rounding up.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
