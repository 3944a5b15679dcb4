// Recommendation and favorites HTTP handlers.
//
//   - POST /users/{id}/recommendations
//   - GET  /users/{id}/favorites
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/services"
)

//
// DTOs
//

// QuotaExceededResponse is the 429 body of a denied recommendation.
type QuotaExceededResponse struct {
	ErrorResponse
	// Seconds until the window renews
	RetryAfterSeconds int64 `json:"retry_after_seconds" example:"3600"`
}

// FavoritesResponse lists the user's favorite cartoons, oldest first.
type FavoritesResponse struct {
	Items []domain.CatalogItem `json:"items"`
}

// Recommend godoc
// @ID          recommend
// @Summary     Recommend a random cartoon
// @Description Picks a random unseen cartoon suitable for the child's age and filters, marks it seen and consumes one request from the quota.
// @Tags        Recommendations
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller (the user or the administrator)"  example(123456789)
// @Param       id         path    string  true  "User ID"                                  example(123456789)
//
// @Success     200  {object}  services.RecommendationResult
// @Failure     403  {object}  handlers.ErrorResponse          "Not the caller's profile"
// @Failure     404  {object}  handlers.ErrorResponse          "User not found or nothing matched (code none_found)"
// @Failure     409  {object}  handlers.ErrorResponse          "Onboarding incomplete"
// @Failure     429  {object}  handlers.QuotaExceededResponse  "Quota exhausted"
// @Header      429  {integer} Retry-After                      "Seconds until the window renews"
// @Failure     503  {object}  handlers.ErrorResponse          "Profile store unavailable"
// @Router      /users/{id}/recommendations [post]
func (h *Handlers) Recommend(c *gin.Context) {
	uid, good := h.ownUser(c)
	if !good {
		return
	}
	ctx := c.Request.Context()

	p, err := h.profiles.Get(ctx, uid)
	if err != nil {
		failService(c, err)
		return
	}

	res, err := h.rec.Recommend(ctx, p)
	if err != nil {
		failService(c, err)
		return
	}

	switch res.Status {
	case services.NotReady:
		fail(c, http.StatusConflict, ErrCodeOnboardingIncomplete, "finish onboarding (child name and age) first")
	case services.NoneFound:
		fail(c, http.StatusNotFound, ErrCodeNoneFound, "no unseen cartoon matches the current filters")
	case services.Denied:
		wait := max(res.Remaining.Seconds, 1)
		c.Header("Retry-After", strconv.FormatInt(wait, 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, QuotaExceededResponse{
			ErrorResponse: ErrorResponse{
				RequestID: c.Writer.Header().Get("X-Request-ID"),
				Code:      ErrCodeQuotaExceeded,
				Message:   "request limit reached, renews in " + res.Remaining.Text,
			},
			RetryAfterSeconds: wait,
		})
	default:
		ok(c, http.StatusOK, res)
	}
}

// ListFavorites godoc
// @ID          listFavorites
// @Summary     List favorites
// @Description Returns up to 10 favorite cartoons. Items the catalog cannot load are skipped.
// @Tags        Recommendations
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller (the user or the administrator)"  example(123456789)
// @Param       id         path    string  true  "User ID"                                  example(123456789)
//
// @Success     200  {object}  handlers.FavoritesResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not the caller's profile"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Profile store unavailable"
// @Router      /users/{id}/favorites [get]
func (h *Handlers) ListFavorites(c *gin.Context) {
	uid, good := h.ownUser(c)
	if !good {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.profiles.Get(ctx, uid); err != nil {
		failService(c, err)
		return
	}
	items, err := h.rec.Favorites(ctx, uid)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	ok(c, http.StatusOK, FavoritesResponse{Items: items})
}
