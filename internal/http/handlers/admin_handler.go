// Administrator HTTP handlers. Mounted behind RequireAdmin.
//
//   - GET  /admin/users/{id}
//   - POST /admin/users/{id}/quota/reset
//   - PUT  /admin/users/{id}/unlimited
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cartoon-bot/internal/domain"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
)

// AdminUserResponse summarizes one profile for the administrator.
type AdminUserResponse struct {
	Profile *domain.UserProfile `json:"profile"`
	Counts  repo.ListCounts     `json:"counts"`
	// Requests per window
	Limit int `json:"limit" example:"10"`
	// Seconds until the current window renews
	RemainingSeconds int64 `json:"remaining_seconds" example:"3600"`
}

// SetUnlimitedRequest is the JSON payload for PUT .../unlimited.
type SetUnlimitedRequest struct {
	Unlimited *bool `json:"unlimited" binding:"required" example:"true"`
}

// AdminGetUser godoc
// @ID          adminGetUser
// @Summary     Inspect a user
// @Description Returns the profile, list sizes and quota state of a user.
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Administrator id"  example(1000)
// @Param       id         path    string  true  "Target user ID"    example(123456789)
//
// @Success     200  {object}  handlers.AdminUserResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Administrator only"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /admin/users/{id} [get]
func (h *Handlers) AdminGetUser(c *gin.Context) {
	uid, good := pathUser(c)
	if !good {
		return
	}
	info, err := h.admin.Info(c.Request.Context(), uid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, AdminUserResponse{
		Profile:          info.Profile,
		Counts:           info.Counts,
		Limit:            info.Limit,
		RemainingSeconds: ceilSeconds(info.Remaining),
	})
}

// AdminResetQuota godoc
// @ID          adminResetQuota
// @Summary     Reset a user's quota
// @Description Zeroes the request counter and starts a fresh window now.
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Administrator id"  example(1000)
// @Param       id         path    string  true  "Target user ID"    example(123456789)
//
// @Success     200  {object}  domain.UserProfile
// @Failure     403  {object}  handlers.ErrorResponse  "Administrator only"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /admin/users/{id}/quota/reset [post]
func (h *Handlers) AdminResetQuota(c *gin.Context) {
	uid, good := pathUser(c)
	if !good {
		return
	}
	p, err := h.admin.ResetQuota(c.Request.Context(), uid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// AdminSetUnlimited godoc
// @ID          adminSetUnlimited
// @Summary     Grant or revoke unlimited access
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Administrator id"  example(1000)
// @Param       id         path    string  true  "Target user ID"    example(123456789)
// @Param       body       body    handlers.SetUnlimitedRequest  true  "New flag"
//
// @Success     200  {object}  domain.UserProfile
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Administrator only"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /admin/users/{id}/unlimited [put]
func (h *Handlers) AdminSetUnlimited(c *gin.Context) {
	uid, good := pathUser(c)
	if !good {
		return
	}
	var req SetUnlimitedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `body must be {"unlimited": true|false}`)
		return
	}
	p, err := h.admin.SetUnlimited(c.Request.Context(), uid, *req.Unlimited)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}
