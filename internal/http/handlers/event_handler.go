// Event HTTP handler.
//
// POST /events feeds one chat event to the dispatcher. With an
// Idempotency-Key the first successful response is stored and redeliveries
// of the same key by the same user get the stored bytes back, marked with
// Idempotency-Replayed: true, without touching the bot again.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cartoon-bot/internal/http/middleware"
	"github.com/tbourn/go-cartoon-bot/internal/repo"
	"github.com/tbourn/go-cartoon-bot/internal/services"
)

// PostEvent godoc
// @ID          postEvent
// @Summary     Handle a chat event
// @Description Dispatches a command, free text or button press and returns the reply to send.
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Caller (must match user_id when set)"  example(123456789)
// @Param       Idempotency-Key  header  string  false "Platform update id for redelivery protection" example(upd-100500)
// @Param       body             body    services.Event  true  "Inbound event"
//
// @Success     200  {object}  services.Response
// @Header      200  {string}  Idempotency-Replayed  "true when served from a stored response"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller mismatch"
// @Failure     503  {object}  handlers.ErrorResponse  "Profile store unavailable"
// @Router      /events [post]
func (h *Handlers) PostEvent(c *gin.Context) {
	var ev services.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid event: user_id and kind (command|text|button) are required")
		return
	}
	ev.UserID = strings.TrimSpace(ev.UserID)
	if caller := middleware.UserID(c); caller != middleware.AnonymousUser && caller != ev.UserID {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "X-User-ID does not match user_id")
		return
	}

	ctx := c.Request.Context()
	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.events != nil {
		stored, err := h.events.Lookup(ctx, ev.UserID, key)
		if err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("processed event lookup failed")
		}
		if stored != nil {
			c.Header(middleware.HeaderReplayed, "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			return
		}
	}

	resp, err := h.bot.HandleEvent(ctx, ev)
	if err != nil {
		failService(c, err)
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	if hasKey && h.events != nil {
		err := h.events.Save(ctx, ev.UserID, key, http.StatusOK, body)
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			// stored by a concurrent redelivery
		case err != nil:
			middleware.LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("processed event not stored")
		}
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
