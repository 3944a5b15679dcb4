// Reaction HTTP handler.
//
// POST /users/{id}/reactions records a like or dislike, or toggles a
// favorite. Repeating a like or dislike is not an error; the response says
// already_applied.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cartoon-bot/internal/services"
)

// ReactionRequest is the JSON payload for a reaction.
type ReactionRequest struct {
	// Catalog item id
	ItemID int64 `json:"item_id" binding:"required,gt=0" example:"12345"`
	// like | dislike | favorite (favorite toggles)
	Kind string `json:"kind" binding:"required,oneof=like dislike favorite" example:"like"`
}

// React godoc
// @ID          react
// @Summary     React to a cartoon
// @Description Adds the item to liked or disliked (and to seen), or toggles it in favorites.
// @Tags        Reactions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller (the user or the administrator)"  example(123456789)
// @Param       id         path    string  true  "User ID"                                  example(123456789)
// @Param       body       body    handlers.ReactionRequest  true  "Reaction"
//
// @Success     200  {object}  services.ReactionResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the caller's profile"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Profile store unavailable"
// @Router      /users/{id}/reactions [post]
func (h *Handlers) React(c *gin.Context) {
	uid, good := h.ownUser(c)
	if !good {
		return
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "item_id (> 0) and kind (like|dislike|favorite) are required")
		return
	}
	kind, err := services.ParseReactionKind(req.Kind)
	if err != nil {
		failService(c, err)
		return
	}

	res, err := h.react.Apply(c.Request.Context(), uid, req.ItemID, kind)
	if err != nil {
		failService(c, err)
		return
	}
	if res.Outcome == services.UserNotFound {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	}
	ok(c, http.StatusOK, res)
}
