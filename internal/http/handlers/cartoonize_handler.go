// Cartoonize HTTP handler.
//
// POST /cartoonize accepts a JPEG or PNG upload and answers with a fixed
// placeholder image; no processing happens. Both the declared part type and
// the sniffed content must be an accepted image type.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cartoon-bot/internal/http/middleware"
)

// placeholderImage is a 1x1 PNG.
const placeholderImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8/5+hHgAHggJ/PchI7wAAAABJRU5ErkJggg=="

var acceptedImageTypes = []string{"image/jpeg", "image/png"}

// CartoonizeResponse is the stub's success body.
type CartoonizeResponse struct {
	Success        bool   `json:"success" example:"true"`
	ProcessedImage string `json:"processedImage" example:"data:image/png;base64,iVBORw0KGgo..."`
	Message        string `json:"message" example:"Image processed successfully"`
}

// Cartoonize godoc
// @ID          cartoonize
// @Summary     Cartoonize an image (stub)
// @Description Validates a JPEG/PNG upload and returns a placeholder image as a data URL.
// @Tags        Cartoonize
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       image  formData  file  true  "JPEG or PNG picture"
//
// @Success     200  {object}  handlers.CartoonizeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing file, wrong type or too large"
// @Router      /cartoonize [post]
func (h *Handlers) Cartoonize(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.failTooLarge(c)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no image file provided")
		return
	}
	if fh.Size > h.maxUpload {
		h.failTooLarge(c)
		return
	}
	if declared := fh.Header.Get("Content-Type"); !mimetype.EqualsAny(declared, acceptedImageTypes...) {
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedImage, "only JPEG and PNG images are accepted")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable upload")
		return
	}
	if int64(len(data)) > h.maxUpload {
		h.failTooLarge(c)
		return
	}
	if sniffed := mimetype.Detect(data); !mimetype.EqualsAny(sniffed.String(), acceptedImageTypes...) {
		middleware.LoggerFrom(c).Info().Str("declared", fh.Header.Get("Content-Type")).Str("sniffed", sniffed.String()).Msg("upload rejected")
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedImage, "only JPEG and PNG images are accepted")
		return
	}

	middleware.ObserveUpload(int64(len(data)))
	ok(c, http.StatusOK, CartoonizeResponse{
		Success:        true,
		ProcessedImage: placeholderImage,
		Message:        "Image processed successfully",
	})
}

func (h *Handlers) failTooLarge(c *gin.Context) {
	fail(c, http.StatusBadRequest, ErrCodeImageTooLarge, fmt.Sprintf("file too large, maximum size is %d MB", h.maxUpload>>20))
}
