package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/app"
	"pdfchat/internal/pkg/logging"
)

const (
	CodeBadRequest        = 40000
	CodeSessionNotFound   = 40001
	CodeCodeInvalid       = 40002
	CodeCodeExpired       = 40003
	CodeUnauthorized      = 40100
	CodeInvalidCredential = 40101
	CodeTooLarge          = 41300
	CodeInternalServer    = 50000
	CodeGenerationFailure = 50001
	CodeConfiguration     = 50002
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus, code int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Detail: detail, Code: code})
}

// FromError maps a service error onto its HTTP status. Unclassified errors are logged and
// reported with a generic detail.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		Error(c, http.StatusBadRequest, CodeBadRequest, app.Detail(err))
	case errors.Is(err, app.ErrSessionNotFound):
		Error(c, http.StatusBadRequest, CodeSessionNotFound, app.Detail(err))
	case errors.Is(err, app.ErrCodeExpired):
		Error(c, http.StatusBadRequest, CodeCodeExpired, app.Detail(err))
	case errors.Is(err, app.ErrCodeInvalid):
		Error(c, http.StatusBadRequest, CodeCodeInvalid, app.Detail(err))
	case errors.Is(err, app.ErrInvalidCredential):
		Error(c, http.StatusUnauthorized, CodeInvalidCredential, app.Detail(err))
	case errors.Is(err, app.ErrGenerationFailure):
		Error(c, http.StatusInternalServerError, CodeGenerationFailure, app.Detail(err))
	case errors.Is(err, app.ErrConfiguration):
		Error(c, http.StatusInternalServerError, CodeConfiguration, app.Detail(err))
	default:
		logging.FromContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "internal server error")
	}
}
