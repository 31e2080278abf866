package middleware

import (
	"log/slog"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pdfchat/internal/pkg/logging"
)

const (
	HeaderRequestID     = "X-Request-ID"
	ContextRequestIDKey = "request_id"
)

// RequestID propagates or mints a request id and attaches a logger carrying it to the request context.
func RequestID() gin.HandlerFunc {
	return requestid.New(
		requestid.WithGenerator(uuid.NewString),
		requestid.WithHandler(attachRequestLogger),
	)
}

func attachRequestLogger(c *gin.Context, id string) {
	c.Set(ContextRequestIDKey, id)
	logger := slog.Default().With("request_id", id)
	c.Request = c.Request.WithContext(logging.ContextWithLogger(c.Request.Context(), logger))
}
