package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfchat/internal/pkg/jwtutil"
	"pdfchat/internal/transport/http/response"
)

const ContextMFAEmailKey = "mfa_email"

// RequireMFATicket admits requests carrying a Bearer ticket issued by verify-code and
// stores the verified email under ContextMFAEmailKey.
func RequireMFATicket(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseMFAToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired MFA ticket")
			return
		}

		c.Set(ContextMFAEmailKey, claims.Email)
		c.Next()
	}
}

// MFAEmail returns the email proven by the MFA ticket, if the route requires one.
func MFAEmail(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextMFAEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok && email != ""
}
