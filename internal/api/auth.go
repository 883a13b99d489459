package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier validates a bearer ID token and returns the user ID it
// belongs to. Verification itself is delegated to the identity provider.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
}

// AuthMiddleware requires a valid `Authorization: Bearer <id token>`
// header and stores the verified user ID under the "uid" context key.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	const prefix = "Bearer "

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		uid, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimPrefix(header, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("uid", uid)
		c.Next()
	}
}
