package middleware

import (
	"net/http"
	"strings"

	"go-brokerage-backend/internal/delivery/http/response"
	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the session token and confirms the profile still
// exists before letting the request through. The verified email lands in the
// context for handlers to scope their work to the session owner.
func AuthMiddleware(tokens *auth.TokenService, authUC domain.AuthUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			cookie, err := c.Cookie("auth_token")
			if err == nil && cookie != "" {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required", nil)
			c.Abort()
			return
		}

		email, err := tokens.Verify(tokenString)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid token", nil)
			c.Abort()
			return
		}

		// A valid token for a deleted profile is still unauthorized.
		if _, err := authUC.GetCurrentProfile(c.Request.Context(), email); err != nil {
			response.Error(c, http.StatusUnauthorized, "User not found", nil)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUserEmail), email)
		c.Next()
	}
}
