// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// AuthRequired verifies the bearer token issued by the account service and
// records the caller on the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, key := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			rejectUnauthorized(c, key)
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			rejectUnauthorized(c, i18n.KeyAuthTokenExpired)
			return
		}

		utils.SetCaller(c, claims.UserID, claims.Username)
		c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>". On failure it returns
// the message key describing what was wrong with the header.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", i18n.KeyAuthRequired
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", i18n.KeyAuthInvalidToken
	}
	return strings.TrimSpace(token), ""
}

func rejectUnauthorized(c *gin.Context, key string) {
	utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), key))
	c.Abort()
}
