// internal/utils/context.go
package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keys set on the gin context by the middleware chain.
const (
	ContextKeyLang     = "lang"
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
)

func SetLang(c *gin.Context, lang string) {
	c.Set(ContextKeyLang, lang)
}

// SetCaller records the authenticated user for downstream handlers.
func SetCaller(c *gin.Context, userID, username string) {
	c.Set(ContextKeyUserID, userID)
	c.Set(ContextKeyUsername, username)
}

func GetLangFromContext(c *gin.Context) string {
	if lang := c.GetString(ContextKeyLang); lang != "" {
		return lang
	}
	return "en"
}

func GetUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(ContextKeyUserID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func GetUsernameFromContext(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}
