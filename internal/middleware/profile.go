// internal/middleware/profile.go
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/cardswap/cardswap-backend/internal/utils"
)

// ProfileEnsurer creates the local profile row for a token subject.
type ProfileEnsurer interface {
	EnsureUser(ctx context.Context, userID uuid.UUID, username string) error
}

// ProfileEnsurerFunc adapts a function to ProfileEnsurer.
type ProfileEnsurerFunc func(ctx context.Context, userID uuid.UUID, username string) error

func (f ProfileEnsurerFunc) EnsureUser(ctx context.Context, userID uuid.UUID, username string) error {
	return f(ctx, userID, username)
}

// EnsureProfile makes sure every authenticated caller has a users row before
// handlers run. Ids already seen are remembered in an LRU so the store is hit
// once per user per process.
func EnsureProfile(ensurer ProfileEnsurer, cacheSize int) gin.HandlerFunc {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	seen, err := lru.New(cacheSize)
	if err != nil {
		panic(err)
	}

	return func(c *gin.Context) {
		userID, ok := utils.GetUserIDFromContext(c)
		if !ok {
			c.Next()
			return
		}
		if seen.Contains(userID) {
			c.Next()
			return
		}

		if err := ensurer.EnsureUser(c.Request.Context(), userID, utils.GetUsernameFromContext(c)); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("Failed to ensure user profile")
			utils.InternalErrorResponse(c, "")
			c.Abort()
			return
		}
		seen.Add(userID, struct{}{})
		c.Next()
	}
}
