// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		userID, _ := utils.GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID.String(),
			"username": utils.GetUsernameFromContext(c),
			"lang":     utils.GetLangFromContext(c),
		})
	})
	return r
}

func get(r *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID uuid.UUID) http.Header {
	t.Helper()
	token, err := utils.GenerateJWT(userID, "alice", time.Hour)
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestAuthRequired(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))
	utils.SetJWTConfig("middleware-secret", "")
	r := newEngine(AuthRequired())
	userID := uuid.New()

	w := get(r, bearer(t, userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	for name, header := range map[string]http.Header{
		"missing":      {},
		"wrong scheme": {"Authorization": []string{"Token abc"}},
		"garbage":      {"Authorization": []string{"Bearer abc"}},
	} {
		t.Run(name, func(t *testing.T) {
			w := get(r, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestAuthRequired_ForeignSecret(t *testing.T) {
	utils.SetJWTConfig("issuer-secret", "")
	header := bearer(t, uuid.New())

	utils.SetJWTConfig("middleware-secret", "")
	w := get(newEngine(AuthRequired()), header)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnsureProfile_RemembersUsers(t *testing.T) {
	utils.SetJWTConfig("middleware-secret", "")
	var calls atomic.Int32
	ensurer := ProfileEnsurerFunc(func(ctx context.Context, id uuid.UUID, username string) error {
		calls.Add(1)
		assert.Equal(t, "alice", username)
		return nil
	})
	r := newEngine(AuthRequired(), EnsureProfile(ensurer, 8))

	header := bearer(t, uuid.New())
	assert.Equal(t, http.StatusOK, get(r, header).Code)
	assert.Equal(t, http.StatusOK, get(r, header).Code)
	assert.EqualValues(t, 1, calls.Load())

	assert.Equal(t, http.StatusOK, get(r, bearer(t, uuid.New())).Code)
	assert.EqualValues(t, 2, calls.Load())
}

func TestEnsureProfile_Failure(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))
	utils.SetJWTConfig("middleware-secret", "")
	var calls atomic.Int32
	ensurer := ProfileEnsurerFunc(func(context.Context, uuid.UUID, string) error {
		calls.Add(1)
		return errors.New("database down")
	})
	r := newEngine(AuthRequired(), EnsureProfile(ensurer, 0))

	header := bearer(t, uuid.New())
	assert.Equal(t, http.StatusInternalServerError, get(r, header).Code)
	// failures are not remembered
	assert.Equal(t, http.StatusInternalServerError, get(r, header).Code)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRateLimit(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))
	r := newEngine(RateLimit(0.001, 2))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	w := get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	unlimited := newEngine(RateLimit(0, 0))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(unlimited, nil).Code)
	}
}

func TestRateLimiter_EvictsOldestClient(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 1, 1)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	// 10.0.0.1 was evicted and gets a fresh bucket
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestParseLanguage(t *testing.T) {
	require.NoError(t, i18n.Initialize("en"))

	tests := map[string]string{
		"":                        "en",
		"zh-TW,zh;q=0.9,en;q=0.8": "zh_TW",
		"fr-FR, en-US;q=0.7":      "en",
		"de":                      "en",
		"zh":                      "zh_TW",
	}
	for header, want := range tests {
		assert.Equal(t, want, parseLanguage(header), header)
	}

	w := get(newEngine(I18nMiddleware()), http.Header{"Accept-Language": []string{"zh-TW"}})
	assert.Contains(t, w.Body.String(), `"lang":"zh_TW"`)
}
