package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestGate() (*services.AuthGate, *services.TokenIssuer) {
	tokens := services.NewTokenIssuer("test-secret", time.Hour)
	return services.NewAuthGate(nil, tokens, services.NewMemoryRevocationList(), nil), tokens
}

func TestRateLimiterRejectsPastBurst(t *testing.T) {
	r := gin.New()
	r.GET("/limited", NewRateLimiter(4).Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own bucket")
}

func TestSessionRequired(t *testing.T) {
	gate, tokens := newTestGate()
	ran := false
	r := gin.New()
	r.GET("/index", SessionRequired(gate), func(c *gin.Context) {
		ran = true
		sess, ok := CurrentSession(c)
		require.True(t, ok)
		c.String(http.StatusOK, sess.Username)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))
	assert.False(t, ran)

	_, token, err := tokens.Issue(7, "alice")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/index", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/index", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPISessionRequired(t *testing.T) {
	gate, _ := newTestGate()
	r := gin.New()
	r.GET("/api/v1/stats", APISessionRequired(gate), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40101`)
}

func TestRecoveryWithZap(t *testing.T) {
	r := gin.New()
	r.Use(Ginzap(zap.NewNop(), time.RFC3339, true), RecoveryWithZap(zap.NewNop(), true))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
