package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagframe/metrics"
	"tagframe/sessions"
	"tagframe/utils"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func protectedRouter(registry *sessions.Registry) *gin.Engine {
	r := gin.New()
	r.GET("/me", JwtAuthMiddleware(secret, registry), func(c *gin.Context) {
		id, email := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "email": email})
	})
	return r
}

func TestJwtAuthMiddleware(t *testing.T) {
	registry := sessions.NewRegistry(time.Hour)
	defer registry.Stop()
	r := protectedRouter(registry)

	session := sessions.Session{ID: sessions.NewID(), UserID: 4, Email: "ann@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	registry.Add(session)
	token, _, err := utils.GenerateToken(secret, 4, "ann@example.com", session.ID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":4,"email":"ann@example.com"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code, "token query parameter is accepted")

	registry.Revoke(session.ID)
	w = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "revoked sessions are rejected")
}

func TestJwtAuthMiddlewareRejectsBadTokens(t *testing.T) {
	registry := sessions.NewRegistry(time.Hour)
	defer registry.Stop()
	r := protectedRouter(registry)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	id := sessions.NewID()
	registry.Add(sessions.Session{ID: id, UserID: 1, ExpiresAt: time.Now().Add(time.Hour)})
	forged, _, err := utils.GenerateToken("other-secret", 1, "x@example.com", id, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", Limiter(2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRequestIDAndLogger(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestIDMiddleware(), RequestLogger(m))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, w.Header().Get("X-Request-Id"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	w = serve(r, req)
	assert.Equal(t, "abc", w.Body.String())
}

func TestCorsMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CorsMiddleware([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(r, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
