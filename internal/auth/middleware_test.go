package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

const testSecret = "middleware-test-secret"

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	protected := router.Group("", Middleware(testSecret))
	protected.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": Principal(c)})
	})
	protected.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func request(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	router := newAuthRouter(t)

	token, err := IssueToken(testSecret, "alice", "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec := request(router, "/whoami", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	router := newAuthRouter(t)

	rec := request(router, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	router := newAuthRouter(t)

	token, err := IssueToken("some-other-secret", "alice", "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	rec := request(router, "/whoami", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	router := newAuthRouter(t)

	token, err := IssueToken(testSecret, "alice", "", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	rec := request(router, "/whoami", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	router := newAuthRouter(t)

	admin, err := IssueToken(testSecret, "root", RoleAdmin, time.Now().Add(time.Hour))
	require.NoError(t, err)
	user, err := IssueToken(testSecret, "alice", "", time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(router, "/admin", admin).Code)
	assert.Equal(t, http.StatusForbidden, request(router, "/admin", user).Code)
}

func TestPrincipalOutsideMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, ledger.Principal(""), Principal(c))
}
