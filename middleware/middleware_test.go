package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quickbite-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tm *TokenManager, roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(tm), RoleRequired(roles...), func(c *gin.Context) {
		caller := CallerFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": caller.ID, "role": caller.Role})
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	token, err := tm.GenerateToken(&models.User{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
}

func TestParseRejectsBadTokens(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	token, err := tm.GenerateToken(&models.User{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", time.Hour).Parse(token)
	assert.Error(t, err)

	expired := NewTokenManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(&models.User{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)
	_, err = tm.Parse(old)
	assert.ErrorContains(t, err, "token expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Parse(unsigned)
	assert.Error(t, err)

	bogusRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1", Role: "ROOT"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = tm.Parse(bogusRole)
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	r := newRouter(tm)

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAUTHENTICATED"`)

	w = get(r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tm.GenerateToken(&models.User{ID: "u1", Role: models.RoleCustomer})
	require.NoError(t, err)
	w = get(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","role":"CUSTOMER"}`, w.Body.String())
}

func TestRoleRequired(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	r := newRouter(tm, models.RoleRestaurantOwner, models.RoleAdmin)

	customer, err := tm.GenerateToken(&models.User{ID: "c1", Role: models.RoleCustomer})
	require.NoError(t, err)
	w := get(r, customer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)

	admin, err := tm.GenerateToken(&models.User{ID: "a1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(r, admin).Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok?x=1", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "x=1", entries[0].ContextMap()["query"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, 500, entries[1].ContextMap()["status"])
}
