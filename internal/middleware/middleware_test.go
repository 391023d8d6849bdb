package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return signed
}

func authedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(testSecret))
	handlers := append(extra, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tenant_id": c.GetString("tenant_id"),
			"user_id":   c.GetString("user_id"),
		})
	})
	router.GET("/protected", handlers...)
	return router
}

// ===========================================
// AuthMiddleware Tests
// ===========================================

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router := authedRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")
}

func TestAuthMiddleware_BadHeaderFormat(t *testing.T) {
	router := authedRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN_FORMAT")
}

func TestAuthMiddleware_InvalidSignature(t *testing.T) {
	router := authedRouter()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1"})
	signed, _ := token.SignedString([]byte("wrong-secret"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	router := authedRouter()

	signed := signToken(t, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidTokenSetsContext(t *testing.T) {
	router := authedRouter()

	signed := signToken(t, Claims{
		UserID:   "user-1",
		Email:    "buyer@example.com",
		TenantID: "tenant-123",
		Roles:    []string{"procurement_admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-123")
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestAuthMiddleware_SkipsHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(testSecret))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ===========================================
// RequireAnyRole Tests
// ===========================================

func withRoles(roles interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_roles", roles)
		c.Next()
	}
}

func roleRouter(seed gin.HandlerFunc, required ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if seed != nil {
		router.Use(seed)
	}
	router.Use(RequireAnyRole(required...))
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRequireAnyRole_MatchingRolePasses(t *testing.T) {
	router := roleRouter(withRoles([]string{"procurement_admin"}), "procurement_admin")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAnyRole_AdminAlwaysPasses(t *testing.T) {
	router := roleRouter(withRoles([]string{"admin"}), "procurement_admin")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAnyRole_MissingRoleRefused(t *testing.T) {
	router := roleRouter(withRoles([]string{"viewer"}), "procurement_admin")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
}

func TestRequireAnyRole_NoRolesInContext(t *testing.T) {
	router := roleRouter(nil, "procurement_admin")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NO_ROLES")
}

// ===========================================
// TenantMiddleware Tests
// ===========================================

func tenantRouter(seed gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if seed != nil {
		router.Use(seed)
	}
	router.Use(TenantMiddleware())
	router.GET("/tenant", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": c.GetString("tenant_id")})
	})
	return router
}

func TestTenantMiddleware_TokenTenantWins(t *testing.T) {
	seed := func(c *gin.Context) {
		c.Set("tenant_id", "tenant-from-token")
		c.Next()
	}
	router := tenantRouter(seed)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tenant", nil)
	req.Header.Set("X-Tenant-ID", "tenant-from-header")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-from-token")
}

func TestTenantMiddleware_HeaderFallback(t *testing.T) {
	router := tenantRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tenant", nil)
	req.Header.Set("X-Tenant-ID", "tenant-from-header")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant-from-header")
}

func TestTenantMiddleware_MissingTenantRefused(t *testing.T) {
	router := tenantRouter(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tenant", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
