package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_bus/internal/access"
	"campus_bus/internal/accounts"
	"campus_bus/internal/models"
	"campus_bus/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func gatedEngine(id access.Identity, role models.Role, respond Responder) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("0123456789abcdef"))))
	r.Use(func(c *gin.Context) { c.Set(identityKey, id) })
	r.GET("/protected", RequireRole(role, respond), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireRolePageRedirects(t *testing.T) {
	student := access.Identity{UserID: 1, Role: models.RoleStudent, Authenticated: true}
	r := gatedEngine(student, models.RoleDriver, PageDenied)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"), "flash must be stored in the session cookie")
}

func TestRequireRoleAPI(t *testing.T) {
	tests := []struct {
		name string
		id   access.Identity
		code int
		body string
	}{
		{"anonymous", access.Anonymous(), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong role", access.Identity{UserID: 1, Role: models.RoleStudent, Authenticated: true}, http.StatusForbidden, `{"error":"Not a driver"}`},
		{"driver", access.Identity{UserID: 2, Role: models.RoleDriver, Authenticated: true}, http.StatusOK, `{"ok":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gatedEngine(tt.id, models.RoleDriver, APIDenied("Not a driver"))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestAPIDeniedFallsBackToReason(t *testing.T) {
	roleless := access.Identity{UserID: 1, Authenticated: true}
	r := gatedEngine(roleless, models.RoleAdmin, APIDenied(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"no role assigned"}`, w.Body.String())
}

func TestLoadIdentityFromBearerToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateUser(t, db, "driver1", "pass", models.RoleDriver)
	tokens := NewTokenIssuer("test-secret-0123456789", time.Hour)
	cache := accounts.NewIdentityCache(db, 8, time.Minute)

	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("0123456789abcdef"))))
	r.Use(LoadIdentity(cache, tokens))
	r.GET("/whoami", func(c *gin.Context) {
		id := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "role": id.Role, "auth": id.Authenticated})
	})

	token, err := tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"user_id":1,"role":"driver","auth":true}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"user_id":0,"role":"","auth":false}`, w.Body.String())
}

func TestTokenRoundTripAndTamper(t *testing.T) {
	tokens := NewTokenIssuer("test-secret-0123456789", time.Hour)
	token, err := tokens.GenerateToken(7, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	other := NewTokenIssuer("another-secret-0123456789", time.Hour)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	expired := NewTokenIssuer("test-secret-0123456789", -time.Minute)
	old, err := expired.GenerateToken(7, models.RoleAdmin)
	require.NoError(t, err)
	_, err = tokens.ValidateToken(old)
	assert.Error(t, err)
}
