package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var seenUserID string
	r.GET("/me", Middleware(), func(c *gin.Context) {
		seenUserID = UserID(c)
		c.Status(http.StatusOK)
	})
	r.POST("/admin", Middleware(), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, &seenUserID
}

func TestMiddleware(t *testing.T) {
	userID := "7f9c24e5-2b3a-4c1d-9e8f-6a5b4c3d2e1f"

	t.Run("accepts a well-formed user id", func(t *testing.T) {
		r, seen := newTestRouter()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("X-User-ID", userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID, *seen)
	})

	t.Run("rejects a missing or malformed id", func(t *testing.T) {
		for _, raw := range []string{"", "not-a-uuid", "123"} {
			r, _ := newTestRouter()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if raw != "" {
				req.Header.Set("X-User-ID", raw)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	userID := "7f9c24e5-2b3a-4c1d-9e8f-6a5b4c3d2e1f"

	t.Run("admin role passes", func(t *testing.T) {
		r, _ := newTestRouter()
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Role", RoleAdmin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("any other role is forbidden", func(t *testing.T) {
		for _, role := range []string{"", "user", "Admin"} {
			r, _ := newTestRouter()
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			req.Header.Set("X-User-ID", userID)
			if role != "" {
				req.Header.Set("X-User-Role", role)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
		}
	})
}
