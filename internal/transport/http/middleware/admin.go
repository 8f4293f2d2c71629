package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const AdminKeyHeader = "X-Admin-Api-Key"

// AdminKey guards the back-office routes with a shared key.
func AdminKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AdminKeyHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			abort(c, http.StatusForbidden, codeAdminAuthRequired, "Admin key required")
			return
		}
		c.Next()
	}
}
