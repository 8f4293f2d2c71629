package middleware

import "github.com/gin-gonic/gin"

const (
	codeUnauthorized      = "UNAUTHORIZED"
	codeForbidden         = "FORBIDDEN"
	codeAdminAuthRequired = "ADMIN_AUTH_REQUIRED"
	codeInternal          = "INTERNAL_ERROR"
)

// abort writes the same error envelope the handlers use.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
