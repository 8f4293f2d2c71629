package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/reqctx"
	"github.com/gin-gonic/gin"
)

type tokenParser interface {
	ParseAccessToken(raw string) (string, error)
}

type userLoader interface {
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// Auth validates a Bearer access token and loads its user. On success it
// sets "userID" and "user" in the gin context and the user id on the
// request context.
func Auth(tokens tokenParser, users userLoader, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
			return
		}

		userID, err := tokens.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
			return
		}

		user, err := users.Me(c.Request.Context(), userID)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
			return
		case err != nil:
			logger.ErrorContext(c.Request.Context(), "auth load user", "error", err)
			abort(c, http.StatusInternalServerError, codeInternal, "Internal server error")
			return
		case !user.IsActive:
			abort(c, http.StatusForbidden, codeForbidden, "User is disabled")
			return
		}

		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), user.ID))
		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}
