package middleware

import (
	"context"
	"errors"
	"net/http"

	"mediband/api/internal/apperr"
	"mediband/api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userKey = "user"

type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *model.Session, error)
}

// NewSessionMiddleware resolves the session cookie to a user. With required
// set, requests without a valid session are answered with 401, otherwise
// they continue anonymously.
func NewSessionMiddleware(auth SessionAuthenticator, cookieName string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := RequestID(c)

		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"message":   "User not authenticated",
					"requestID": requestID,
				})
				return
			}

			c.Next()
			return
		}

		user, _, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthenticated) {
				zap.L().Error("Failed to authenticate session", zap.Error(err), zap.String("requestID", requestID))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message":   "Internal server error",
					"requestID": requestID,
				})
				return
			}

			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"message":   "User not authenticated",
					"requestID": requestID,
				})
				return
			}

			c.Next()
			return
		}

		c.Set(userKey, user)
		c.Set("userID", user.ID)
		c.Next()
	}
}

// CurrentUser returns the user the session middleware authenticated, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}

	u, _ := v.(*model.User)
	return u
}
