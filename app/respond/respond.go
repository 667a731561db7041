// Package respond turns service errors into JSON responses
package respond

import (
	"errors"
	"net/http"

	"mediband/api/internal/apperr"
	"mediband/api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error writes the response for err and aborts the request. Anything that
// isn't a known client error is logged and answered with 500.
func Error(c *gin.Context, err error) {
	requestID := middleware.RequestID(c)

	var ve *apperr.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "Validation failed",
			"fields":    ve.Fields,
			"requestID": requestID,
		})
	case errors.As(err, &tooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"message":   "Request body size exceeds limit",
			"requestID": requestID,
		})
	case errors.Is(err, apperr.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   err.Error(),
			"requestID": requestID,
		})
	case errors.Is(err, apperr.ErrDuplicateEmail):
		message(c, http.StatusBadRequest, "User already exists")
	case errors.Is(err, apperr.ErrInvalidCredentials):
		message(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, apperr.ErrUnauthenticated):
		message(c, http.StatusUnauthorized, "User not authenticated")
	case errors.Is(err, apperr.ErrForbidden):
		message(c, http.StatusForbidden, "Access denied")
	case errors.Is(err, apperr.ErrRecordNotFound):
		message(c, http.StatusNotFound, "Medical record not found")
	case errors.Is(err, apperr.ErrRecordExists):
		message(c, http.StatusConflict, "Medical record already submitted")
	default:
		internal(c, err)
	}
}

func message(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"message":   msg,
		"requestID": middleware.RequestID(c),
	})
}

// internal never echoes the raw error, it can carry SQL or bucket details.
func internal(c *gin.Context, err error) {
	requestID := middleware.RequestID(c)

	detail := "internal error"
	switch {
	case errors.Is(err, apperr.ErrUpload):
		detail = apperr.ErrUpload.Error()
	case errors.Is(err, apperr.ErrStorage):
		detail = apperr.ErrStorage.Error()
	}

	zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"message":   "Internal server error",
		"error":     detail,
		"requestID": requestID,
	})
}

// Panic answers a recovered panic the same way as an unknown error.
func Panic(c *gin.Context, recovered any) {
	requestID := middleware.RequestID(c)

	zap.L().Error("Recovered from panic", zap.Any("panic", recovered), zap.String("requestID", requestID), zap.Stack("stack"))

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"message":   "Internal server error",
		"error":     "internal error",
		"requestID": requestID,
	})
}
