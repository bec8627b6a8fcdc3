package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "budgethq/internal/errors"
	"budgethq/internal/logger"
)

// ErrorHandler converts errors set on the Gin context into the JSON error
// envelope. Unexpected errors are logged and reported as internal errors.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := logger.Get().With("request_id", c.GetString(requestIDKey), "path", c.Request.URL.Path)

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			log.Errorw("unexpected error", "error", err.Error(), "method", c.Request.Method)
			appErr = apperrors.ErrInternalServer
		} else if appErr.Internal != nil {
			log.Errorw("app error", "code", appErr.Code, "kind", appErr.Kind, "internal", appErr.Internal.Error())
		}

		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"kind":    appErr.Kind,
				"message": appErr.Message,
			},
		})
	}
}
