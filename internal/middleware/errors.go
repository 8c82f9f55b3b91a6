package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storeapi/internal/apperrors"
)

// ErrorRenderer turns errors recorded on the context into the structured
// error body. Development mode adds the operational flag and a stack;
// production replaces non-operational messages with a generic one.
func ErrorRenderer(logger *logrus.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.From(err)

		entry := logger.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   appErr.Code,
		})
		if appErr.Code >= 500 {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Warn(appErr.Message)
		}

		body := gin.H{
			"code":    appErr.Code,
			"status":  appErr.Status,
			"message": appErr.Message,
		}
		if development {
			body["isOperational"] = appErr.Operational
			body["stack"] = string(debug.Stack())
			if appErr.Err != nil {
				body["detail"] = appErr.Err.Error()
			}
		}

		c.JSON(appErr.Code, gin.H{"error": body})
	}
}
