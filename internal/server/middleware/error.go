package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler renders the last handler error as an RFC 9457 problem.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var problem *api.Problem
		if errors.As(err, &problem) {
			if problem.Log != nil {
				logger.Error("Internal Error",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Int("status", problem.Status),
					zap.Error(problem.Log),
				)
			}
			if problem.Instance == "" {
				problem.Instance = c.Request.URL.Path
			}
			if !c.Writer.Written() {
				c.Header("Content-Type", "application/problem+json")
				c.JSON(problem.Status, problem)
			}
			c.Abort()
			return
		}

		logger.Error("Unhandled Error", zap.String("request_id", c.GetString(RequestIDKey)), zap.Error(err))

		if !c.Writer.Written() {
			c.Header("Content-Type", "application/problem+json")
			c.JSON(http.StatusInternalServerError, api.NewError(
				http.StatusInternalServerError,
				"Internal Server Error",
				"An unexpected error occurred.",
			))
		}
		c.Abort()
	}
}
