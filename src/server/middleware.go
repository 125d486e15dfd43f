package server

import (
	"net/http"

	"crudforge/src/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler is the single formatting stage for every raised condition.
// Controllers attach errors with c.Error and this middleware turns the
// first one into the error envelope. No error is formatted twice.
func ErrorHandler(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperrors.From(c.Errors[0].Err)
		if cause := appErr.Cause(); cause != nil {
			// Infrastructure details are logged here and never leak into
			// the response body.
			logger.Errorw("Request failed",
				"kind", appErr.Kind,
				"path", c.FullPath(),
				"cause", cause)
		}

		c.JSON(appErr.Status, errorEnvelope(appErr))
	}
}

// CORSMiddleware allows requests from the configured origin. Disallowed
// origins are rejected with 403.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if allowedOrigin != "*" && origin != allowedOrigin {
			appErr := apperrors.NewCORSError(origin)
			c.AbortWithStatusJSON(appErr.Status, errorEnvelope(appErr))
			return
		}

		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// NoRouteHandler produces the ROUTE_NOT_FOUND envelope for unknown paths.
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		appErr := apperrors.NewRouteNotFoundError(c.Request.Method, c.Request.URL.Path)
		c.JSON(appErr.Status, errorEnvelope(appErr))
	}
}
