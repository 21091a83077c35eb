package middleware

import (
	"errors"
	"net/http"
	"os"
	"runtime/debug"

	"shopsphere/domain"
	"shopsphere/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponder is the single place errors become responses. Handlers
// attach errors with c.Error and return; known kinds map onto their status
// code, anything else becomes a 500. Outside production the raw error and
// a stack are included to ease debugging.
func ErrorResponder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			log.Warn().
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", appErr.Status()).
				Msg(appErr.Message)

			body := gin.H{
				"status":  "error",
				"message": appErr.Message,
			}
			if appErr.Details != nil {
				body["details"] = appErr.Details
			}
			c.JSON(appErr.Status(), body)
			return
		}

		log.Error().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Err(err).
			Msg("unhandled error")

		message := "something went wrong, please try again later"
		if translated := utils.TranslateDBError(err); translated != "" {
			message = translated
		}
		body := gin.H{
			"status":  "error",
			"message": message,
		}
		if os.Getenv("APP_ENV") != "production" {
			body["error"] = err.Error()
			body["stack"] = string(debug.Stack())
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
