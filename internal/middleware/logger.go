package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// LoggerKey is the echo context key holding the request scoped logger.
const LoggerKey = "logger"

// RequestLogger assigns every request an id (reusing a client supplied
// X-Request-Id), exposes a logger carrying that id through the context and
// logs one line when the response is complete.
func RequestLogger(base *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			entry := base.WithFields(log.Fields{
				"request_id": id,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.Set(LoggerKey, entry)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := log.Fields{
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"bytes":      c.Response().Size,
			}
			if origin := req.Header.Get(echo.HeaderOrigin); origin != "" {
				fields["origin"] = origin
			}
			if err != nil {
				entry.WithFields(fields).WithError(err).Warn("request failed")
			} else {
				entry.WithFields(fields).Info("request completed")
			}
			return nil
		}
	}
}

// Logger returns the request scoped logger, or a plain entry when the
// request did not pass through RequestLogger.
func Logger(c echo.Context) *log.Entry {
	if e, ok := c.Get(LoggerKey).(*log.Entry); ok {
		return e
	}
	return log.NewEntry(log.StandardLogger())
}
