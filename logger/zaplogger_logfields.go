// zaplogger_logfields.go
package logger

import (
	"time"

	"go.uber.org/zap"
)

// LogRequestStart logs the initiation of an HTTP request. Headers are expected to be redacted by the caller.
func LogRequestStart(log Logger, requestID string, method string, url string, headers string) {
	log.Debug("HTTP request started",
		zap.String("event", "request_start"),
		zap.String("method", method),
		zap.String("url", url),
		zap.String("headers", headers),
		zap.String("request_id", requestID),
	)
}

// LogRequestEnd logs the completion of an HTTP request, including the status code and duration.
func LogRequestEnd(log Logger, requestID string, method string, url string, statusCode int, duration time.Duration) {
	log.Debug("HTTP request completed",
		zap.String("event", "request_end"),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", duration),
		zap.String("request_id", requestID),
	)
}

// LogError logs an error that occurs during the processing of an HTTP request.
func LogError(log Logger, requestID string, method string, url string, statusCode int, err error) {
	log.Error("Error during HTTP request",
		zap.String("event", "request_error"),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status_code", statusCode),
		zap.Error(err),
		zap.String("request_id", requestID),
	)
}

// LogUnauthorized logs the eviction of the stored credential after a 401 response.
func LogUnauthorized(log Logger, requestID string, method string, url string, hadCredential bool) {
	log.Warn("Unauthorized response, credential evicted",
		zap.String("event", "unauthorized"),
		zap.String("method", method),
		zap.String("url", url),
		zap.Bool("had_credential", hadCredential),
		zap.String("request_id", requestID),
	)
}

// LogNavigation logs the outcome of a router navigation.
func LogNavigation(log Logger, from string, requested string, resolved string, view string) {
	fields := []zap.Field{
		zap.String("event", "navigation"),
		zap.String("from", from),
		zap.String("requested", requested),
		zap.String("location", resolved),
		zap.String("view", view),
		zap.String("component", "router"),
	}
	if requested != resolved {
		log.Info("Navigation redirected", fields...)
		return
	}
	log.Debug("Navigation completed", fields...)
}
