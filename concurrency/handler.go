// concurrency/handler.go
package concurrency

import (
	"context"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/logger"
	"github.com/google/uuid"
)

// ConcurrencyHandler tags every request with an id and optionally bounds how many requests
// are in flight at once. A limit of 0 means unbounded: requests are independent and are
// never queued behind each other.
type ConcurrencyHandler struct {
	sem     chan struct{}
	logger  logger.Logger
	Metrics *ConcurrencyMetrics
}

// NewConcurrencyHandler initializes a ConcurrencyHandler with the given limit and logger.
func NewConcurrencyHandler(limit int, log logger.Logger) *ConcurrencyHandler {
	ch := &ConcurrencyHandler{
		logger:  log,
		Metrics: newConcurrencyMetrics(),
	}
	if limit > 0 {
		ch.sem = make(chan struct{}, limit)
	}
	return ch
}

// Limit returns the configured limit, 0 when unbounded.
func (ch *ConcurrencyHandler) Limit() int {
	return cap(ch.sem)
}

// RequestIDKey is the context key under which the request id is stored.
type RequestIDKey struct{}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(RequestIDKey{}).(uuid.UUID)
	return id, ok
}

// EnsureRequestID returns ctx with a request id, reusing an existing one.
func EnsureRequestID(ctx context.Context) (context.Context, uuid.UUID) {
	if id, ok := RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.New()
	return WithRequestID(ctx, id), id
}

// RecordResponse updates the metrics with the outcome of one request.
func (ch *ConcurrencyHandler) RecordResponse(statusCode int, elapsed time.Duration) {
	ch.Metrics.record(statusCode, elapsed)
}
