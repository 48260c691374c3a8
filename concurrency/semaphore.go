// concurrency/semaphore.go
package concurrency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AcquireConcurrencyToken takes a slot for one request, blocking until a slot is free or
// ctx ends. The returned context carries the request id (an existing one is reused) and
// ReleaseConcurrencyToken must be called with it once the request finishes.
func (ch *ConcurrencyHandler) AcquireConcurrencyToken(ctx context.Context) (context.Context, uuid.UUID, error) {
	ctx, requestID := EnsureRequestID(ctx)
	start := time.Now()

	if ch.sem != nil {
		select {
		case ch.sem <- struct{}{}:
		case <-ctx.Done():
			ch.logger.Warn("Failed to acquire concurrency token",
				zap.Error(ctx.Err()),
				zap.String("request_id", requestID.String()),
			)
			return ctx, requestID, ctx.Err()
		}
	}

	wait := time.Since(start)
	inFlight := ch.Metrics.acquired(wait)

	ch.logger.Debug("Acquired concurrency token",
		zap.Duration("acquisition_time", wait),
		zap.Int64("in_flight", inFlight),
		zap.Int("limit", ch.Limit()),
		zap.String("request_id", requestID.String()),
	)
	return ctx, requestID, nil
}

// ReleaseConcurrencyToken returns the slot taken for requestID.
func (ch *ConcurrencyHandler) ReleaseConcurrencyToken(requestID uuid.UUID) {
	if ch.sem != nil {
		<-ch.sem
	}
	inFlight := ch.Metrics.released()

	ch.logger.Debug("Released concurrency token",
		zap.Int64("in_flight", inFlight),
		zap.String("request_id", requestID.String()),
	)
}
