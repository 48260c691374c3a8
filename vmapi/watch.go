package vmapi

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultWatchInterval is the dashboard refresh period.
const DefaultWatchInterval = 5 * time.Second

// WatchStatus polls the status of one VM, at most once per interval
// (DefaultWatchInterval when interval <= 0), and hands every snapshot to fn. The first
// snapshot is fetched immediately.
//
// It returns nil when ctx ends, and otherwise the first fetch error or error from fn.
func (c *Client) WatchStatus(ctx context.Context, id string, interval time.Duration, fn func(VMStatus) error) error {
	if id == "" {
		return ErrEmptyVMID
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if !waitTurn(ctx, limiter) {
			return nil
		}

		status, err := c.GetVMStatus(ctx, id)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			c.log.Debug("Status watch stopped", zap.String("vm_id", id), zap.Error(err))
			return err
		}
		if err := fn(status); err != nil {
			return err
		}
	}
}

// waitTurn blocks until limiter allows the next poll and reports false when ctx ends first.
// A deadline closer than the next slot is simply waited out.
func waitTurn(ctx context.Context, limiter *rate.Limiter) bool {
	if ctx.Err() != nil {
		return false
	}
	r := limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return true
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		r.Cancel()
		return false
	}
}
