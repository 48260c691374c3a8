package vmapi

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultStatusFanOut bounds ListVMStatuses when no limit is given.
const DefaultStatusFanOut = 4

// StatusResult pairs a VM id with its status snapshot.
type StatusResult struct {
	ID     string
	Status VMStatus
}

// ListVMStatuses fetches the status of every id concurrently, at most limit at a time
// (DefaultStatusFanOut when limit <= 0). Results keep the order of ids. The first failure
// cancels the remaining fetches and is returned.
func (c *Client) ListVMStatuses(ctx context.Context, ids []string, limit int) ([]StatusResult, error) {
	if limit <= 0 {
		limit = DefaultStatusFanOut
	}

	results := make([]StatusResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, id := range ids {
		g.Go(func() error {
			status, err := c.GetVMStatus(gctx, id)
			if err != nil {
				return fmt.Errorf("vm %s: %w", id, err)
			}
			results[i] = StatusResult{ID: id, Status: status}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
