package engine

import (
	"context"
	"mycelium/pkg/domain"

	"go.uber.org/zap"
)

// startDiscoveryLocked runs the discoverer for the current generation.
// Callers hold c.mu.
func (c *Controller) startDiscoveryLocked() {
	if c.closed || c.discovery == nil || c.discoveryDone != nil {
		return
	}
	gen := c.generation
	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.discoveryCancel = cancel
	c.discoveryDone = done
	c.message = "fruiting: searching for a matching organism"
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(done)
		defer cancel()
		org, err := c.discovery.Discover(ctx, c.cfg.attempts)
		if c.attach(gen, org, err) {
			c.persist(context.WithoutCancel(c.ctx))
		}
		c.mu.Lock()
		if c.discoveryDone == done {
			c.discoveryDone = nil
			c.discoveryCancel = nil
		}
		c.mu.Unlock()
	}()
}

// cancelDiscoveryLocked abandons the in-flight discovery. Its result, if any,
// is discarded because the generation no longer matches. Callers hold c.mu.
func (c *Controller) cancelDiscoveryLocked() {
	if c.discoveryCancel != nil {
		c.discoveryCancel()
	}
	c.discoveryCancel = nil
	c.discoveryDone = nil
}

// attach stores org when it belongs to the current generation and no
// organism is attached yet. It reports whether state changed.
func (c *Controller) attach(gen uint64, org *domain.DiscoveredOrganism, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case gen != c.generation:
		c.log.Debug("discarding stale discovery result", zap.Uint64("generation", gen))
		return false
	case err != nil:
		c.log.Info("discovery interrupted", zap.String("cycle_id", c.cycleID), zap.Error(err))
		return false
	case org == nil:
		c.message = "fruiting: no matching organism found"
		return false
	case c.organism != nil:
		return false
	}
	c.organism = org.Clone()
	c.message = "discovered " + org.Name
	c.log.Info("organism attached", zap.String("cycle_id", c.cycleID), zap.String("title", org.Name))
	return true
}
