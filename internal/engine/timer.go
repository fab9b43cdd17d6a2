package engine

import (
	"time"

	"go.uber.org/zap"
)

// startTimerLocked launches the auto-advance loop. Callers hold c.mu.
func (c *Controller) startTimerLocked() {
	if c.closed || c.timerStop != nil || c.cfg.interval <= 0 || c.stage.Terminal() {
		return
	}
	c.timerToken++
	token := c.timerToken
	stop := make(chan struct{})
	c.timerStop = stop
	c.wg.Add(1)
	go c.runTimer(token, stop, c.cfg.interval)
}

// stopTimerLocked invalidates the running timer. Callers hold c.mu.
func (c *Controller) stopTimerLocked() {
	if c.timerStop == nil {
		return
	}
	close(c.timerStop)
	c.timerStop = nil
	c.timerToken++
}

func (c *Controller) runTimer(token uint64, stop <-chan struct{}, interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			outcome, err := c.advance(c.ctx, &token)
			if outcome == 0 {
				return
			}
			if err != nil {
				c.log.Debug("auto-advance tick", zap.Stringer("outcome", outcome), zap.Error(err))
			}
		}
	}
}
