// Package engine drives a growth cycle through its stages. A Controller owns
// all mutable simulation state, gates transitions on the environment, runs the
// auto-advance timer and attaches a discovered organism once fruiting begins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"mycelium/pkg/domain"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Discoverer finds an organism to attach when the cycle starts fruiting.
type Discoverer interface {
	Discover(ctx context.Context, maxAttempts int) (*domain.DiscoveredOrganism, error)
}

// Status is a Snapshot plus the controller's transient flags.
type Status struct {
	domain.Snapshot
	Advancing     bool
	AutoAdvancing bool
	Discovering   bool
	// Message describes the most recent operation.
	Message string
}

// Controller is the single writer of a growth cycle. All methods are safe for
// concurrent use.
type Controller struct {
	cfg       settings
	store     domain.SnapshotStore
	discovery Discoverer
	log       *zap.Logger

	mu         sync.Mutex
	cycleID    string
	stage      domain.Stage
	params     domain.EnvironmentParameters
	organism   *domain.DiscoveredOrganism
	history    *domain.HistoryLog
	advancing  bool
	generation uint64
	message    string
	closed     bool

	timerToken uint64
	timerStop  chan struct{}

	discoveryCancel context.CancelFunc
	discoveryDone   chan struct{}

	// persistMu orders saves; the snapshot is taken while holding it.
	persistMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New restores the last saved snapshot from store and starts the auto-advance
// timer unless the cycle is mature. A failed load is logged and the cycle
// starts from defaults. discovery may be nil.
func New(ctx context.Context, store domain.SnapshotStore, discovery Discoverer, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("engine: snapshot store required")
	}
	cfg := defaultSettings()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.requirements.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if cfg.interval < 0 {
		cfg.interval = 0
	}
	if cfg.attempts < 0 {
		cfg.attempts = 0
	}
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Controller{
		cfg:       cfg,
		store:     store,
		discovery: discovery,
		log:       cfg.logger,
		ctx:       base,
		cancel:    cancel,
	}
	c.restore(ctx)

	c.mu.Lock()
	c.startTimerLocked()
	if c.stage == domain.StageFruiting && c.organism == nil {
		c.startDiscoveryLocked()
	}
	c.mu.Unlock()
	return c, nil
}

func (c *Controller) restore(ctx context.Context) {
	snap, ok, err := c.store.Load(ctx)
	if err != nil {
		c.cfg.metrics.ObservePersistenceError("load")
		c.log.Warn("snapshot load failed, starting fresh cycle",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)))
		ok = false
	}
	if !ok {
		c.cycleID = c.cfg.newCycleID()
		c.stage = domain.StageSpore
		c.params = domain.DefaultParameters()
		c.history = &domain.HistoryLog{}
		c.message = "new cycle"
	} else {
		snap = snap.Normalize()
		c.cycleID = snap.CycleID
		if c.cycleID == "" {
			c.cycleID = c.cfg.newCycleID()
		}
		c.stage = snap.CurrentStage
		c.params = snap.Parameters
		c.organism = snap.Organism
		c.history = domain.RestoreHistoryLog(snap.History, snap.LastHistoryKey)
		c.message = "restored at " + c.stage.String()
	}
	c.cfg.metrics.SetStage(c.stage.String(), stageNames())
	c.log.Info("cycle ready", zap.String("cycle_id", c.cycleID), zap.String("stage", c.stage.String()), zap.Bool("restored", ok))
}

// Advance attempts a single stage transition.
func (c *Controller) Advance(ctx context.Context) (Outcome, error) {
	return c.advance(ctx, nil)
}

// advance performs one transition. A non-nil tick carries the timer token;
// a stale token makes the call a silent no-op returning zero.
func (c *Controller) advance(ctx context.Context, tick *uint64) (Outcome, error) {
	c.mu.Lock()
	if tick != nil && (c.timerStop == nil || *tick != c.timerToken) {
		c.mu.Unlock()
		return 0, nil
	}
	if c.advancing {
		c.mu.Unlock()
		c.cfg.metrics.ObserveAdvance(OutcomeBusy.String())
		return OutcomeBusy, domain.ErrBusy
	}
	if c.stage.Terminal() {
		c.message = "already mature"
		c.mu.Unlock()
		c.cfg.metrics.ObserveAdvance(OutcomeAlreadyMature.String())
		return OutcomeAlreadyMature, domain.ErrAlreadyMature
	}
	next := c.stage.Next()
	req := c.cfg.requirements[next]
	if !c.cfg.requirements.Allows(next, c.params) {
		detail := violations(req, c.params)
		c.message = fmt.Sprintf("conditions not met for %s: %s", next, detail)
		c.mu.Unlock()
		c.cfg.metrics.ObserveAdvance(OutcomeConditionsNotMet.String())
		return OutcomeConditionsNotMet, fmt.Errorf("%w: entering %s: %s", domain.ErrGatingFailed, next, detail)
	}

	c.advancing = true
	gen := c.generation
	c.stage = next
	entry := c.history.Append(domain.HistoryEntry{Stage: next, Parameters: c.params, OccurredAt: c.cfg.now()})
	c.message = "advanced to " + next.String()
	if next.Terminal() {
		c.stopTimerLocked()
	}
	cycle := c.cycleID
	c.mu.Unlock()

	c.cfg.metrics.ObserveAdvance(OutcomeAdvanced.String())
	c.cfg.metrics.SetStage(next.String(), stageNames())
	c.log.Info("stage advanced", zap.String("cycle_id", cycle), zap.String("stage", next.String()),
		zap.Uint64("history_key", entry.Key), zap.Bool("auto", tick != nil))
	c.persist(ctx)

	c.mu.Lock()
	if c.generation == gen {
		c.advancing = false
		if next == domain.StageFruiting && c.stage == domain.StageFruiting && c.organism == nil {
			c.startDiscoveryLocked()
		}
	}
	c.mu.Unlock()
	return OutcomeAdvanced, nil
}

func violations(req domain.StageRequirement, p domain.EnvironmentParameters) string {
	var out []string
	for _, f := range domain.Fields() {
		r, ok := req[f]
		if !ok {
			continue
		}
		v, _ := p.Get(f)
		if !r.Contains(v) {
			out = append(out, fmt.Sprintf("%s %g outside %s", f, v, r))
		}
	}
	return strings.Join(out, ", ")
}

// SetParameter clamps value into the field's global range, stores it and
// returns the stored value. The stage never changes.
func (c *Controller) SetParameter(ctx context.Context, field domain.Field, value float64) (float64, error) {
	c.mu.Lock()
	stored, clamped, err := c.params.Set(field, value)
	if err != nil {
		c.mu.Unlock()
		return stored, err
	}
	c.message = fmt.Sprintf("%s set to %g", field, stored)
	c.mu.Unlock()
	if clamped {
		c.log.Debug("parameter clamped", zap.String("field", string(field)), zap.Float64("requested", value), zap.Float64("stored", stored))
	}
	c.persist(ctx)
	return stored, nil
}

// DeleteHistory removes the entry with key. It reports whether one was removed.
func (c *Controller) DeleteHistory(ctx context.Context, key uint64) (bool, error) {
	c.mu.Lock()
	ok := c.history.DeleteByKey(key)
	if ok {
		c.message = fmt.Sprintf("history entry %d deleted", key)
	}
	c.mu.Unlock()
	if ok {
		c.persist(ctx)
	}
	return ok, nil
}

// DeleteHistoryAt removes every entry recorded at ts and returns the count.
func (c *Controller) DeleteHistoryAt(ctx context.Context, ts time.Time) (int, error) {
	c.mu.Lock()
	n := c.history.DeleteByTimestamp(ts)
	if n > 0 {
		c.message = fmt.Sprintf("%d history entries deleted", n)
	}
	c.mu.Unlock()
	if n > 0 {
		c.persist(ctx)
	}
	return n, nil
}

// Reset abandons the current cycle and starts a new one at spore with default
// parameters. The timer and any in-flight discovery are cancelled; the timer
// stays stopped until StartAutoAdvance.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.stopTimerLocked()
	c.cancelDiscoveryLocked()
	c.generation++
	prev := c.cycleID
	c.cycleID = c.cfg.newCycleID()
	c.stage = domain.StageSpore
	c.params = domain.DefaultParameters()
	c.organism = nil
	c.history.Clear()
	c.advancing = false
	c.message = "cycle reset"
	cycle := c.cycleID
	c.mu.Unlock()

	c.cfg.metrics.ObserveReset()
	c.cfg.metrics.SetStage(domain.StageSpore.String(), stageNames())
	c.log.Info("cycle reset", zap.String("cycle_id", cycle), zap.String("previous_cycle_id", prev))
	c.persist(ctx)
	return nil
}

// StartAutoAdvance starts the timer unless it is running, disabled or the cycle is mature.
func (c *Controller) StartAutoAdvance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTimerLocked()
}

// StopAutoAdvance stops the timer. No tick takes effect after it returns.
func (c *Controller) StopAutoAdvance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

// AutoAdvancing reports whether the timer is running.
func (c *Controller) AutoAdvancing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerStop != nil
}

// Snapshot returns a copy of the persisted view of the cycle.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status returns the snapshot with transient flags.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Snapshot:      c.snapshotLocked(),
		Advancing:     c.advancing,
		AutoAdvancing: c.timerStop != nil,
		Discovering:   c.discoveryDone != nil,
		Message:       c.message,
	}
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		CycleID:        c.cycleID,
		CurrentStage:   c.stage,
		Parameters:     c.params,
		Organism:       c.organism.Clone(),
		History:        c.history.List(),
		LastHistoryKey: c.history.LastKey(),
	}
}

// AwaitDiscovery blocks until no discovery is in flight or ctx ends.
func (c *Controller) AwaitDiscovery(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.discoveryDone
		c.mu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the timer and discovery and waits for background goroutines.
// State remains readable afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopTimerLocked()
	c.cancelDiscoveryLocked()
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	return nil
}

// persist saves the current snapshot. Failures are logged and counted only.
func (c *Controller) persist(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	snap := c.Snapshot()
	snap.SavedAt = c.cfg.now()
	if err := c.store.Save(ctx, snap); err != nil {
		c.cfg.metrics.ObservePersistenceError("save")
		c.log.Warn("snapshot save failed",
			zap.String("cycle_id", snap.CycleID),
			zap.String("stage", snap.CurrentStage.String()),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrPersistenceUnavailable, err)))
	}
}

func stageNames() []string {
	stages := domain.Stages()
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.String()
	}
	return out
}
